package models

// Endpoints for the Gemini API
const (
	EndpointGenerativeLanguage = "https://generativelanguage.googleapis.com"
	StreamGeneratePath         = "/v1beta/models/%s:streamGenerateContent?alt=sse"
)

// Model identifiers offered in the model selector.
// Any other identifier is passed through to the provider as-is.
const (
	ModelGemini15Flash = "gemini-1.5-flash"
	ModelGemini15Pro   = "gemini-1.5-pro"
	ModelGemini25Flash = "gemini-2.5-flash"

	// DefaultModel is used when neither flag, env nor config choose one
	DefaultModel = ModelGemini25Flash
)

// CursorMarker is appended to a partial reply while it is still streaming.
// It is never part of stored content.
const CursorMarker = " ▌"

// AllModels returns the built-in selectable model identifiers
func AllModels() []string {
	return []string{ModelGemini25Flash, ModelGemini15Flash, ModelGemini15Pro}
}

// IsKnownModel reports whether name is one of the built-in identifiers
func IsKnownModel(name string) bool {
	for _, m := range AllModels() {
		if m == name {
			return true
		}
	}
	return false
}

// NextModel returns the identifier following current in list, wrapping around.
// If current is not in list, the first entry is returned.
func NextModel(list []string, current string) string {
	if len(list) == 0 {
		return current
	}
	for i, m := range list {
		if m == current {
			return list[(i+1)%len(list)]
		}
	}
	return list[0]
}
