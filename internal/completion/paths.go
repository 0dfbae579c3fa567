package completion

// GJSON paths for extracting values from streamGenerateContent payloads.
const (
	PathPartsText     = "candidates.0.content.parts.#.text"
	PathFinishReason  = "candidates.0.finishReason"
	PathBlockReason   = "promptFeedback.blockReason"
	PathErrorCode     = "error.code"
	PathErrorMessage  = "error.message"
	PathErrorStatus   = "error.status"
	PathErrorArrayMsg = "0.error.message" // some proxies wrap the error in an array
)

// finish reasons that mean the reply was withheld
var blockedFinishReasons = map[string]bool{
	"SAFETY":             true,
	"PROHIBITED_CONTENT": true,
	"BLOCKLIST":          true,
	"SPII":               true,
}
