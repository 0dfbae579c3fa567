package render

import (
	"github.com/charmbracelet/lipgloss"
)

// TUITheme defines the color scheme for the TUI interface
type TUITheme struct {
	Name        string
	Description string

	Surface lipgloss.Color
	Border  lipgloss.Color

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color

	Text     lipgloss.Color
	TextDim  lipgloss.Color
	TextMute lipgloss.Color

	// Robot colors
	Face      lipgloss.Color
	EyeIdle   lipgloss.Color
	EyeActive lipgloss.Color
}

// Built-in TUI themes
var (
	// SproutTheme is the default: mint greens with a pink robot face
	SproutTheme = TUITheme{
		Name:        "sprout",
		Description: "Sprout - Calm mint greens with a pink robot",

		Surface: lipgloss.Color("#1b4332"),
		Border:  lipgloss.Color("#52b788"),

		Primary:   lipgloss.Color("#66bb6a"),
		Secondary: lipgloss.Color("#a5d6a7"),
		Accent:    lipgloss.Color("#ffc0cb"),
		Warning:   lipgloss.Color("#ffeb3b"),
		Error:     lipgloss.Color("#ef5350"),

		Text:     lipgloss.Color("#e8f5e9"),
		TextDim:  lipgloss.Color("#b9e4c9"),
		TextMute: lipgloss.Color("#2d6a4f"),

		Face:      lipgloss.Color("#ffc0cb"),
		EyeIdle:   lipgloss.Color("#66bb6a"),
		EyeActive: lipgloss.Color("#ef5350"),
	}

	TokyoNightTheme = TUITheme{
		Name:        "tokyonight",
		Description: "Tokyo Night - Dark theme with blue accents",

		Surface: lipgloss.Color("#24283b"),
		Border:  lipgloss.Color("#414868"),

		Primary:   lipgloss.Color("#7aa2f7"),
		Secondary: lipgloss.Color("#9ece6a"),
		Accent:    lipgloss.Color("#bb9af7"),
		Warning:   lipgloss.Color("#e0af68"),
		Error:     lipgloss.Color("#f7768e"),

		Text:     lipgloss.Color("#c0caf5"),
		TextDim:  lipgloss.Color("#565f89"),
		TextMute: lipgloss.Color("#3b4261"),

		Face:      lipgloss.Color("#bb9af7"),
		EyeIdle:   lipgloss.Color("#9ece6a"),
		EyeActive: lipgloss.Color("#f7768e"),
	}

	CatppuccinMochaTheme = TUITheme{
		Name:        "catppuccin",
		Description: "Catppuccin Mocha - Warm dark theme with pastel colors",

		Surface: lipgloss.Color("#313244"),
		Border:  lipgloss.Color("#45475a"),

		Primary:   lipgloss.Color("#89b4fa"), // Blue
		Secondary: lipgloss.Color("#a6e3a1"), // Green
		Accent:    lipgloss.Color("#cba6f7"), // Mauve
		Warning:   lipgloss.Color("#f9e2af"), // Yellow
		Error:     lipgloss.Color("#f38ba8"), // Red

		Text:     lipgloss.Color("#cdd6f4"),
		TextDim:  lipgloss.Color("#6c7086"),
		TextMute: lipgloss.Color("#45475a"),

		Face:      lipgloss.Color("#f5c2e7"), // Pink
		EyeIdle:   lipgloss.Color("#a6e3a1"),
		EyeActive: lipgloss.Color("#f38ba8"),
	}

	NordTheme = TUITheme{
		Name:        "nord",
		Description: "Nord - Arctic-inspired theme with cool tones",

		Surface: lipgloss.Color("#3b4252"),
		Border:  lipgloss.Color("#4c566a"),

		Primary:   lipgloss.Color("#88c0d0"), // Frost
		Secondary: lipgloss.Color("#a3be8c"), // Aurora green
		Accent:    lipgloss.Color("#b48ead"), // Aurora purple
		Warning:   lipgloss.Color("#ebcb8b"), // Aurora yellow
		Error:     lipgloss.Color("#bf616a"), // Aurora red

		Text:     lipgloss.Color("#eceff4"),
		TextDim:  lipgloss.Color("#7b88a1"),
		TextMute: lipgloss.Color("#4c566a"),

		Face:      lipgloss.Color("#b48ead"),
		EyeIdle:   lipgloss.Color("#a3be8c"),
		EyeActive: lipgloss.Color("#bf616a"),
	}
)

// DefaultTUITheme is used when the configured name is unknown
var DefaultTUITheme = SproutTheme

// GetTUIThemeByName returns a TUI theme by its name
func GetTUIThemeByName(name string) (TUITheme, bool) {
	for _, theme := range AvailableTUIThemes() {
		if theme.Name == name {
			return theme, true
		}
	}
	return TUITheme{}, false
}

// ResolveTUITheme returns the named theme or the default
func ResolveTUITheme(name string) TUITheme {
	if theme, ok := GetTUIThemeByName(name); ok {
		return theme
	}
	return DefaultTUITheme
}

// AvailableTUIThemes returns a list of all available TUI themes
func AvailableTUIThemes() []TUITheme {
	return []TUITheme{
		SproutTheme,
		TokyoNightTheme,
		CatppuccinMochaTheme,
		NordTheme,
	}
}

// TUIThemeNames returns just the theme names for selection
func TUIThemeNames() []string {
	themes := AvailableTUIThemes()
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}
