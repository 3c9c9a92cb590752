package render

import (
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// Markdown style names
const (
	ThemeDark       = "dark"
	ThemeLight      = "light"
	ThemeTokyoNight = "tokyonight"
	ThemeCatppuccin = "catppuccin"
)

// ThemeInfo contains information about a theme for display purposes.
type ThemeInfo struct {
	Name        string
	Description string
}

// AvailableThemes lists the markdown styles accepted by Options.Style. Any other
// value is treated as a path to a glamour JSON style.
func AvailableThemes() []ThemeInfo {
	return []ThemeInfo{
		{Name: ThemeDark, Description: "Dark theme (default)"},
		{Name: ThemeTokyoNight, Description: "Tokyo Night color scheme"},
		{Name: ThemeCatppuccin, Description: "Catppuccin Mocha color scheme"},
		{Name: ThemeLight, Description: "Light theme for bright terminals"},
		{Name: "dracula", Description: "Dracula color scheme"},
		{Name: "notty", Description: "Plain text (no styling)"},
		{Name: "ascii", Description: "ASCII-only output"},
	}
}

// ThemeNames returns just the theme names.
func ThemeNames() []string {
	themes := AvailableThemes()
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}

// IsBuiltinStyle reports whether style names a theme rather than a file.
func IsBuiltinStyle(style string) bool {
	for _, name := range ThemeNames() {
		if name == style {
			return true
		}
	}
	return false
}

// paletteStyle derives a glamour style from the dark style and a TUI palette, so
// rendered answers match the chat interface colors.
func paletteStyle(name string) (ansi.StyleConfig, bool) {
	var theme TUITheme
	switch name {
	case ThemeTokyoNight:
		theme = TokyoNightTheme
	case ThemeCatppuccin:
		theme = CatppuccinMochaTheme
	default:
		return ansi.StyleConfig{}, false
	}

	cfg := styles.DarkStyleConfig
	text := string(theme.Text)
	primary := string(theme.Primary)
	secondary := string(theme.Secondary)
	accent := string(theme.Accent)
	dim := string(theme.TextDim)

	cfg.Document.Color = &text
	cfg.Heading.Color = &primary
	cfg.H1.Color = &text
	cfg.H1.BackgroundColor = &primary
	cfg.Link.Color = &primary
	cfg.LinkText.Color = &accent
	cfg.Code.Color = &secondary
	cfg.BlockQuote.Color = &dim
	cfg.HorizontalRule.Color = &dim
	cfg.HorizontalRule.Format = "\n────────\n"

	return cfg, true
}
