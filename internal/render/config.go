package render

import (
	"os"

	"github.com/diogo/docchat/internal/config"
)

// EnvStyle overrides the configured markdown style
const EnvStyle = "GLAMOUR_STYLE"

// OptionsFromConfig builds render options from the markdown section of cfg.
// GLAMOUR_STYLE takes precedence over the configured style.
func OptionsFromConfig(cfg config.Config) Options {
	md := cfg.Markdown
	opts := DefaultOptions().WithStyle(md.Style)
	opts.EnableEmoji = md.EnableEmoji
	opts.PreserveNewLines = md.PreserveNewLines
	opts.TableWrap = md.TableWrap
	opts.InlineTableLinks = md.InlineTableLinks

	if style := os.Getenv(EnvStyle); style != "" {
		opts.Style = style
	}

	return opts
}

// LoadOptions reads the user configuration and returns render options for width.
// A config file that cannot be read yields the defaults.
func LoadOptions(width int) Options {
	cfg, _ := config.LoadConfig()
	return OptionsFromConfig(cfg).WithWidth(width)
}
