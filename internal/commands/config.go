package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/diogo/docchat/internal/config"
	"github.com/diogo/docchat/internal/render"
)

// NewConfigCmd creates the config command and its subcommands
func NewConfigCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the effective configuration: the config file with environment
overrides applied. The API key is masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			path, _ := config.GetConfigPath()
			printConfig(deps.Stdout, cfg, path)
			return nil
		},
	}

	cmd.AddCommand(newConfigSetCmd(deps))
	return cmd
}

func newConfigSetCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Persist a configuration value",
		Long:      "Persist a configuration value. Valid keys: " + strings.Join(config.SettableKeys(), ", "),
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.SettableKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Read the file without environment overrides so they are not persisted.
			cfg, err := loadFileConfig()
			if err != nil {
				return err
			}
			if err := validateSetting(args[0], strings.TrimSpace(args[1])); err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.SaveConfig(cfg); err != nil {
				return err
			}

			value := args[1]
			if args[0] == "api_key" {
				value = config.MaskedKey(value)
			}
			fmt.Fprintf(deps.Stdout, "%s %s = %s\n", color.GreenString("✓"), args[0], value)
			return nil
		},
	}
}

// validateSetting rejects theme values the renderer cannot apply
func validateSetting(key, value string) error {
	switch key {
	case "tui_theme":
		if _, ok := render.GetTUIThemeByName(value); !ok {
			return fmt.Errorf("unknown tui_theme %q (valid: %s)", value, strings.Join(render.TUIThemeNames(), ", "))
		}
	case "markdown.style":
		if render.IsBuiltinStyle(value) {
			return nil
		}
		if _, err := os.Stat(value); err != nil {
			return fmt.Errorf("markdown.style must be one of %s or a glamour style file: %w",
				strings.Join(render.ThemeNames(), ", "), err)
		}
	}
	return nil
}

// loadFileConfig reads the config file only, ignoring environment overrides
func loadFileConfig() (config.Config, error) {
	cfg, err := config.LoadFileConfig()
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func printConfig(w io.Writer, cfg config.Config, path string) {
	key := color.New(color.FgCyan).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	apiKey := config.MaskedKey(cfg.APIKey)
	if apiKey == "" {
		apiKey = color.RedString("(not set)")
	}

	rows := []struct {
		name  string
		value string
	}{
		{"base_url", cfg.BaseURL},
		{"api_key", apiKey},
		{"user", cfg.User},
		{"timeout_seconds", fmt.Sprintf("%d", cfg.TimeoutSeconds)},
		{"log_level", cfg.LogLevel},
		{"verbose", fmt.Sprintf("%t", cfg.Verbose)},
		{"copy_to_clipboard", fmt.Sprintf("%t", cfg.CopyToClipboard)},
		{"tui_theme", cfg.TUITheme},
		{"markdown.style", cfg.Markdown.Style},
	}

	color.New(color.Bold).Fprintln(w, "docchat configuration")
	if path != "" {
		fmt.Fprintln(w, dim(path))
	}
	fmt.Fprintln(w)
	for _, row := range rows {
		fmt.Fprintf(w, "  %-18s %s\n", key(row.name), row.value)
	}
}
