// Package commands provides CLI commands for docchat.
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/diogo/docchat/internal/config"
	"github.com/diogo/docchat/internal/logging"
	"github.com/diogo/docchat/internal/render"
	"github.com/diogo/docchat/internal/tui"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// NewRootCmd creates the docchat command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	var (
		opts    queryOptions
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "docchat [question]",
		Short: "Ask questions about your documents",
		Long: `docchat is a command-line client for a document chat service. Attach a
document once and ask questions that are answered using it as context.

Examples:
  docchat chat                              Start interactive chat
  docchat chat -f report.pdf                Chat about a document
  docchat "What is Go?"                     Ask a single question
  docchat -f report.pdf "Summarize it"      Ask about a document
  docchat -f report.pdf                     Upload and get an overview
  cat question.txt | docchat -f notes.md    Read the question from stdin
  pbpaste | docchat -f - --name clip.md "Explain"   Read the document from stdin
  docchat "Hello" -o answer.md              Save the answer to a file
  docchat config set api_key app-...       Store the API key`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(deps, verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(deps.Stdout, "docchat %s (built %s)\n", Version, BuildTime)
				return nil
			}

			question, err := readQuestion(deps, args, opts)
			if err != nil {
				return err
			}
			if question == "" && opts.File == "" {
				return cmd.Help()
			}
			opts.Question = question

			cfg, err := deps.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runQuery(cmd.Context(), deps, cfg, opts)
		},
	}

	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log requests and turns to stderr")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Document to attach to the question (- reads it from stdin)")
	cmd.Flags().StringVar(&opts.DocumentName, "name", "stdin.txt", "Document name when --file is -")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Save the answer to a file")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "Print only the answer text")
	cmd.Flags().BoolVar(&opts.Copy, "copy", false, "Copy the answer to the clipboard")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	cmd.AddCommand(NewChatCmd(deps))
	cmd.AddCommand(NewConfigCmd(deps))

	return cmd
}

// setupLogging configures the global logger from the config and --verbose
func setupLogging(deps *Dependencies, verbose bool) error {
	cfg, _ := deps.LoadConfig()

	level := logging.ParseLevel(cfg.LogLevel)
	if verbose || cfg.Verbose {
		level = logging.DebugLevel
	}
	logging.Init(logging.Config{Level: level, Output: deps.Stderr, Pretty: true})

	if cfg.TUITheme != "" && !render.SetTUITheme(cfg.TUITheme) {
		logging.Warn().Str("theme", cfg.TUITheme).Msg("unknown TUI theme, using default")
	}
	tui.UpdateTheme()

	return nil
}

// redirectLogs sends logs to a file in the config directory until the returned
// function is called, so output does not corrupt the chat screen.
func redirectLogs(deps *Dependencies) (func(), error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	f, err := logging.OpenFile(dir, logFileName)
	if err != nil {
		return nil, err
	}

	level := logging.Logger.GetLevel()
	logging.Init(logging.Config{Level: level, Output: f})

	return func() {
		logging.Init(logging.Config{Level: level, Output: deps.Stderr, Pretty: true})
		_ = f.Close()
	}, nil
}

const logFileName = "docchat.log"

var rootCmd = NewRootCmd(NewDependencies())

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints errors that were not already shown to the user
func reportError(w io.Writer, err error) {
	if errors.Is(err, errTurnFailed) {
		return
	}
	fmt.Fprintln(w, formatErrorMessage(err, "Error"))
}
