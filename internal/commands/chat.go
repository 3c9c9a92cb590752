package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/docchat/internal/logging"
	"github.com/diogo/docchat/internal/models"
	"github.com/diogo/docchat/internal/session"
)

// NewChatCmd creates the interactive chat command
func NewChatCmd(deps *Dependencies) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session.

A document attached with --file or /attach is uploaded with the next message and
stays the context of every following question until /new.
Type /exit or press Esc to end the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps, file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Document to attach to the first message")
	return cmd
}

func runChat(cmd *cobra.Command, deps *Dependencies, file string) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var doc *models.Document
	if file != "" {
		if doc, err = models.NewDocumentFromPath(file); err != nil {
			return fmt.Errorf("failed to attach document: %w", err)
		}
	}

	restoreLogs, err := redirectLogs(deps)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer restoreLogs()

	svc, release, err := deps.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer release()

	sess := session.New(svc, session.WithLogger(logging.With().Str("mode", "chat").Logger()))
	defer sess.Close()

	if doc != nil {
		if err := sess.AttachFile(doc); err != nil {
			return fmt.Errorf("failed to attach document: %w", err)
		}
	}

	logging.Debug().Str("session", sess.ID()).Msg("chat started")
	return deps.TUI.RunChat(cmd.Context(), sess)
}
