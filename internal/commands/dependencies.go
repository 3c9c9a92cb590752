package commands

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/diogo/docchat/internal/api"
	"github.com/diogo/docchat/internal/config"
	"github.com/diogo/docchat/internal/logging"
	"github.com/diogo/docchat/internal/tui"
)

// ServiceFactory builds the remote service for a configuration. The returned
// function releases it.
type ServiceFactory func(cfg config.Config) (api.AnalysisService, func(), error)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctx context.Context, sess tui.Session) error
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// NewService creates the document chat client.
	NewService ServiceFactory

	// TUI is the terminal user interface.
	TUI TUIInterface

	// LoadConfig reads the user configuration.
	LoadConfig func() (config.Config, error)

	// Clipboard receives answers for --copy and copy_to_clipboard.
	Clipboard func(text string) error

	Stdin           io.Reader
	Stdout          io.Writer
	Stderr          io.Writer
	StdinIsTerminal func() bool
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(ctx context.Context, sess tui.Session) error {
	return tui.RunChat(ctx, sess)
}

// NewClientService is the production ServiceFactory: an HTTP client built from the
// configured credentials and timeout.
func NewClientService(cfg config.Config) (api.AnalysisService, func(), error) {
	client, err := api.NewClient(
		cfg.Credentials(),
		api.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
		api.WithLogger(logging.With().Str("component", "api").Logger()),
	)
	if err != nil {
		return nil, nil, err
	}
	logging.Debug().
		Str("base_url", client.BaseURL()).
		Str("user", client.User()).
		Msg("client created")
	return client, client.Close, nil
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		NewService: NewClientService,
		TUI:        &DefaultTUI{},
		LoadConfig: config.LoadConfig,
		Clipboard:  clipboard.WriteAll,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		StdinIsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}
