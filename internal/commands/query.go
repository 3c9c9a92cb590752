package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/diogo/docchat/internal/config"
	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/logging"
	"github.com/diogo/docchat/internal/models"
	"github.com/diogo/docchat/internal/render"
	"github.com/diogo/docchat/internal/session"
	"github.com/diogo/docchat/internal/tui"
)

var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)

	badgeStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Italic(true)
)

// errTurnFailed marks a turn whose failure has already been shown to the user
var errTurnFailed = errors.New("turn failed")

// stdinPath as --file reads the document from standard input
const stdinPath = "-"

// queryOptions are the inputs of a one-shot turn
type queryOptions struct {
	Question     string
	File         string
	DocumentName string // name of a document read from stdin
	Output       string
	Raw          bool
	Copy         bool
}

// runQuery runs a single turn through a fresh session and prints the answer
func runQuery(ctx context.Context, deps *Dependencies, cfg config.Config, opts queryOptions) error {
	opts.Question = strings.TrimSpace(opts.Question)
	if opts.Question == "" && opts.File == "" {
		return fmt.Errorf("question cannot be empty")
	}

	svc, release, err := deps.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer release()

	sess := session.New(svc, session.WithLogger(logging.With().Str("mode", "query").Logger()))
	defer sess.Close()

	if opts.File != "" {
		doc, err := loadDocument(deps, opts)
		if err != nil {
			return fmt.Errorf("failed to attach document: %w", err)
		}
		if err := sess.AttachFile(doc); err != nil {
			return fmt.Errorf("failed to attach document: %w", err)
		}
	}
	sess.SetDraftQuery(opts.Question)

	var spin *spinner
	if !opts.Raw {
		spin = newSpinner(deps.Stderr, progressMessage(sess.Snapshot()))
		spin.start()

		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if updates, err := sess.Subscribe(subCtx); err == nil {
			go func() {
				for st := range updates {
					if st.InFlight {
						spin.setMessage(progressMessage(st))
					}
				}
			}()
		}
	}

	sess.SubmitTurn(ctx)
	st := sess.Snapshot()

	if st.LastError != "" {
		if spin != nil {
			spin.stopWithError()
		}
		turnErr := sess.LastErr()
		if turnErr == nil {
			turnErr = errors.New(st.LastError)
		}
		fmt.Fprintln(deps.Stderr, formatErrorMessage(turnErr, "Request failed"))
		return fmt.Errorf("%w: %s", errTurnFailed, st.LastError)
	}

	answer, _ := st.LastAnswer()
	if spin != nil {
		spin.stopWithSuccess(doneMessage(st))
	}

	return writeAnswer(deps, cfg, opts, answer)
}

// loadDocument reads the --file document from disk, or from stdin for "-"
func loadDocument(deps *Dependencies, opts queryOptions) (*models.Document, error) {
	if opts.File != stdinPath {
		return models.NewDocumentFromPath(opts.File)
	}
	if deps.Stdin == nil {
		return nil, fmt.Errorf("no stdin to read the document from")
	}
	data, err := io.ReadAll(deps.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return models.NewDocumentFromBytes(opts.DocumentName, data)
}

// progressMessage describes what the running turn is waiting for
func progressMessage(st session.State) string {
	if st.HasPendingFile() {
		return "Uploading " + st.PendingFile
	}
	if st.ActiveContext.Active {
		return "Analyzing " + st.ActiveContext.Label
	}
	return "Thinking"
}

func doneMessage(st session.State) string {
	if st.ActiveContext.Active {
		return "Answered from " + st.ActiveContext.Label
	}
	return "Done"
}

func writeAnswer(deps *Dependencies, cfg config.Config, opts queryOptions, answer string) error {
	if opts.Copy || cfg.CopyToClipboard {
		if err := deps.Clipboard(answer); err != nil {
			if !opts.Raw {
				fmt.Fprintln(deps.Stderr, lipgloss.NewStyle().Foreground(colorWarning).Render(
					fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
				))
			}
		} else if !opts.Raw {
			fmt.Fprintln(deps.Stderr, lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Copied to clipboard"))
		}
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(answer), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !opts.Raw {
			fmt.Fprintln(deps.Stderr, lipgloss.NewStyle().Foreground(colorSuccess).Render(
				fmt.Sprintf("✓ Answer saved to %s", opts.Output),
			))
		}
		return nil
	}

	if opts.Raw {
		fmt.Fprint(deps.Stdout, answer)
		return nil
	}

	bubbleWidth := getTerminalWidth() - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}
	contentWidth := bubbleWidth - 4

	label := assistantLabelStyle.Render("✦ Assistant")
	if opts.File != "" {
		label += " " + badgeStyle.Render("("+models.ActiveContextLabel+")")
	}
	fmt.Fprintln(deps.Stdout, label)

	rendered, err := render.Markdown(answer, render.OptionsFromConfig(cfg).WithWidth(contentWidth))
	if err != nil {
		rendered = answer
	}
	rendered = strings.TrimRight(rendered, "\n")

	fmt.Fprintln(deps.Stdout, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
	return nil
}

// readQuestion returns the question from the argument or, when stdin is not a
// terminal and does not carry the document, from stdin.
func readQuestion(deps *Dependencies, args []string, opts queryOptions) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if opts.File == stdinPath || deps.Stdin == nil || deps.StdinIsTerminal() {
		return "", nil
	}
	data, err := io.ReadAll(deps.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %s", context, apierrors.Detail(err))))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if endpoint := apierrors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	switch {
	case errors.Is(err, apierrors.ErrMissingAPIKey):
		sb.WriteString(dimStyle.Render("\n  Hint: Run 'docchat config set api_key <key>'"))
	case apierrors.GetResponseBody(err) != "" && apierrors.IsDecodeError(err):
		sb.WriteString(dimStyle.Render("\n\n  " + strings.ReplaceAll(apierrors.GetResponseBody(err), "\n", "\n  ")))
	default:
		if hint := tui.ErrorHint(err); hint != "" {
			sb.WriteString(dimStyle.Render("\n  Hint: " + hint))
		}
	}

	return sb.String()
}
