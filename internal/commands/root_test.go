package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/docchat/internal/api"
	"github.com/diogo/docchat/internal/config"
	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/logging"
	"github.com/diogo/docchat/internal/models"
)

func TestRootCmd_Structure(t *testing.T) {
	cmd := NewRootCmd(NewDependencies())

	if cmd.Use != "docchat [question]" {
		t.Errorf("Expected use 'docchat [question]', got %s", cmd.Use)
	}
	if cmd.Short == "" || cmd.Long == "" {
		t.Error("Descriptions should not be empty")
	}

	for _, name := range []string{"chat", "config"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil {
			t.Fatalf("Find(%s) error: %v", name, err)
		}
		if sub.Name() != name {
			t.Errorf("Find(%s) = %s", name, sub.Name())
		}
	}
	for _, flag := range []string{"file", "name", "output", "raw", "copy", "version", "verbose"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("missing --%s flag", flag)
		}
	}
}

func TestRootCmd_Version(t *testing.T) {
	env := newTestEnv(t, &api.MockService{})

	if err := env.run("--version"); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	if !strings.Contains(env.stdout.String(), "docchat "+Version) {
		t.Errorf("stdout = %q", env.stdout.String())
	}
	if len(env.svc.Queries()) != 0 {
		t.Error("--version should not query")
	}
}

func TestRootCmd_HelpWithoutInput(t *testing.T) {
	env := newTestEnv(t, &api.MockService{})

	if err := env.run(); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	if !strings.Contains(env.stdout.String(), "Usage:") {
		t.Errorf("expected help, got %q", env.stdout.String())
	}
	if len(env.svc.Queries()) != 0 {
		t.Error("help should not query")
	}
}

func TestRootCmd_Question(t *testing.T) {
	env := newTestEnv(t, &api.MockService{AnswerText: "Go is a language."})

	if err := env.run("--raw", "What is Go?"); err != nil {
		t.Fatalf("run() error: %v", err)
	}

	if got := env.stdout.String(); got != "Go is a language." {
		t.Errorf("stdout = %q", got)
	}
	queries := env.svc.Queries()
	if len(queries) != 1 || queries[0] != (api.Query{Text: "What is Go?"}) {
		t.Errorf("queries = %+v", queries)
	}
	if len(env.svc.Uploads()) != 0 {
		t.Error("no document was attached")
	}
	if !env.released {
		t.Error("service was not released")
	}
}

func TestRootCmd_QuestionAboutDocument(t *testing.T) {
	env := newTestEnv(t, &api.MockService{UploadHandle: "file-1", AnswerText: "Revenue grew."})
	path := writeDocument(t, "report.txt", "Q3 revenue grew 12%")

	if err := env.run("--raw", "-f", path, "Summarize"); err != nil {
		t.Fatalf("run() error: %v", err)
	}

	uploads := env.svc.Uploads()
	if len(uploads) != 1 || uploads[0].Name != "report.txt" {
		t.Fatalf("uploads = %+v", uploads)
	}
	queries := env.svc.Queries()
	if len(queries) != 1 || queries[0] != (api.Query{Text: "Summarize", ContextHandle: "file-1"}) {
		t.Errorf("queries = %+v", queries)
	}
	if got := env.stdout.String(); got != "Revenue grew." {
		t.Errorf("stdout = %q", got)
	}
}

func TestRootCmd_DocumentOnly(t *testing.T) {
	env := newTestEnv(t, &api.MockService{UploadHandle: "file-1", AnswerText: "Overview"})
	path := writeDocument(t, "notes.md", "# Notes")

	if err := env.run("--raw", "--file", path); err != nil {
		t.Fatalf("run() error: %v", err)
	}

	queries := env.svc.Queries()
	if len(queries) != 1 || queries[0].Text != models.UploadPlaceholderText {
		t.Errorf("queries = %+v", queries)
	}
}

func TestRootCmd_StdinQuestion(t *testing.T) {
	env := newTestEnv(t, &api.MockService{AnswerText: "ok"})
	env.deps.StdinIsTerminal = func() bool { return false }
	env.deps.Stdin = strings.NewReader("  question from a pipe\n")

	if err := env.run("--raw"); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	if got := env.svc.Queries()[0].Text; got != "question from a pipe" {
		t.Errorf("query text = %q", got)
	}
}

func TestRootCmd_StdinDocument(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantName string
		wantText string
	}{
		{
			name:     "default name",
			args:     []string{"--raw", "-f", "-", "Explain"},
			wantName: "stdin.txt",
			wantText: "Explain",
		},
		{
			name:     "named",
			args:     []string{"--raw", "-f", "-", "--name", "clip.md"},
			wantName: "clip.md",
			wantText: models.UploadPlaceholderText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &api.MockService{UploadHandle: "f1", AnswerText: "ok"})
			env.deps.StdinIsTerminal = func() bool { return false }
			env.deps.Stdin = strings.NewReader("# piped notes")

			if err := env.run(tt.args...); err != nil {
				t.Fatalf("run() error: %v", err)
			}

			uploads := env.svc.Uploads()
			if len(uploads) != 1 {
				t.Fatalf("uploads = %d, want 1", len(uploads))
			}
			if uploads[0].Name != tt.wantName {
				t.Errorf("document name = %s, want %s", uploads[0].Name, tt.wantName)
			}
			if string(uploads[0].Data) != "# piped notes" {
				t.Errorf("document data = %q", uploads[0].Data)
			}
			queries := env.svc.Queries()
			if len(queries) != 1 || queries[0] != (api.Query{Text: tt.wantText, ContextHandle: "f1"}) {
				t.Errorf("queries = %+v", queries)
			}
		})
	}
}

func TestRootCmd_StdinDocumentRejected(t *testing.T) {
	env := newTestEnv(t, &api.MockService{})
	env.deps.Stdin = strings.NewReader("")

	err := env.run("-f", "-", "q")
	if !errors.Is(err, apierrors.ErrEmptyDocument) {
		t.Errorf("error = %v, want ErrEmptyDocument", err)
	}
	if len(env.svc.Uploads()) != 0 {
		t.Error("nothing should be uploaded")
	}
}

func TestRootCmd_Output(t *testing.T) {
	env := newTestEnv(t, &api.MockService{AnswerText: "# Saved"})
	out := filepath.Join(t.TempDir(), "answer.md")

	if err := env.run("-o", out, "write it"); err != nil {
		t.Fatalf("run() error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != "# Saved" {
		t.Errorf("file content = %q", data)
	}
	if !strings.Contains(env.stderr.String(), "Answer saved to") {
		t.Errorf("stderr = %q", env.stderr.String())
	}
	if env.stdout.String() != "" {
		t.Errorf("stdout should be empty, got %q", env.stdout.String())
	}
}

func TestRootCmd_Copy(t *testing.T) {
	t.Run("flag", func(t *testing.T) {
		env := newTestEnv(t, &api.MockService{AnswerText: "copied"})
		if err := env.run("--raw", "--copy", "q"); err != nil {
			t.Fatalf("run() error: %v", err)
		}
		if len(env.clipboard) != 1 || env.clipboard[0] != "copied" {
			t.Errorf("clipboard = %v", env.clipboard)
		}
	})

	t.Run("config", func(t *testing.T) {
		env := newTestEnv(t, &api.MockService{AnswerText: "copied"})
		env.cfg.CopyToClipboard = true
		if err := env.run("q"); err != nil {
			t.Fatalf("run() error: %v", err)
		}
		if len(env.clipboard) != 1 || env.clipboard[0] != "copied" {
			t.Errorf("clipboard = %v", env.clipboard)
		}
		if !strings.Contains(env.stderr.String(), "Copied to clipboard") {
			t.Errorf("stderr = %q", env.stderr.String())
		}
	})

	t.Run("failure is a warning", func(t *testing.T) {
		env := newTestEnv(t, &api.MockService{AnswerText: "copied"})
		env.deps.Clipboard = func(string) error { return errors.New("no display") }
		if err := env.run("--copy", "q"); err != nil {
			t.Fatalf("run() error: %v", err)
		}
		if !strings.Contains(env.stderr.String(), "no display") {
			t.Errorf("stderr = %q", env.stderr.String())
		}
	})
}

func TestRootCmd_Decorated(t *testing.T) {
	env := newTestEnv(t, &api.MockService{UploadHandle: "f1", AnswerText: "**bold** answer"})
	path := writeDocument(t, "report.txt", "text")

	if err := env.run("-f", path, "What?"); err != nil {
		t.Fatalf("run() error: %v", err)
	}

	out := env.stdout.String()
	if !strings.Contains(out, "Assistant") || !strings.Contains(out, "answer") {
		t.Errorf("stdout = %q", out)
	}
	if !strings.Contains(env.stderr.String(), "Answered from report.txt") {
		t.Errorf("stderr = %q", env.stderr.String())
	}
}

func TestRootCmd_TurnFailure(t *testing.T) {
	tests := []struct {
		name     string
		svc      *api.MockService
		contains []string
	}{
		{
			name:     "query",
			svc:      &api.MockService{QueryErr: apierrors.NewStatusError("submit query", models.PathChatMessages, 400, `{"message":"bad query"}`)},
			contains: []string{"bad query", "HTTP Status: 400", "Endpoint: /chat-messages"},
		},
		{
			name: "rejected key",
			svc: &api.MockService{
				QueryErr: apierrors.NewStatusError("submit query", models.PathChatMessages, 401, `{"message":"Access token is invalid"}`),
			},
			contains: []string{"✗ Request failed: Access token is invalid", "HTTP Status: 401", "Check your API key"},
		},
		{
			name:     "upload",
			svc:      &api.MockService{UploadErr: apierrors.NewNetworkError("upload document", models.PathFilesUpload, errors.New("refused"))},
			contains: []string{apierrors.FallbackDetail, "Endpoint: /files/upload", "internet connection"},
		},
		{
			name:     "malformed answer",
			svc:      &api.MockService{QueryErr: apierrors.NewDecodeError("submit query", models.PathChatMessages, `{"event":"message"}`, "response has no answer")},
			contains: []string{`{"event":"message"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.svc)
			path := writeDocument(t, "report.txt", "text")

			err := env.run("--raw", "-f", path, "q")
			if !errors.Is(err, errTurnFailed) {
				t.Fatalf("error = %v, want errTurnFailed", err)
			}

			stderr := env.stderr.String()
			for _, want := range tt.contains {
				if !strings.Contains(stderr, want) {
					t.Errorf("stderr %q does not contain %q", stderr, want)
				}
			}
			if strings.Contains(stderr, "WRN") {
				t.Errorf("turn failures should not be logged at the default level: %q", stderr)
			}
			if env.stdout.String() != "" {
				t.Errorf("stdout should be empty, got %q", env.stdout.String())
			}
		})
	}
}

func TestRootCmd_InvalidDocument(t *testing.T) {
	env := newTestEnv(t, &api.MockService{})
	path := writeDocument(t, "photo.png", "png")

	err := env.run("-f", path, "q")
	if !errors.Is(err, apierrors.ErrUnsupportedDocument) {
		t.Errorf("error = %v, want ErrUnsupportedDocument", err)
	}
	if len(env.svc.Uploads()) != 0 {
		t.Error("nothing should be uploaded")
	}
}

func TestRootCmd_ServiceError(t *testing.T) {
	env := newTestEnv(t, &api.MockService{})
	env.deps.NewService = func(config.Config) (api.AnalysisService, func(), error) {
		return nil, nil, apierrors.ErrMissingAPIKey
	}

	if err := env.run("q"); !errors.Is(err, apierrors.ErrMissingAPIKey) {
		t.Errorf("error = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewClientService(t *testing.T) {
	cfg := config.DefaultConfig()

	if _, _, err := NewClientService(cfg); !errors.Is(err, apierrors.ErrMissingAPIKey) {
		t.Errorf("error = %v, want ErrMissingAPIKey", err)
	}

	cfg.APIKey = "app-test"
	svc, release, err := NewClientService(cfg)
	if err != nil {
		t.Fatalf("NewClientService() error: %v", err)
	}
	if _, ok := svc.(*api.Client); !ok {
		t.Errorf("service type = %T, want *api.Client", svc)
	}
	release()
}

func TestSetupLogging(t *testing.T) {
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	env := newTestEnv(t, &api.MockService{})

	tests := []struct {
		name     string
		logLevel string
		verbose  bool
		want     logging.Level
	}{
		{"default", "", false, logging.WarnLevel},
		{"verbose flag", "", true, logging.DebugLevel},
		{"configured", "error", false, logging.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.cfg.LogLevel = tt.logLevel
			if err := setupLogging(env.deps, tt.verbose); err != nil {
				t.Fatalf("setupLogging() error: %v", err)
			}
			if got := logging.Logger.GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedirectLogs(t *testing.T) {
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	env := newTestEnv(t, &api.MockService{})
	if err := setupLogging(env.deps, false); err != nil {
		t.Fatalf("setupLogging() error: %v", err)
	}

	restore, err := redirectLogs(env.deps)
	if err != nil {
		t.Fatalf("redirectLogs() error: %v", err)
	}
	logging.Warn().Msg("while redirected")
	restore()
	logging.Warn().Msg("after restore")

	dir, err := config.GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.Contains(string(data), "while redirected") {
		t.Errorf("log file = %q", data)
	}
	if strings.Contains(string(data), "after restore") {
		t.Error("logs after restore should not reach the file")
	}
	if !strings.Contains(env.stderr.String(), "after restore") {
		t.Errorf("stderr = %q", env.stderr.String())
	}
	if logging.Logger.GetLevel() != logging.WarnLevel {
		t.Errorf("level = %v after restore", logging.Logger.GetLevel())
	}
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer

	reportError(&buf, errTurnFailed)
	if buf.String() != "" {
		t.Errorf("turn failures are already shown, got %q", buf.String())
	}

	reportError(&buf, errors.New("unknown flag"))
	if !strings.Contains(buf.String(), "unknown flag") {
		t.Errorf("output = %q", buf.String())
	}
}
