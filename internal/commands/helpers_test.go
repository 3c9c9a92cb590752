package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/diogo/docchat/internal/api"
	"github.com/diogo/docchat/internal/config"
)

// syncBuffer is written by the spinner goroutine and the command concurrently
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	deps      *Dependencies
	svc       *api.MockService
	cfg       config.Config
	stdout    *syncBuffer
	stderr    *syncBuffer
	clipboard []string
	released  bool
}

func newTestEnv(t *testing.T, svc *api.MockService) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvUser, "")
	t.Setenv(config.EnvLogLevel, "")

	env := &testEnv{
		svc:    svc,
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
	}
	env.cfg = config.DefaultConfig()
	env.cfg.APIKey = "app-test"

	env.deps = &Dependencies{
		NewService: func(cfg config.Config) (api.AnalysisService, func(), error) {
			return env.svc, func() { env.released = true }, nil
		},
		TUI: &fakeTUI{},
		LoadConfig: func() (config.Config, error) {
			return env.cfg, nil
		},
		Clipboard: func(text string) error {
			env.clipboard = append(env.clipboard, text)
			return nil
		},
		Stdin:           strings.NewReader(""),
		Stdout:          env.stdout,
		Stderr:          env.stderr,
		StdinIsTerminal: func() bool { return true },
	}
	return env
}

func (e *testEnv) run(args ...string) error {
	cmd := NewRootCmd(e.deps)
	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func writeDocument(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
