package render

import (
	"strings"
	"sync"
	"testing"

	"github.com/diogo/docchat/internal/config"
	"github.com/diogo/docchat/internal/models"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Width != 80 {
		t.Errorf("expected Width=80, got %d", opts.Width)
	}
	if opts.Style != ThemeDark {
		t.Errorf("expected Style='dark', got %s", opts.Style)
	}
	if !opts.EnableEmoji || !opts.PreserveNewLines || !opts.TableWrap {
		t.Error("expected emoji, newline preservation and table wrap enabled")
	}
	if opts.InlineTableLinks {
		t.Error("expected InlineTableLinks=false")
	}
}

func TestOptionsBuilders(t *testing.T) {
	opts := DefaultOptions().WithWidth(120).WithStyle(ThemeLight)
	if opts.Width != 120 || opts.Style != ThemeLight {
		t.Errorf("got width=%d style=%s", opts.Width, opts.Style)
	}

	unchanged := opts.WithWidth(0).WithStyle("")
	if unchanged != opts {
		t.Error("zero values should not override options")
	}
}

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		style    string
		contains string
	}{
		{"heading", "# Revenue", ThemeDark, "Revenue"},
		{"bold", "The answer is **42**", ThemeDark, "42"},
		{"list", "- first\n- second", ThemeLight, "second"},
		{"code", "`gofmt`", ThemeTokyoNight, "gofmt"},
		{"palette theme", "plain", ThemeCatppuccin, "plain"},
		{"notty", "## Section", "notty", "Section"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Markdown(tt.input, DefaultOptions().WithStyle(tt.style))
			if err != nil {
				t.Fatalf("Markdown() error: %v", err)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("output %q does not contain %q", out, tt.contains)
			}
		})
	}
}

func TestMarkdownWithWidth(t *testing.T) {
	out, err := MarkdownWithWidth(strings.Repeat("word ", 40), 30)
	if err != nil {
		t.Fatalf("MarkdownWithWidth() error: %v", err)
	}
	if !strings.Contains(out, "\n") {
		t.Error("expected long text to wrap")
	}
}

// resetPool empties the renderer pool and returns a function reporting its size
func resetPool(t *testing.T) func() int {
	t.Helper()
	globalPool.mu.Lock()
	globalPool.pools = make(map[string]*sync.Pool)
	globalPool.mu.Unlock()

	return func() int {
		globalPool.mu.RLock()
		defer globalPool.mu.RUnlock()
		return len(globalPool.pools)
	}
}

func TestMarkdown_Concurrent(t *testing.T) {
	poolSize := resetPool(t)
	opts := DefaultOptions()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Markdown("**concurrent**", opts); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent render failed: %v", err)
	}
	if poolSize() != 1 {
		t.Errorf("pool size = %d, want 1", poolSize())
	}
}

func TestMarkdown_PoolPerOptions(t *testing.T) {
	poolSize := resetPool(t)

	_, _ = Markdown("x", DefaultOptions().WithWidth(41))
	_, _ = Markdown("y", DefaultOptions().WithWidth(41))
	_, _ = Markdown("z", DefaultOptions().WithWidth(60))

	if poolSize() != 2 {
		t.Errorf("pool size = %d, want 2", poolSize())
	}
}

func TestTranscript(t *testing.T) {
	messages := []models.Message{
		models.NewUserMessage(models.UploadPlaceholderText, "report.pdf"),
		models.NewAssistantMessage("  It covers Q3.  "),
		models.NewUserMessage("And Q4?", ""),
	}

	out := Transcript(messages)

	for _, want := range []string{
		"**You** _(report.pdf)_\n\n" + models.UploadPlaceholderText,
		"**Assistant**\n\nIt covers Q3.",
		"**You**\n\nAnd Q4?",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q:\n%s", want, out)
		}
	}
	if Transcript(nil) != "" {
		t.Error("empty conversation should render empty")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	t.Setenv(EnvStyle, "")

	cfg := config.DefaultConfig()
	cfg.Markdown.Style = ThemeLight
	cfg.Markdown.EnableEmoji = false
	cfg.Markdown.InlineTableLinks = true

	opts := OptionsFromConfig(cfg)
	if opts.Style != ThemeLight {
		t.Errorf("Style = %s", opts.Style)
	}
	if opts.EnableEmoji {
		t.Error("EnableEmoji should follow config")
	}
	if !opts.InlineTableLinks {
		t.Error("InlineTableLinks should follow config")
	}

	t.Run("env overrides style", func(t *testing.T) {
		t.Setenv(EnvStyle, "dracula")
		if got := OptionsFromConfig(cfg).Style; got != "dracula" {
			t.Errorf("Style = %s, want dracula", got)
		}
	})

	t.Run("empty style keeps default", func(t *testing.T) {
		cfg.Markdown.Style = ""
		if got := OptionsFromConfig(cfg).Style; got != ThemeDark {
			t.Errorf("Style = %s, want dark", got)
		}
	})
}

func TestLoadOptions(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvStyle, "")

	opts := LoadOptions(100)
	if opts.Width != 100 {
		t.Errorf("Width = %d", opts.Width)
	}
	if opts.Style != config.DefaultMarkdownConfig().Style {
		t.Errorf("Style = %s", opts.Style)
	}
}

func TestThemes(t *testing.T) {
	for _, name := range ThemeNames() {
		if !IsBuiltinStyle(name) {
			t.Errorf("%s should be built in", name)
		}
	}
	if IsBuiltinStyle("/tmp/custom.json") {
		t.Error("paths are not built-in styles")
	}

	if _, ok := paletteStyle(ThemeTokyoNight); !ok {
		t.Error("tokyonight should derive from the TUI palette")
	}
	if _, ok := paletteStyle(ThemeDark); ok {
		t.Error("dark is a glamour style")
	}
}
