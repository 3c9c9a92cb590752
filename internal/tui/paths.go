package tui

import (
	"os"
	"path/filepath"
	"strings"
)

// expandHome resolves a leading ~ in paths typed by the user
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// writeTranscript saves a conversation exported with /save
func writeTranscript(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
