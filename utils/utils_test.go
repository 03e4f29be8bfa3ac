package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCreateFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := CreateFolder(dir); err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		t.Fatalf("expected directory at %s", dir)
	}
	if err := CreateFolder(""); err != nil {
		t.Fatalf("CreateFolder(\"\") should be a no-op, got %v", err)
	}
}

func TestGetLoggerIsShared(t *testing.T) {
	if GetLogger() != GetLogger() {
		t.Fatalf("GetLogger should return the same logger")
	}
}
