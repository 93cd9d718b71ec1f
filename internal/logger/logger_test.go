package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

func TestWritersFromDir(t *testing.T) {
	dir := t.TempDir()
	outW, errW, err := Config{Dir: dir}.Writers("middled")
	if err != nil {
		t.Fatalf("Writers: %v", err)
	}
	defer func() { _ = outW.Close(); _ = errW.Close() }()

	if _, err := outW.Write([]byte("out line\n")); err != nil {
		t.Fatalf("write stdout: %v", err)
	}
	if _, err := errW.Write([]byte("err line\n")); err != nil {
		t.Fatalf("write stderr: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "middled.stdout.log"))
	if err != nil || !strings.Contains(string(b), "out line") {
		t.Fatalf("stdout log content: %q err=%v", b, err)
	}
	b, err = os.ReadFile(filepath.Join(dir, "middled.stderr.log"))
	if err != nil || !strings.Contains(string(b), "err line") {
		t.Fatalf("stderr log content: %q err=%v", b, err)
	}
}

func TestWritersExplicitPathsAndDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		StdoutPath: filepath.Join(dir, "custom.out"),
	}
	outW, errW, err := cfg.Writers("svc")
	if err != nil {
		t.Fatalf("Writers: %v", err)
	}
	if outW == nil {
		t.Fatalf("expected stdout writer for explicit path")
	}
	defer func() { _ = outW.Close() }()
	if errW != nil {
		t.Fatalf("expected nil stderr writer without dir or path")
	}

	rot, ok := outW.(*lj.Logger)
	if !ok {
		t.Fatalf("expected lumberjack writer, got %T", outW)
	}
	if rot.MaxSize != DefaultMaxSizeMB || rot.MaxBackups != DefaultMaxBackups || rot.MaxAge != DefaultMaxAgeDays {
		t.Fatalf("rotation defaults not applied: %+v", rot)
	}
}

func TestWritersEmptyConfig(t *testing.T) {
	outW, errW, err := Config{}.Writers("svc")
	if err != nil {
		t.Fatalf("Writers: %v", err)
	}
	if outW != nil || errW != nil {
		t.Fatalf("expected nil writers for empty config")
	}
}

func TestSetupFileLogger(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "warden.log")
	lg := Setup(slog.LevelInfo, path)
	lg.Info("hello from the daemon")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "hello from the daemon") {
		t.Fatalf("log line missing: %q", b)
	}
	if strings.Contains(string(b), "\x1b[") {
		t.Fatalf("file logs must not contain ANSI escapes: %q", b)
	}
}
