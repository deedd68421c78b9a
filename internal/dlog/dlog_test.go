package dlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenEmptyPathIsStdoutOnly(t *testing.T) {
	l, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\"): %v", err)
	}
	if l.file != nil {
		t.Error("expected no file sink for an empty path")
	}
}

func TestOpenWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l.Printf("hello %s", "world")
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "hello world") {
		t.Errorf("expected file to contain the logged line, got %q", string(data))
	}
}

func TestOpenUnwritablePathReturnsUsableLogger(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "nonexistent-dir", "debug.log"))
	if err == nil {
		t.Fatal("expected an error opening a file in a nonexistent directory")
	}
	// Even on error, the returned Logger must be non-nil and usable.
	l.Printf("still works")
}

func TestWithRequestIDPrefixesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rl := l.WithRequestID("req-123")
	rl.Printf("plan started")
	l.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "[req-123] plan started") {
		t.Errorf("expected request-id prefixed line, got %q", string(data))
	}
}
