package logbook

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendAndTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "garage.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer book.Close()

	book.Info("resolving %s", "x2cpn")
	book.Warn("night variant missing")
	book.Error("converter exited with code %d", 2)

	lines := book.Tail(10)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "INFO") || !strings.Contains(lines[0], "x2cpn") {
		t.Fatalf("unexpected first line: %s", lines[0])
	}
	if !strings.Contains(lines[1], "WARN") {
		t.Fatalf("unexpected second line: %s", lines[1])
	}
	if !strings.Contains(lines[2], "ERROR") {
		t.Fatalf("unexpected third line: %s", lines[2])
	}
}

func TestTailLimitsLines(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "garage.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer book.Close()

	for i := 0; i < 5; i++ {
		book.Info("line %d", i)
	}
	lines := book.Tail(2)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], "line 4") {
		t.Fatalf("expected the most recent line last, got %s", lines[1])
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Info("ignored")
	book.Warn("ignored")
	book.Error("ignored")
	if book.Path() != "" {
		t.Fatal("nil logbook has no path")
	}
	if err := book.Close(); err != nil {
		t.Fatalf("nil close should be a no-op: %v", err)
	}
	if lines := book.Tail(5); lines != nil {
		t.Fatalf("nil tail should be empty, got %v", lines)
	}
}

func TestAppendAfterClose(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "garage.log"))
	if err != nil {
		t.Fatal(err)
	}
	if err := book.Close(); err != nil {
		t.Fatal(err)
	}
	// Must not panic or reopen the file.
	book.Info("dropped")
	if lines := book.Tail(5); len(lines) != 0 {
		t.Fatalf("no lines expected after close, got %v", lines)
	}
}
