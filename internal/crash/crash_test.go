package crash

import (
	"io"
	"os"
	"strings"
	"testing"
)

func TestWriteReportCreatesFile(t *testing.T) {
	path, err := writeReport("parse sample.fountain", "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Screenwright Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
	if !strings.Contains(s, "Operation: parse sample.fountain") {
		t.Fatalf("operation context missing: %s", s)
	}
}

// TestRecoverDoesNotTerminate ensures Recover handles a panic, writes a
// report, and honors the injected exitFn instead of killing the process.
func TestRecoverDoesNotTerminate(t *testing.T) {
	// Capture stderr temporarily to avoid noisy test logs
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	func() {
		defer Recover("unit test")
		panic("boom")
	}()

	if called != 2 {
		t.Fatalf("expected exit code 2 via exitFn, got %d", called)
	}
}
