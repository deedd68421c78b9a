// Package dlog is the debug-log append collaborator (spec.md §5, §9):
// a dual-sink logger that writes to stdout and, best-effort, to an
// appended debug-log file. It is a direct generalization of the
// teacher's internal/inference.InferenceLogger — stdout is mandatory,
// the file sink is optional and its write errors are swallowed, since
// a failing debug log must never affect a query outcome.
package dlog

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger writes to stdout and, optionally, to an appended file.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	writers []io.Writer
}

// New returns a stdout-only Logger.
func New() *Logger {
	return &Logger{writers: []io.Writer{os.Stdout}}
}

// Open returns a Logger that also appends to the file at path. If the
// file cannot be opened, the error is returned but the caller may
// safely ignore it and keep using the stdout-only Logger New() would
// have produced — debug-log failures are never fatal to a plan.
func Open(path string) (*Logger, error) {
	if path == "" {
		return New(), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return New(), fmt.Errorf("dlog: opening %s: %w", path, err)
	}
	return &Logger{file: f, writers: []io.Writer{os.Stdout, f}}, nil
}

// Close closes the underlying file, if any.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Sync()
		l.file.Close()
		l.file = nil
		l.writers = []io.Writer{os.Stdout}
	}
}

// Printf writes to every sink. A failing file write is swallowed.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	for _, w := range l.writers {
		fmt.Fprint(w, msg)
	}
}

// Println writes a line to every sink.
func (l *Logger) Println(args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprintln(args...)
	for _, w := range l.writers {
		fmt.Fprint(w, msg)
	}
}

// FileOnly writes only to the file sink, if one is open. Used for the
// verbose per-stage repair-cascade traces that would otherwise flood
// stdout on every call.
func (l *Logger) FileOnly(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		fmt.Fprintf(l.file, format, args...)
	}
}

// WithRequestID returns a RequestLogger that prefixes every line with
// requestID, so a single appended debug-log file stays greppable per
// request (SPEC_FULL §4, "Debug-log correlation IDs").
func (l *Logger) WithRequestID(requestID string) *RequestLogger {
	return &RequestLogger{logger: l, requestID: requestID}
}

// RequestLogger is a Logger view scoped to one request id.
type RequestLogger struct {
	logger    *Logger
	requestID string
}

func (r *RequestLogger) Printf(format string, args ...interface{}) {
	r.logger.Printf("[%s] %s", r.requestID, fmt.Sprintf(format, args...))
}

func (r *RequestLogger) Println(args ...interface{}) {
	r.logger.Printf("[%s] %s", r.requestID, fmt.Sprintln(args...))
}

func (r *RequestLogger) FileOnly(format string, args ...interface{}) {
	r.logger.FileOnly("[%s] %s", r.requestID, fmt.Sprintf(format, args...))
}
