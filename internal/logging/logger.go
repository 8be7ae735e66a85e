package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	infoColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
	debugColor = color.New(color.FgCyan)
)

// Logger writes info lines to stdout and warnings and errors to stderr.
// Every line is mirrored without colour into the log file when one is set.
type Logger struct {
	mu      sync.Mutex
	out     *log.Logger
	err     *log.Logger
	file    *log.Logger
	closer  io.Closer
	verbose bool
}

// New creates a logger. An empty logFile disables the file mirror.
func New(stdout, stderr io.Writer, logFile string, verbose bool) (*Logger, error) {
	l := &Logger{
		out:     log.New(stdout, "", log.LstdFlags),
		err:     log.New(stderr, "", log.LstdFlags),
		verbose: verbose,
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		l.file = log.New(f, "", log.LstdFlags)
		l.closer = f
	}

	return l, nil
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	l, _ := New(io.Discard, io.Discard, "", false)
	return l
}

// Close closes the log file, if any
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) write(console *log.Logger, tag *color.Color, plain, format string, args ...any) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	console.Printf("%s %s", tag.Sprint(plain), msg)
	if l.file != nil {
		l.file.Printf("%s %s", plain, msg)
	}
}

// Infof logs progress
func (l *Logger) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	l.write(l.out, infoColor, "INFO", format, args...)
}

// Debugf logs only in verbose mode
func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || !l.verbose {
		return
	}
	l.write(l.out, debugColor, "DEBUG", format, args...)
}

// Warnf logs a recoverable problem
func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.write(l.err, warnColor, "WARN", format, args...)
}

// Errorf logs a failure
func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.write(l.err, errorColor, "ERROR", format, args...)
}
