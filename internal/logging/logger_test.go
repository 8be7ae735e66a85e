package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestLoggerRoutesLevels(t *testing.T) {
	color.NoColor = true
	var stdout, stderr bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "energylog.log")

	l, err := New(&stdout, &stderr, logFile, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Infof("fetched %d entries", 7)
	l.Warnf("dropped %d", 1)
	l.Errorf("boom")
	l.Debugf("hidden")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(stdout.String(), "fetched 7 entries") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if strings.Contains(stdout.String(), "dropped") || strings.Contains(stdout.String(), "hidden") {
		t.Errorf("stdout has unexpected lines: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "dropped 1") || !strings.Contains(stderr.String(), "boom") {
		t.Errorf("stderr = %q", stderr.String())
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"INFO fetched 7 entries", "WARN dropped 1", "ERROR boom"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q:\n%s", want, data)
		}
	}
}

func TestLoggerVerbose(t *testing.T) {
	var stdout bytes.Buffer
	l, err := New(&stdout, &bytes.Buffer{}, "", true)
	if err != nil {
		t.Fatal(err)
	}
	l.Debugf("command line %s", "powerjournal")
	if !strings.Contains(stdout.String(), "command line powerjournal") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Infof("x")
	l.Errorf("y")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewBadLogFile(t *testing.T) {
	_, err := New(&bytes.Buffer{}, &bytes.Buffer{}, filepath.Join(t.TempDir(), "missing", "x.log"), false)
	if err == nil {
		t.Fatal("expected error for unwritable log file")
	}
}
