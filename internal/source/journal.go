package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/jgoulah/energylog/internal/errs"
	"github.com/jgoulah/energylog/internal/window"
)

// RawRecord is one per-day object as emitted by the journal utility,
// keyed by its human-readable field names
type RawRecord map[string]any

// Fetcher returns raw per-day records for a window
type Fetcher interface {
	Fetch(ctx context.Context, w window.Window) ([]RawRecord, error)
}

// Journal runs the external energy journal utility
type Journal struct {
	Command   string
	Args      []string
	StartFlag string
	EndFlag   string
	Timeout   time.Duration
}

// NewJournal creates a journal adapter with default range flags
func NewJournal(command string, args []string, timeout time.Duration) *Journal {
	return &Journal{
		Command:   command,
		Args:      args,
		StartFlag: "--from",
		EndFlag:   "--to",
		Timeout:   timeout,
	}
}

// CommandLine returns the argv the adapter runs for w
func (j *Journal) CommandLine(w window.Window) []string {
	argv := append([]string{j.Command}, j.Args...)
	if w.Bounded() {
		argv = append(argv, j.StartFlag, w.StartDate(), j.EndFlag, w.EndDate())
	}
	return argv
}

// Fetch invokes the utility and decodes its JSON array output
func (j *Journal) Fetch(ctx context.Context, w window.Window) ([]RawRecord, error) {
	if strings.TrimSpace(j.Command) == "" {
		return nil, errs.New(errs.KindSourceUnavailable, "no journal command configured")
	}

	path, err := exec.LookPath(j.Command)
	if err != nil {
		return nil, errs.Wrap(errs.KindSourceUnavailable, err, "journal utility %q is not installed or not executable", j.Command)
	}

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	argv := j.CommandLine(w)
	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errs.Wrap(errs.KindSourceData, ctx.Err(), "journal utility timed out after %s", j.Timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, errs.Wrap(errs.KindSourceData, err, "journal utility failed: %s", errs.Excerpt(stderr.String(), errs.BodyExcerptLimit))
		}
		if errors.Is(err, fs.ErrPermission) || errors.Is(err, exec.ErrNotFound) {
			return nil, errs.Wrap(errs.KindSourceUnavailable, err, "running journal utility")
		}
		return nil, errs.Wrap(errs.KindSourceData, err, "running journal utility")
	}

	return Decode(stdout.Bytes())
}

// Decode parses the utility output. Blank output is an empty result.
func Decode(data []byte) ([]RawRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []RawRecord
	if err := dec.Decode(&records); err != nil {
		return nil, errs.Wrap(errs.KindSourceData, err, "decoding journal output")
	}
	if dec.More() {
		return nil, errs.New(errs.KindSourceData, "decoding journal output: trailing data after JSON array")
	}
	for i, r := range records {
		if r == nil {
			return nil, errs.New(errs.KindSourceData, "decoding journal output: record %d is not an object", i)
		}
	}
	return records, nil
}
