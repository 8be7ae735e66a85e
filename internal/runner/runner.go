package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/jgoulah/energylog/internal/errs"
	"github.com/jgoulah/energylog/internal/logging"
	"github.com/jgoulah/energylog/internal/normalize"
	"github.com/jgoulah/energylog/internal/publisher"
	"github.com/jgoulah/energylog/internal/source"
	"github.com/jgoulah/energylog/internal/window"
	"github.com/jgoulah/energylog/pkg/models"
)

// Submitter delivers a batch to the webhook
type Submitter interface {
	Submit(ctx context.Context, batch models.Batch) (models.SubmitResult, error)
}

// Ledger records fetched entries locally
type Ledger interface {
	UpsertEntries(device string, entries []models.Entry) error
	MarkSubmitted(device string, dates []string) error
}

// Announcer publishes a summary after a successful submit
type Announcer interface {
	Announce(summary publisher.SyncSummary) error
}

// Options configures one run. Ledger and Announcer are optional.
type Options struct {
	Mode       window.Mode
	Start      string
	End        string
	DeviceName string
	CostPerKWh float64

	Source    source.Fetcher
	Submitter Submitter
	Ledger    Ledger
	Announcer Announcer
	Logger    *logging.Logger
	Now       func() time.Time
}

// Result describes a completed run
type Result struct {
	Window window.Window
	Report normalize.Report
	Batch  models.Batch
	Submit models.SubmitResult
}

// Run performs one sync. It fails fast at the first unrecoverable step and
// never retries.
func Run(ctx context.Context, opts Options) (Result, error) {
	var res Result
	logger := opts.Logger
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	if opts.DeviceName == "" {
		return res, errs.New(errs.KindConfiguration, "device name is required")
	}
	if opts.Source == nil || opts.Submitter == nil {
		return res, errs.New(errs.KindConfiguration, "source and submitter are required")
	}

	w, err := window.Resolve(opts.Mode, opts.Start, opts.End, now())
	if err != nil {
		return res, err
	}
	res.Window = w
	logger.Infof("Fetching energy journal for %s (%s)", opts.DeviceName, w)

	raw, err := opts.Source.Fetch(ctx, w)
	if err != nil {
		return res, err
	}
	logger.Debugf("Journal returned %d records", len(raw))

	entries, report, err := normalize.Entries(raw)
	res.Report = report
	if err != nil {
		return res, err
	}
	if report.Dropped > 0 {
		logger.Warnf("Dropped %d of %d records without a valid date or consumption_total",
			report.Dropped, report.Received)
	}

	batch := models.Batch{
		DeviceName: opts.DeviceName,
		CostPerKWh: opts.CostPerKWh,
		Entries:    entries,
	}
	if batch.CostPerKWh <= 0 {
		batch.CostPerKWh = models.DefaultCostPerKWh
	}
	res.Batch = batch

	if opts.Ledger != nil {
		if err := opts.Ledger.UpsertEntries(batch.DeviceName, batch.Entries); err != nil {
			logger.Warnf("Recording entries in ledger: %v", err)
		}
	}

	logger.Infof("Submitting %d entries for %s", len(batch.Entries), batch.DeviceName)
	result, err := opts.Submitter.Submit(ctx, batch)
	res.Submit = result
	if err != nil {
		return res, err
	}

	if result.Qualified {
		logger.Warnf("Submission accepted without confirmation (status %d): %s", result.StatusCode, result.Message)
	} else {
		logger.Infof("Submission confirmed: %s (rows added: %d)", result.Message, result.RowsAdded)
	}

	if opts.Ledger != nil {
		dates := lo.Uniq(lo.Map(batch.Entries, func(e models.Entry, _ int) string { return e.Date }))
		if err := opts.Ledger.MarkSubmitted(batch.DeviceName, dates); err != nil {
			logger.Warnf("Marking ledger entries submitted: %v", err)
		}
	}

	if opts.Announcer != nil {
		summary := publisher.Summarize(batch, result, w.StartDate(), w.EndDate(), now())
		if err := opts.Announcer.Announce(summary); err != nil {
			logger.Warnf("Announcing sync over MQTT: %v", err)
		} else {
			logger.Debugf("Announced sync for %s", batch.DeviceName)
		}
	}

	return res, nil
}

// Describe renders the final status line for a run
func Describe(res Result) string {
	if res.Submit.Qualified {
		return fmt.Sprintf("Sent %d entries for %s (%s); the webhook did not confirm, verify the sheet manually",
			len(res.Batch.Entries), res.Batch.DeviceName, res.Window)
	}
	return fmt.Sprintf("Logged %d entries for %s (%s)", len(res.Batch.Entries), res.Batch.DeviceName, res.Window)
}
