package window

import (
	"time"

	"github.com/jgoulah/energylog/internal/errs"
	"github.com/jgoulah/energylog/pkg/models"
)

// Mode selects how the date window is computed
type Mode string

const (
	ModeWeekly Mode = "weekly"
	ModeAll    Mode = "all"
	ModeCustom Mode = "custom"
)

// Window is an inclusive range of calendar dates. The zero Window is unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

// Bounded reports whether the window restricts the source at all
func (w Window) Bounded() bool {
	return !w.Start.IsZero() && !w.End.IsZero()
}

// StartDate returns the start bound as YYYY-MM-DD, or "" when unbounded
func (w Window) StartDate() string {
	if !w.Bounded() {
		return ""
	}
	return w.Start.Format(models.DateLayout)
}

// EndDate returns the end bound as YYYY-MM-DD, or "" when unbounded
func (w Window) EndDate() string {
	if !w.Bounded() {
		return ""
	}
	return w.End.Format(models.DateLayout)
}

func (w Window) String() string {
	if !w.Bounded() {
		return "full history"
	}
	return w.StartDate() + " to " + w.EndDate()
}

// ModeFromFlags derives the mode from the command line flags
func ModeFromFlags(all bool, start, end string) (Mode, error) {
	custom := start != "" || end != ""
	switch {
	case all && custom:
		return "", errs.New(errs.KindConfiguration, "--all cannot be combined with --start/--end")
	case all:
		return ModeAll, nil
	case custom:
		return ModeCustom, nil
	default:
		return ModeWeekly, nil
	}
}

// Resolve computes the window for mode relative to now. Custom bounds must
// both be present, well-formed, and ordered.
func Resolve(mode Mode, start, end string, now time.Time) (Window, error) {
	switch mode {
	case ModeWeekly, "":
		today := truncateToDay(now)
		return Window{
			Start: today.AddDate(0, 0, -7),
			End:   today.AddDate(0, 0, -1),
		}, nil

	case ModeAll:
		return Window{}, nil

	case ModeCustom:
		if start == "" || end == "" {
			return Window{}, errs.New(errs.KindConfiguration, "custom range requires both --start and --end")
		}
		s, err := time.ParseInLocation(models.DateLayout, start, now.Location())
		if err != nil {
			return Window{}, errs.Wrap(errs.KindConfiguration, err, "invalid --start date %q (use YYYY-MM-DD)", start)
		}
		e, err := time.ParseInLocation(models.DateLayout, end, now.Location())
		if err != nil {
			return Window{}, errs.Wrap(errs.KindConfiguration, err, "invalid --end date %q (use YYYY-MM-DD)", end)
		}
		if s.After(e) {
			return Window{}, errs.New(errs.KindConfiguration, "start date %s is after end date %s", start, end)
		}
		return Window{Start: s, End: e}, nil

	default:
		return Window{}, errs.New(errs.KindConfiguration, "unknown window mode %q", mode)
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
