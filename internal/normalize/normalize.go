package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/jgoulah/energylog/internal/errs"
	"github.com/jgoulah/energylog/internal/source"
	"github.com/jgoulah/energylog/pkg/models"
)

// Field names emitted by the journal utility, each followed by accepted aliases.
var (
	dateKeys             = []string{"Date", "date"}
	consumptionTotalKeys = []string{"Consumption Total (kWh)", "consumption_total"}
	consumptionNapKeys   = []string{"Consumption Power Nap (kWh)", "consumption_power_nap"}
	durationAwakeKeys    = []string{"Duration Awake", "duration_awake"}
	durationNapKeys      = []string{"Duration Power Nap", "duration_power_nap"}
)

// Report summarizes one normalization pass
type Report struct {
	Received int
	Accepted int
	Dropped  int
}

// Entries normalizes raw records in order. Records without a usable date or
// total consumption are dropped. A batch left empty, whether the input was
// empty or every record was dropped, is an EmptyResult error.
func Entries(raw []source.RawRecord) ([]models.Entry, Report, error) {
	report := Report{Received: len(raw)}
	if len(raw) == 0 {
		return nil, report, errs.New(errs.KindEmptyResult, "journal returned no records for the requested window")
	}

	entries := lo.FilterMap(raw, func(r source.RawRecord, _ int) (models.Entry, bool) {
		e, err := Entry(r)
		return e, err == nil
	})

	report.Accepted = len(entries)
	report.Dropped = report.Received - report.Accepted
	if len(entries) == 0 {
		return nil, report, errs.New(errs.KindEmptyResult,
			"all %d journal records were dropped for a missing or invalid date or consumption total", report.Dropped)
	}
	return entries, report, nil
}

// Entry normalizes a single raw record
func Entry(r source.RawRecord) (models.Entry, error) {
	date, err := dateField(r)
	if err != nil {
		return models.Entry{}, err
	}

	total, ok := numberField(r, consumptionTotalKeys)
	if !ok || total < 0 {
		return models.Entry{}, errs.New(errs.KindNormalization, "record %s: missing or invalid consumption total", date)
	}

	nap, ok := numberField(r, consumptionNapKeys)
	if !ok || nap < 0 {
		nap = 0
	}

	return models.Entry{
		Date:                date,
		ConsumptionTotal:    total,
		ConsumptionPowerNap: nap,
		DurationAwake:       stringField(r, durationAwakeKeys),
		DurationPowerNap:    stringField(r, durationNapKeys),
	}, nil
}

// NormalizeDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar date
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t.Format(models.DateLayout), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(models.DateLayout), true
	}
	return "", false
}

func dateField(r source.RawRecord) (string, error) {
	v, ok := lookup(r, dateKeys)
	if !ok {
		return "", errs.New(errs.KindNormalization, "record has no date")
	}
	s, ok := v.(string)
	if !ok {
		return "", errs.New(errs.KindNormalization, "record date %v is not a string", v)
	}
	date, ok := NormalizeDate(s)
	if !ok {
		return "", errs.New(errs.KindNormalization, "record date %q is not a calendar date", s)
	}
	return date, nil
}

func numberField(r source.RawRecord, keys []string) (float64, bool) {
	v, ok := lookup(r, keys)
	if !ok {
		return 0, false
	}

	var f float64
	var err error
	switch n := v.(type) {
	case json.Number:
		f, err = n.Float64()
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringField(r source.RawRecord, keys []string) string {
	v, ok := lookup(r, keys)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

func lookup(r source.RawRecord, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
