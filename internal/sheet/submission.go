package sheet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jgoulah/energylog/pkg/models"
)

var (
	// ErrInvalidSubmission marks payloads that cannot be turned into a batch
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrMissingDevice marks payloads without a device name
	ErrMissingDevice = errors.New("device_name is required")
)

// Submission is the decoded webhook payload: either a BatchSubmission or a
// legacy SingleEntrySubmission. Batch resolves it to the canonical shape.
type Submission interface {
	Batch() models.Batch
}

// BatchSubmission carries an entries array
type BatchSubmission struct {
	DeviceName string
	CostPerKWh float64
	Entries    []models.Entry
}

// Batch implements Submission
func (s BatchSubmission) Batch() models.Batch {
	return models.Batch{
		DeviceName: s.DeviceName,
		CostPerKWh: s.CostPerKWh,
		Entries:    s.Entries,
	}
}

// SingleEntrySubmission is the legacy shape with one inline entry
type SingleEntrySubmission struct {
	DeviceName string
	CostPerKWh float64
	Entry      models.Entry
}

// Batch implements Submission
func (s SingleEntrySubmission) Batch() models.Batch {
	return models.Batch{
		DeviceName: s.DeviceName,
		CostPerKWh: s.CostPerKWh,
		Entries:    []models.Entry{s.Entry},
	}
}

// flexFloat accepts JSON numbers and numeric strings
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type wireEntry struct {
	Date                *string    `json:"date"`
	ConsumptionTotal    *flexFloat `json:"consumption_total"`
	ConsumptionPowerNap flexFloat  `json:"consumption_power_nap"`
	DurationAwake       string     `json:"duration_awake"`
	DurationPowerNap    string     `json:"duration_power_nap"`
}

type wireSubmission struct {
	DeviceName string       `json:"device_name"`
	CostPerKWh flexFloat    `json:"cost_per_kwh"`
	Entries    *[]wireEntry `json:"entries"`
	wireEntry
}

// DecodeSubmission parses a webhook body into its tagged shape
func DecodeSubmission(data []byte) (Submission, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidSubmission)
	}

	var w wireSubmission
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}

	device := strings.TrimSpace(w.DeviceName)
	if device == "" {
		return nil, ErrMissingDevice
	}
	rate := float64(w.CostPerKWh)

	if w.Entries != nil {
		if len(*w.Entries) == 0 {
			return nil, fmt.Errorf("%w: entries is empty", ErrInvalidSubmission)
		}
		entries := make([]models.Entry, 0, len(*w.Entries))
		for i, we := range *w.Entries {
			e, err := we.entry()
			if err != nil {
				return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidSubmission, i, err)
			}
			entries = append(entries, e)
		}
		return BatchSubmission{DeviceName: device, CostPerKWh: rate, Entries: entries}, nil
	}

	if w.Date == nil && w.ConsumptionTotal == nil {
		return nil, fmt.Errorf("%w: expected an entries array or an inline date and consumption_total", ErrInvalidSubmission)
	}
	e, err := w.wireEntry.entry()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	return SingleEntrySubmission{DeviceName: device, CostPerKWh: rate, Entry: e}, nil
}

func (we wireEntry) entry() (models.Entry, error) {
	if we.Date == nil {
		return models.Entry{}, errors.New("date is required")
	}
	date, ok := NormalizeDate(*we.Date)
	if !ok {
		return models.Entry{}, fmt.Errorf("date %q is not a calendar date", *we.Date)
	}
	if we.ConsumptionTotal == nil {
		return models.Entry{}, errors.New("consumption_total is required")
	}
	return models.Entry{
		Date:                date,
		ConsumptionTotal:    float64(*we.ConsumptionTotal),
		ConsumptionPowerNap: float64(we.ConsumptionPowerNap),
		DurationAwake:       strings.TrimSpace(we.DurationAwake),
		DurationPowerNap:    strings.TrimSpace(we.DurationPowerNap),
	}, nil
}
