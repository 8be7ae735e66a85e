package models

import "time"

// DateLayout is the canonical calendar-date format used on the wire and in storage
const DateLayout = "2006-01-02"

// DefaultCostPerKWh is used when a batch omits its rate
const DefaultCostPerKWh = 30.0

// Entry represents one calendar day of measurement for one device
type Entry struct {
	Date                string  `json:"date"` // YYYY-MM-DD, unique per device
	ConsumptionTotal    float64 `json:"consumption_total"`
	ConsumptionPowerNap float64 `json:"consumption_power_nap"`
	DurationAwake       string  `json:"duration_awake"`
	DurationPowerNap    string  `json:"duration_power_nap"`
}

// Batch is one submission unit sent to the webhook
type Batch struct {
	DeviceName string  `json:"device_name"`
	CostPerKWh float64 `json:"cost_per_kwh"`
	Entries    []Entry `json:"entries"`
}

// Rate returns the batch rate, falling back to DefaultCostPerKWh
func (b Batch) Rate() float64 {
	if b.CostPerKWh <= 0 {
		return DefaultCostPerKWh
	}
	return b.CostPerKWh
}

// StoredRow is an Entry as persisted by the sheet store
type StoredRow struct {
	Entry
	Rate     float64   `json:"rate"`
	Cost     string    `json:"cost"` // two decimals, e.g. "45.00"
	LoggedAt time.Time `json:"logged_at"`
}

// Response is the JSON body returned by the webhook
type Response struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
	Device      string `json:"device,omitempty"`
	Sheet       string `json:"sheet,omitempty"`
	RowsAdded   int    `json:"rows_added"`
	RowsUpdated int    `json:"rows_updated"`
}

// SubmitResult is the classified outcome of one batch submission
type SubmitResult struct {
	Success    bool
	Qualified  bool // accepted without a structured confirmation, verify manually
	Message    string
	Device     string
	Sheet      string
	RowsAdded  int
	StatusCode int
}
