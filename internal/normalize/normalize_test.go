package normalize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jgoulah/energylog/internal/errs"
	"github.com/jgoulah/energylog/internal/source"
	"github.com/jgoulah/energylog/pkg/models"
)

func TestEntriesExampleRecord(t *testing.T) {
	raw, err := source.Decode([]byte(`[{"Date":"2025-10-01","Consumption Total (kWh)":1.5,"Consumption Power Nap (kWh)":0.3,"Duration Awake":"100:30:15","Duration Power Nap":"20:15:00"}]`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	entries, report, err := Entries(raw)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	want := models.Entry{
		Date:                "2025-10-01",
		ConsumptionTotal:    1.5,
		ConsumptionPowerNap: 0.3,
		DurationAwake:       "100:30:15",
		DurationPowerNap:    "20:15:00",
	}
	if len(entries) != 1 || entries[0] != want {
		t.Fatalf("entries = %+v, want [%+v]", entries, want)
	}
	if report.Received != 1 || report.Accepted != 1 || report.Dropped != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestEntryDefaultsOptionalFields(t *testing.T) {
	e, err := Entry(source.RawRecord{"Date": "2025-10-02", "Consumption Total (kWh)": json.Number("2")})
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if e.ConsumptionPowerNap != 0 || e.DurationAwake != "" || e.DurationPowerNap != "" {
		t.Errorf("optional fields not defaulted: %+v", e)
	}
}

func TestEntryAcceptsAliasesAndStrings(t *testing.T) {
	e, err := Entry(source.RawRecord{
		"date":                  "2025-10-03T00:00:00Z",
		"consumption_total":     " 0.75 ",
		"consumption_power_nap": "bogus",
		"duration_awake":        json.Number("12"),
	})
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if e.Date != "2025-10-03" {
		t.Errorf("Date = %q, want 2025-10-03", e.Date)
	}
	if e.ConsumptionTotal != 0.75 {
		t.Errorf("ConsumptionTotal = %v, want 0.75", e.ConsumptionTotal)
	}
	if e.ConsumptionPowerNap != 0 {
		t.Errorf("ConsumptionPowerNap = %v, want 0", e.ConsumptionPowerNap)
	}
	if e.DurationAwake != "12" {
		t.Errorf("DurationAwake = %q, want 12", e.DurationAwake)
	}
}

func TestEntryRejectsMissingMandatoryFields(t *testing.T) {
	tests := []struct {
		name string
		rec  source.RawRecord
	}{
		{"no date", source.RawRecord{"Consumption Total (kWh)": 1.0}},
		{"bad date", source.RawRecord{"Date": "yesterday", "Consumption Total (kWh)": 1.0}},
		{"numeric date", source.RawRecord{"Date": json.Number("20251001"), "Consumption Total (kWh)": 1.0}},
		{"no total", source.RawRecord{"Date": "2025-10-01"}},
		{"negative total", source.RawRecord{"Date": "2025-10-01", "Consumption Total (kWh)": -1.0}},
		{"null total", source.RawRecord{"Date": "2025-10-01", "Consumption Total (kWh)": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Entry(tt.rec); !errs.Is(err, errs.KindNormalization) {
				t.Fatalf("err = %v, want normalization error", err)
			}
		})
	}
}

func TestEntriesEmptyInput(t *testing.T) {
	_, _, err := Entries(nil)
	if !errs.Is(err, errs.KindEmptyResult) {
		t.Fatalf("err = %v, want empty result", err)
	}
}

func TestEntriesAllDropped(t *testing.T) {
	raw := []source.RawRecord{
		{"Date": "2025-10-01"},
		{"Consumption Total (kWh)": 1.0},
	}
	_, report, err := Entries(raw)
	if !errs.Is(err, errs.KindEmptyResult) {
		t.Fatalf("err = %v, want empty result", err)
	}
	if !strings.Contains(err.Error(), "all 2 journal records were dropped") {
		t.Errorf("err = %q, want the dropped count", err)
	}
	if report.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", report.Dropped)
	}
}

func TestEntriesPartialDropKeepsOrder(t *testing.T) {
	raw := []source.RawRecord{
		{"Date": "2025-10-02", "Consumption Total (kWh)": 2.0},
		{"Date": "", "Consumption Total (kWh)": 9.0},
		{"Date": "2025-10-01", "Consumption Total (kWh)": 1.0},
	}
	entries, report, err := Entries(raw)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if report.Accepted != 2 || report.Dropped != 1 {
		t.Errorf("report = %+v", report)
	}
	if entries[0].Date != "2025-10-02" || entries[1].Date != "2025-10-01" {
		t.Errorf("order not preserved: %+v", entries)
	}
}
