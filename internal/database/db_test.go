package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jgoulah/energylog/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetClock(func() time.Time { return time.Date(2025, 10, 8, 9, 0, 0, 0, time.UTC) })
	return db
}

func entry(date string, total float64) models.Entry {
	return models.Entry{
		Date:                date,
		ConsumptionTotal:    total,
		ConsumptionPowerNap: 0.3,
		DurationAwake:       "100:30:15",
		DurationPowerNap:    "20:15:00",
	}
}

func TestUpsertEntriesIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	batch := []models.Entry{entry("2025-10-01", 1.5), entry("2025-10-02", 2)}

	for i := 0; i < 2; i++ {
		if err := db.UpsertEntries("studio", batch); err != nil {
			t.Fatalf("UpsertEntries: %v", err)
		}
	}

	got, err := db.ListEntries("studio")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Entry.Date != "2025-10-02" {
		t.Errorf("first date = %s, want newest first", got[0].Entry.Date)
	}
	if got[1].Entry.DurationAwake != "100:30:15" {
		t.Errorf("DurationAwake = %q", got[1].Entry.DurationAwake)
	}
	if got[0].Submitted() {
		t.Error("fresh entries should be pending")
	}
}

func TestMarkSubmittedAndRefetch(t *testing.T) {
	db := openTestDB(t)
	if err := db.UpsertEntries("studio", []models.Entry{entry("2025-10-01", 1.5), entry("2025-10-02", 2)}); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkSubmitted("studio", []string{"2025-10-01", "2025-10-02"}); err != nil {
		t.Fatalf("MarkSubmitted: %v", err)
	}

	pending, err := db.CountPending("studio")
	if err != nil {
		t.Fatal(err)
	}
	if pending != 0 {
		t.Fatalf("pending = %d, want 0", pending)
	}
	if err := db.UpsertEntries("laptop", []models.Entry{entry("2025-10-01", 0.5)}); err != nil {
		t.Fatal(err)
	}
	if all, err := db.CountPending(""); err != nil || all != 1 {
		t.Fatalf("CountPending(all) = %d, %v, want 1", all, err)
	}

	// unchanged day keeps its mark, changed day goes back to pending
	if err := db.UpsertEntries("studio", []models.Entry{entry("2025-10-01", 1.5), entry("2025-10-02", 2.5)}); err != nil {
		t.Fatal(err)
	}
	got, err := db.ListEntries("studio")
	if err != nil {
		t.Fatal(err)
	}
	for _, le := range got {
		switch le.Entry.Date {
		case "2025-10-01":
			if !le.Submitted() {
				t.Error("unchanged entry lost its submitted mark")
			}
		case "2025-10-02":
			if le.Submitted() {
				t.Error("changed entry should be pending again")
			}
			if le.Entry.ConsumptionTotal != 2.5 {
				t.Errorf("ConsumptionTotal = %v, want 2.5", le.Entry.ConsumptionTotal)
			}
		}
	}
}

func TestListEntriesAllDevices(t *testing.T) {
	db := openTestDB(t)
	if err := db.UpsertEntries("studio", []models.Entry{entry("2025-10-01", 1)}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertEntries("laptop", []models.Entry{entry("2025-10-01", 2)}); err != nil {
		t.Fatal(err)
	}

	all, err := db.ListEntries("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	one, err := db.ListEntries("laptop")
	if err != nil {
		t.Fatal(err)
	}
	if len(one) != 1 || one[0].Device != "laptop" {
		t.Errorf("laptop entries = %+v", one)
	}
}

func TestMarkSubmittedNoDates(t *testing.T) {
	db := openTestDB(t)
	if err := db.MarkSubmitted("studio", nil); err != nil {
		t.Errorf("MarkSubmitted(nil) = %v", err)
	}
}
