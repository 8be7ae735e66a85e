package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jgoulah/energylog/pkg/models"
	_ "modernc.org/sqlite"
)

// DB wraps the ledger connection
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// LedgerEntry is one day of consumption as last fetched for a device
type LedgerEntry struct {
	ID          int
	Device      string
	Entry       models.Entry
	FetchedAt   time.Time
	SubmittedAt time.Time // zero until the webhook accepted it
}

// Submitted reports whether the entry has been delivered
func (e LedgerEntry) Submitted() bool {
	return !e.SubmittedAt.IsZero()
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// SetClock replaces the time source used for fetched_at and submitted_at
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device TEXT NOT NULL,
		date TEXT NOT NULL,
		consumption_total REAL NOT NULL,
		consumption_power_nap REAL NOT NULL,
		duration_awake TEXT NOT NULL,
		duration_power_nap TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		submitted_at TEXT,
		UNIQUE(device, date)
	);
	CREATE INDEX IF NOT EXISTS idx_entries_device ON entries(device);
	CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(date);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// UpsertEntries records fetched entries for a device. A re-fetched day
// replaces the stored values and clears its submitted mark when they changed.
func (db *DB) UpsertEntries(device string, entries []models.Entry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
	INSERT INTO entries (device, date, consumption_total, consumption_power_nap,
		duration_awake, duration_power_nap, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(device, date) DO UPDATE SET
		submitted_at = CASE
			WHEN consumption_total = excluded.consumption_total
				AND consumption_power_nap = excluded.consumption_power_nap
				AND duration_awake = excluded.duration_awake
				AND duration_power_nap = excluded.duration_power_nap
			THEN submitted_at ELSE NULL END,
		consumption_total = excluded.consumption_total,
		consumption_power_nap = excluded.consumption_power_nap,
		duration_awake = excluded.duration_awake,
		duration_power_nap = excluded.duration_power_nap,
		fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	fetchedAt := db.now().UTC().Format(time.RFC3339)
	for _, e := range entries {
		if _, err := stmt.Exec(device, e.Date, e.ConsumptionTotal, e.ConsumptionPowerNap,
			e.DurationAwake, e.DurationPowerNap, fetchedAt); err != nil {
			return fmt.Errorf("upserting entry for %s: %w", e.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing entries: %w", err)
	}
	return nil
}

// MarkSubmitted stamps the given dates of a device as delivered
func (db *DB) MarkSubmitted(device string, dates []string) error {
	if len(dates) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	submittedAt := db.now().UTC().Format(time.RFC3339)
	for _, date := range dates {
		if _, err := tx.Exec(`UPDATE entries SET submitted_at = ? WHERE device = ? AND date = ?`,
			submittedAt, device, date); err != nil {
			return fmt.Errorf("marking %s as submitted: %w", date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing submitted marks: %w", err)
	}
	return nil
}

// ListEntries retrieves the entries of a device, newest first. An empty
// device lists every device.
func (db *DB) ListEntries(device string) ([]LedgerEntry, error) {
	query := `
	SELECT id, device, date, consumption_total, consumption_power_nap,
		duration_awake, duration_power_nap, fetched_at, submitted_at
	FROM entries
	WHERE ? = '' OR device = ?
	ORDER BY date DESC, device
	`

	rows, err := db.conn.Query(query, device, device)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var results []LedgerEntry
	for rows.Next() {
		var le LedgerEntry
		var fetchedAt string
		var submittedAt sql.NullString

		if err := rows.Scan(&le.ID, &le.Device, &le.Entry.Date, &le.Entry.ConsumptionTotal,
			&le.Entry.ConsumptionPowerNap, &le.Entry.DurationAwake, &le.Entry.DurationPowerNap,
			&fetchedAt, &submittedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		le.FetchedAt, err = time.Parse(time.RFC3339, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing fetched_at: %w", err)
		}
		if submittedAt.Valid && submittedAt.String != "" {
			le.SubmittedAt, err = time.Parse(time.RFC3339, submittedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing submitted_at: %w", err)
			}
		}

		results = append(results, le)
	}

	return results, rows.Err()
}

// CountPending returns how many entries of a device await delivery. An empty
// device counts every device.
func (db *DB) CountPending(device string) (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM entries WHERE (? = '' OR device = ?) AND submitted_at IS NULL`,
		device, device).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting pending entries: %w", err)
	}
	return n, nil
}
