package sheet

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jgoulah/energylog/pkg/models"
)

// Header is the fixed column layout of every device worksheet
var Header = []string{
	"date",
	"consumption_total",
	"consumption_power_nap",
	"duration_awake",
	"duration_power_nap",
	"rate",
	"cost",
	"logged_at",
}

const (
	defaultSheet      = "Sheet1"
	maxSheetNameRunes = 31

	// hidden sheet mapping each device name to the worksheet holding its rows
	indexSheet = "_devices"
)

// Outcome describes what one upsert did
type Outcome struct {
	Device      string
	Sheet       string
	RowsAdded   int
	RowsUpdated int
}

// Store upserts batches into a workbook on disk. It is safe for concurrent
// use; upserts are applied one at a time.
type Store struct {
	mu   sync.Mutex
	path string
	file *excelize.File
	now  func() time.Time

	// name of the placeholder sheet of a freshly created workbook, removed
	// once the first device sheet exists
	placeholder string
}

// Open loads the workbook at path, or starts a new one if it does not exist
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}

	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("opening workbook: %w", err)
		}
		s.file = f
		return s, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking workbook: %w", err)
	}

	s.file = excelize.NewFile()
	s.placeholder = defaultSheet
	return s, nil
}

// SetClock overrides the receipt clock used for logged_at
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Close releases the workbook
func (s *Store) Close() error {
	return s.file.Close()
}

// SheetName maps a device name onto a valid worksheet name
func SheetName(device string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(device))
	if r := []rune(name); len(r) > maxSheetNameRunes {
		name = string(r[:maxSheetNameRunes])
	}
	return strings.Trim(name, "'")
}

// Upsert writes every entry of b into the device's worksheet, replacing the
// row with the same date or appending a new one, then saves the workbook
func (s *Store) Upsert(b models.Batch) (Outcome, error) {
	device := strings.TrimSpace(b.DeviceName)
	if device == "" {
		return Outcome{}, ErrMissingDevice
	}
	if SheetName(device) == "" {
		return Outcome{}, fmt.Errorf("%w: device name %q has no usable characters", ErrInvalidSubmission, b.DeviceName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, _, err := s.deviceIndex()
	if err != nil {
		return Outcome{}, err
	}
	name, known := index[device]
	if !known {
		if adopted, ok := s.unindexedSheet(device, index); ok {
			name = adopted
		} else {
			name = s.allocateSheet(device, index)
		}
	}

	if err := s.ensureSheet(name); err != nil {
		return Outcome{}, err
	}
	if !known {
		if err := s.recordDevice(device, name); err != nil {
			return Outcome{}, err
		}
	}

	dates, err := s.dateColumn(name)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Device: device, Sheet: name}
	rate := b.Rate()
	loggedAt := s.now()

	for _, e := range b.Entries {
		rowNum := -1
		for i, d := range dates {
			if d == e.Date {
				rowNum = i + 1
				break
			}
		}
		if rowNum < 0 {
			dates = append(dates, e.Date)
			rowNum = len(dates)
			out.RowsAdded++
		} else {
			out.RowsUpdated++
		}

		if err := s.writeRow(name, rowNum, e, rate, loggedAt); err != nil {
			return out, err
		}
	}

	if err := s.file.SaveAs(s.path); err != nil {
		return out, fmt.Errorf("saving workbook: %w", err)
	}
	return out, nil
}

// Rows returns the stored rows of a device in sheet order
func (s *Store) Rows(device string) ([]models.StoredRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok, err := s.lookupSheet(strings.TrimSpace(device))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	rows, err := s.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", name, err)
	}

	var result []models.StoredRow
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		result = append(result, parseRow(row))
	}
	return result, nil
}

// SheetOf returns the worksheet holding a device's rows
func (s *Store) SheetOf(device string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok, err := s.lookupSheet(strings.TrimSpace(device))
	return name, ok && err == nil
}

// Devices lists the devices with rows in the workbook, in the order they
// were first stored. Worksheets not in the index are listed by sheet name.
func (s *Store) Devices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, devices, err := s.deviceIndex()
	if err != nil {
		return nil
	}
	for _, name := range s.file.GetSheetList() {
		if name == s.placeholder || strings.EqualFold(name, indexSheet) || claimed(name, index) {
			continue
		}
		devices = append(devices, name)
	}
	return devices
}

// deviceIndex reads the device to worksheet mapping and the devices in
// insertion order
func (s *Store) deviceIndex() (map[string]string, []string, error) {
	index := make(map[string]string)
	if !s.hasSheet(indexSheet) {
		return index, nil, nil
	}
	rows, err := s.file.GetRows(indexSheet)
	if err != nil {
		return nil, nil, fmt.Errorf("reading device index: %w", err)
	}
	var order []string
	for i, row := range rows {
		if i == 0 || len(row) < 2 || row[0] == "" {
			continue
		}
		if _, dup := index[row[0]]; !dup {
			order = append(order, row[0])
		}
		index[row[0]] = row[1]
	}
	return index, order, nil
}

func (s *Store) lookupSheet(device string) (string, bool, error) {
	index, _, err := s.deviceIndex()
	if err != nil {
		return "", false, err
	}
	if name, ok := index[device]; ok {
		return name, true, nil
	}
	name, ok := s.unindexedSheet(device, index)
	return name, ok, nil
}

// unindexedSheet finds a worksheet named exactly after device that no
// indexed device owns, as written by hand or before the index existed
func (s *Store) unindexedSheet(device string, index map[string]string) (string, bool) {
	name := SheetName(device)
	if name == "" || name == s.placeholder || strings.EqualFold(name, indexSheet) || claimed(name, index) {
		return "", false
	}
	for _, existing := range s.file.GetSheetList() {
		if existing == name {
			return name, true
		}
	}
	return "", false
}

// allocateSheet picks a worksheet name for a new device. Sheet names are
// case-insensitive and truncated, so a name already in use gets a numeric
// suffix.
func (s *Store) allocateSheet(device string, index map[string]string) string {
	base := SheetName(device)
	name := base
	for n := 2; s.sheetTaken(name) || claimed(name, index) || strings.EqualFold(name, indexSheet); n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		r := []rune(base)
		if limit := maxSheetNameRunes - len(suffix); len(r) > limit {
			r = r[:limit]
		}
		name = string(r) + suffix
	}
	return name
}

func (s *Store) recordDevice(device, name string) error {
	if !s.hasSheet(indexSheet) {
		if _, err := s.file.NewSheet(indexSheet); err != nil {
			return fmt.Errorf("creating device index: %w", err)
		}
		if err := s.file.SetSheetRow(indexSheet, "A1", &[]any{"device", "sheet"}); err != nil {
			return fmt.Errorf("writing device index header: %w", err)
		}
		if err := s.file.SetSheetVisible(indexSheet, false); err != nil {
			return fmt.Errorf("hiding device index: %w", err)
		}
	}
	rows, err := s.file.GetRows(indexSheet)
	if err != nil {
		return fmt.Errorf("reading device index: %w", err)
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}
	if err := s.file.SetSheetRow(indexSheet, cell, &[]any{device, name}); err != nil {
		return fmt.Errorf("indexing device %s: %w", device, err)
	}
	return nil
}

func (s *Store) hasSheet(name string) bool {
	for _, existing := range s.file.GetSheetList() {
		if existing == name {
			return true
		}
	}
	return false
}

// sheetTaken reports whether a worksheet other than the placeholder already
// uses name, compared case-insensitively
func (s *Store) sheetTaken(name string) bool {
	for _, existing := range s.file.GetSheetList() {
		if existing != s.placeholder && strings.EqualFold(existing, name) {
			return true
		}
	}
	return false
}

func claimed(name string, index map[string]string) bool {
	for _, owned := range index {
		if strings.EqualFold(owned, name) {
			return true
		}
	}
	return false
}

func (s *Store) ensureSheet(name string) error {
	idx, err := s.file.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("looking up sheet %s: %w", name, err)
	}
	if idx < 0 {
		if _, err := s.file.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	rows, err := s.file.GetRows(name)
	if err != nil {
		return fmt.Errorf("reading sheet %s: %w", name, err)
	}
	if len(rows) == 0 {
		header := make([]any, len(Header))
		for i, h := range Header {
			header[i] = h
		}
		if err := s.file.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("writing header for %s: %w", name, err)
		}
	}

	if s.placeholder != "" {
		if s.placeholder != name {
			if err := s.file.DeleteSheet(s.placeholder); err != nil {
				return fmt.Errorf("removing placeholder sheet: %w", err)
			}
			s.file.SetActiveSheet(0)
		}
		s.placeholder = ""
	}
	return nil
}

// dateColumn returns the normalized date key of every row, index 0 being the
// header, so that index i is row i+1
func (s *Store) dateColumn(name string) ([]string, error) {
	rows, err := s.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", name, err)
	}
	dates := make([]string, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		dates[i] = dateKey(row[0])
	}
	return dates, nil
}

func (s *Store) writeRow(name string, rowNum int, e models.Entry, rate float64, loggedAt time.Time) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	values := []any{
		e.Date,
		e.ConsumptionTotal,
		e.ConsumptionPowerNap,
		e.DurationAwake,
		e.DurationPowerNap,
		rate,
		Cost(e.ConsumptionTotal, rate),
		loggedAt.Format(time.RFC3339),
	}
	if err := s.file.SetSheetRow(name, cell, &values); err != nil {
		return fmt.Errorf("writing row %d of %s: %w", rowNum, name, err)
	}
	return nil
}

func parseRow(row []string) models.StoredRow {
	col := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	num := func(i int) float64 {
		v, _ := strconv.ParseFloat(col(i), 64)
		return v
	}

	r := models.StoredRow{
		Entry: models.Entry{
			Date:                dateKey(col(0)),
			ConsumptionTotal:    num(1),
			ConsumptionPowerNap: num(2),
			DurationAwake:       col(3),
			DurationPowerNap:    col(4),
		},
		Rate: num(5),
		Cost: col(6),
	}
	if t, err := time.Parse(time.RFC3339, col(7)); err == nil {
		r.LoggedAt = t
	}
	return r
}

// IsClientError reports whether err was caused by the submitted payload
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidSubmission) || errors.Is(err, ErrMissingDevice)
}
