package sheet

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jgoulah/energylog/pkg/models"
)

var dateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01-02-06",
}

// NormalizeDate converts a stored or submitted date to YYYY-MM-DD. It accepts
// text dates in common layouts and Excel serial day numbers. The second
// result is false when the value is not recognizable as a date.
func NormalizeDate(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(models.DateLayout), true
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t.Format(models.DateLayout), true
		}
	}
	return "", false
}

// dateKey returns the comparison key for a date cell. Unrecognized values
// compare as their trimmed text.
func dateKey(v string) string {
	if d, ok := NormalizeDate(v); ok {
		return d
	}
	return strings.TrimSpace(v)
}
