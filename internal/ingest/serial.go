package ingest

import (
	"errors"
	"math"
	"time"
)

const secondsPerDay = 86400

// ErrInvalidSerial is returned for NaN or infinite spreadsheet serials.
var ErrInvalidSerial = errors.New("invalid spreadsheet date serial")

// ExcelSerialToTime converts a spreadsheet date serial (days since 1899-12-30,
// fractional part = time of day) into a time in loc. The time of day is
// rounded to the nearest second.
func ExcelSerialToTime(serial float64, loc *time.Location) (time.Time, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return time.Time{}, ErrInvalidSerial
	}
	if loc == nil {
		loc = time.Local
	}

	days := math.Floor(serial)
	seconds := int(math.Round((serial - days) * secondsPerDay))

	return time.Date(1899, time.December, 30+int(days), 0, 0, seconds, 0, loc), nil
}
