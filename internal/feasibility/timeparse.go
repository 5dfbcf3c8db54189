package feasibility

import (
	"strings"
	"time"

	"github.com/UnknownOlympus/shipcolor/internal/models"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// EnsureTime returns the delivery timestamp of an order. Native values are used
// directly; text is read as a full timestamp or as "H:MM" on the current day.
func (e *Engine) EnsureTime(dt *models.DeliveryTime) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.At != nil {
		return *dt.At, true
	}

	raw := strings.TrimSpace(dt.Raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, e.cfg.Location); err == nil {
			return ts, true
		}
	}

	return e.clockTime(raw)
}

func (e *Engine) clockTime(raw string) (time.Time, bool) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 {
		return time.Time{}, false
	}

	hour, okHour := leadingInt(parts[0])
	minute, okMinute := leadingInt(parts[1])
	if !okHour || !okMinute || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	now := e.cfg.Now().In(e.cfg.Location)

	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, e.cfg.Location), true
}

// leadingInt reads the digits at the start of s, ignoring leading blanks.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t")
	value, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' || digits == 4 {
			break
		}
		value = value*10 + int(r-'0')
		digits++
	}

	return value, digits > 0
}
