package ingest

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/shipcolor/internal/models"
)

var serialText = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)

// Normalizer turns data rows into canonical orders.
type Normalizer struct {
	log *slog.Logger
	loc *time.Location
}

// NewNormalizer creates a Normalizer. Spreadsheet serials are interpreted in loc.
func NewNormalizer(log *slog.Logger, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}

	return &Normalizer{log: log, loc: loc}
}

// NormalizeOrders converts every data row into an Order, keeping input order.
// Rows without an order name are skipped.
func (n *Normalizer) NormalizeOrders(cols Columns, rows [][]any) []*models.Order {
	orders := make([]*models.Order, 0, len(rows))

	for idx, row := range rows {
		name := cellString(cell(row, cols.Name))
		if name == "" {
			n.log.Debug("Skipping row without order name", "row", idx+1)
			continue
		}

		orders = append(orders, models.NewOrder(
			name,
			n.address(cell(row, cols.Address)),
			n.deliveryTime(cell(row, cols.DeliveryTime)),
		))
	}

	n.log.Info("Rows normalized", "rows", len(rows), "orders", len(orders))

	return orders
}

func (n *Normalizer) address(value any) *string {
	if value == nil {
		return nil
	}
	addr := fmt.Sprint(value)
	if strings.TrimSpace(addr) == "" {
		return nil
	}

	return &addr
}

func (n *Normalizer) deliveryTime(value any) *models.DeliveryTime {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return &models.DeliveryTime{At: &v}
	case *time.Time:
		if v == nil {
			return nil
		}
		at := *v
		return &models.DeliveryTime{At: &at}
	case float64:
		return n.fromSerial(v)
	case float32:
		return n.fromSerial(float64(v))
	case int:
		return n.fromSerial(float64(v))
	case int32:
		return n.fromSerial(float64(v))
	case int64:
		return n.fromSerial(float64(v))
	}

	raw := strings.TrimSpace(fmt.Sprint(value))
	if raw == "" {
		return nil
	}
	// Workbooks are read with raw values, so date cells arrive as serial text.
	if serialText.MatchString(raw) {
		if serial, err := strconv.ParseFloat(raw, 64); err == nil {
			return n.fromSerialText(serial, raw)
		}
	}

	return &models.DeliveryTime{Raw: raw}
}

func (n *Normalizer) fromSerial(serial float64) *models.DeliveryTime {
	return n.fromSerialText(serial, fmt.Sprint(serial))
}

// fromSerialText converts a serial, keeping raw as the text when it is out of range.
func (n *Normalizer) fromSerialText(serial float64, raw string) *models.DeliveryTime {
	at, err := ExcelSerialToTime(serial, n.loc)
	if err != nil {
		n.log.Debug("Keeping unconvertible serial as text", "serial", raw, "error", err)
		return &models.DeliveryTime{Raw: raw}
	}

	return &models.DeliveryTime{At: &at}
}

func cell(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}

	return row[idx]
}

func cellString(value any) string {
	if value == nil {
		return ""
	}

	return strings.TrimSpace(fmt.Sprint(value))
}
