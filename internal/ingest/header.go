package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NotFound is the column index reported for an unresolved field.
const NotFound = -1

// Field is one of the canonical order fields a header row must provide.
type Field string

const (
	FieldName         Field = "order name"
	FieldAddress      Field = "address"
	FieldDeliveryTime Field = "delivery time"
)

// Columns holds the resolved column index of every canonical field.
type Columns struct {
	Name         int
	Address      int
	DeliveryTime int
}

// MissingColumnsError is returned when a header row lacks one of the canonical fields.
// No order is produced from such a table.
type MissingColumnsError struct {
	Missing []Field
	Headers []string
}

func (e *MissingColumnsError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}

	return fmt.Sprintf("missing required columns: %s", strings.Join(names, ", "))
}

// headerCandidates lists, per field and in priority order, the normalized
// substrings that identify a column.
var headerCandidates = []struct {
	field      Field
	candidates []string
}{
	{FieldName, []string{"tendonhang", "tendon", "donhang", "ten", "ordername", "order", "name"}},
	{FieldAddress, []string{"diachi", "address", "addr"}},
	{FieldDeliveryTime, []string{"thoigiangiao", "thoigian", "deliverytime", "time", "gio"}},
}

// Đ and đ carry no combining mark, so NFD leaves them intact.
var letterFolder = strings.NewReplacer("Đ", "d", "đ", "d")

// NormalizeHeader folds a raw header for comparison: diacritics removed,
// only ASCII letters and digits kept, lower-cased.
func NormalizeHeader(raw string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), raw)
	if err != nil {
		stripped = raw
	}
	stripped = letterFolder.Replace(stripped)

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return b.String()
}

// ResolveHeaders finds the column of each canonical field. Columns are scanned
// left to right and the first one containing any candidate of a field wins.
func ResolveHeaders(headers []string) (Columns, error) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	found := make(map[Field]int, len(headerCandidates))
	var missing []Field
	for _, entry := range headerCandidates {
		idx := findColumn(normalized, entry.candidates)
		if idx == NotFound {
			missing = append(missing, entry.field)
		}
		found[entry.field] = idx
	}

	cols := Columns{
		Name:         found[FieldName],
		Address:      found[FieldAddress],
		DeliveryTime: found[FieldDeliveryTime],
	}
	if len(missing) > 0 {
		return cols, &MissingColumnsError{Missing: missing, Headers: headers}
	}

	return cols, nil
}

func findColumn(normalized []string, candidates []string) int {
	for idx, header := range normalized {
		if header == "" {
			continue
		}
		for _, candidate := range candidates {
			if strings.Contains(header, candidate) {
				return idx
			}
		}
	}

	return NotFound
}
