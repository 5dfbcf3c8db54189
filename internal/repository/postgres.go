package repository

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/shipcolor/internal/ingest"
)

// FetchOrderTable reads open delivery orders as a raw table: the first row holds
// the column names, the following rows the values as pgx decoded them.
// The column names go through the same header resolution as spreadsheet headers.
//
// Parameters:
// - ctx: The context for the operation, allowing for cancellation and timeout.
// - limit: The maximum number of orders to retrieve.
func (r *Repository) FetchOrderTable(ctx context.Context, limit int) (ingest.Table, error) {
	query := `
		SELECT order_name, address, delivery_time
		FROM public.delivery_orders
		WHERE is_closed = false
		ORDER BY delivery_time ASC NULLS LAST, order_id ASC
		LIMIT $1;
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery orders: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]any, len(fields))
	for i, field := range fields {
		header[i] = field.Name
	}
	table := ingest.Table{header}

	for rows.Next() {
		values, errValues := rows.Values()
		if errValues != nil {
			return nil, fmt.Errorf("failed to read delivery order values: %w", errValues)
		}
		r.log.DebugContext(ctx, "Delivery order received", "values", values)
		table = append(table, values)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return table, nil
}
