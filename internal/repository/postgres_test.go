package repository_test

import (
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/UnknownOlympus/shipcolor/internal/ingest"
	"github.com/UnknownOlympus/shipcolor/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fetchOrdersQuery = `
	SELECT order_name, address, delivery_time
	FROM public.delivery_orders
	WHERE is_closed = false
	ORDER BY delivery_time ASC NULLS LAST, order_id ASC
	LIMIT $1;
`

var orderColumns = []string{"order_name", "address", "delivery_time"}

func TestFetchOrderTable(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()
	limit := 500

	t.Run("error - query delivery orders", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchOrdersQuery)).
			WithArgs(limit).
			WillReturnError(assert.AnError)

		table, err := repo.FetchOrderTable(ctx, limit)

		require.Nil(t, table)
		require.ErrorContains(t, err, "failed to query delivery orders")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - rows error", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchOrdersQuery)).
			WithArgs(limit).
			WillReturnRows(
				pgxmock.NewRows(orderColumns).
					AddRow("A1", "12 Nguyễn Huệ", nil).
					RowError(1, assert.AnError),
			)

		table, err := repo.FetchOrderTable(ctx, limit)

		require.Nil(t, table)
		require.ErrorContains(t, err, "failed to read row")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - header row from column names", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)
		due := time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

		mock.ExpectQuery(regexp.QuoteMeta(fetchOrdersQuery)).
			WithArgs(limit).
			WillReturnRows(
				pgxmock.NewRows(orderColumns).
					AddRow("A1", "12 Nguyễn Huệ", due).
					AddRow("A2", nil, nil),
			)

		table, err := repo.FetchOrderTable(ctx, limit)
		require.NoError(t, err)

		assert.Equal(t, orderColumns, table.Headers())
		require.Len(t, table.Rows(), 2)
		assert.Equal(t, []any{"A1", "12 Nguyễn Huệ", due}, table.Rows()[0])
		assert.Equal(t, []any{"A2", nil, nil}, table.Rows()[1])

		cols, err := ingest.ResolveHeaders(table.Headers())
		require.NoError(t, err)
		assert.Equal(t, ingest.Columns{Name: 0, Address: 1, DeliveryTime: 2}, cols)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - no orders", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchOrdersQuery)).
			WithArgs(limit).
			WillReturnRows(pgxmock.NewRows(orderColumns))

		table, err := repo.FetchOrderTable(ctx, limit)
		require.NoError(t, err)
		assert.Equal(t, orderColumns, table.Headers())
		assert.Empty(t, table.Rows())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
