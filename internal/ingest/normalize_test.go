package ingest_test

import (
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/UnknownOlympus/shipcolor/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOrders(t *testing.T) {
	loc := time.FixedZone("ICT", 7*60*60)
	normalizer := ingest.NewNormalizer(slog.Default(), loc)
	cols := ingest.Columns{Name: 0, Address: 1, DeliveryTime: 2}

	t.Run("blank names are skipped", func(t *testing.T) {
		table := ingest.Table{
			{"Tên Đơn Hàng", "Địa chỉ", "Thời gian giao"},
			{"DH01", "12 Nguyễn Huệ, Quận 1", "09:00"},
			{"", "34 Lê Lợi", "09:30"},
			{"   ", "56 Hai Bà Trưng", "10:00"},
			{nil, nil, nil},
			{"DH02", "78 Pasteur", "10:30"},
			{},
		}
		cols, err := ingest.ResolveHeaders(table.Headers())
		require.NoError(t, err)

		orders := normalizer.NormalizeOrders(cols, table.Rows())

		require.Len(t, orders, 2)
		assert.Equal(t, "DH01", orders[0].Name)
		assert.Equal(t, "DH02", orders[1].Name)
	})

	t.Run("address kept verbatim or missing", func(t *testing.T) {
		orders := normalizer.NormalizeOrders(cols, [][]any{
			{"A", " 12 Lê Lợi ", nil},
			{"B", "", nil},
			{"C", nil, nil},
			{"D"},
		})

		require.Len(t, orders, 4)
		require.NotNil(t, orders[0].Address)
		assert.Equal(t, " 12 Lê Lợi ", *orders[0].Address)
		assert.Nil(t, orders[1].Address)
		assert.Nil(t, orders[2].Address)
		assert.Nil(t, orders[3].Address)
		assert.Nil(t, orders[3].DeliveryTime)
	})

	t.Run("delivery time encodings", func(t *testing.T) {
		native := time.Date(2024, time.March, 5, 14, 0, 0, 0, loc)
		orders := normalizer.NormalizeOrders(cols, [][]any{
			{"serial", "x", 45292.375},
			{"native", "x", native},
			{"text", "x", " 9:30 "},
			{"blank", "x", "  "},
			{"nan", "x", math.NaN()},
			{"int", "x", 45292},
			{"serial text", "x", " 45292.375 "},
			{"overflowing serial text", "x", strings.Repeat("9", 400)},
		})

		require.Len(t, orders, 8)

		require.NotNil(t, orders[0].DeliveryTime.At)
		assert.Equal(t, time.Date(2024, time.January, 1, 9, 0, 0, 0, loc), *orders[0].DeliveryTime.At)

		require.NotNil(t, orders[1].DeliveryTime.At)
		assert.Equal(t, native, *orders[1].DeliveryTime.At)

		assert.Nil(t, orders[2].DeliveryTime.At)
		assert.Equal(t, "9:30", orders[2].DeliveryTime.Raw)

		assert.Nil(t, orders[3].DeliveryTime)

		assert.Nil(t, orders[4].DeliveryTime.At)
		assert.Equal(t, "NaN", orders[4].DeliveryTime.Raw)

		require.NotNil(t, orders[5].DeliveryTime.At)
		assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, loc), *orders[5].DeliveryTime.At)

		require.NotNil(t, orders[6].DeliveryTime.At)
		assert.Equal(t, time.Date(2024, time.January, 1, 9, 0, 0, 0, loc), *orders[6].DeliveryTime.At)

		assert.Nil(t, orders[7].DeliveryTime.At)
		assert.Equal(t, strings.Repeat("9", 400), orders[7].DeliveryTime.Raw)
	})

	t.Run("numeric names are stringified and duplicates kept", func(t *testing.T) {
		orders := normalizer.NormalizeOrders(cols, [][]any{
			{float64(1001), "x", nil},
			{float64(1001), "x", nil},
		})

		require.Len(t, orders, 2)
		assert.Equal(t, "1001", orders[0].Name)
		assert.Equal(t, "1001", orders[1].Name)
	})
}
