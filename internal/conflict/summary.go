package conflict

import (
	"strings"
	"time"

	"github.com/UnknownOlympus/shipcolor/internal/models"
	"github.com/samber/lo"
)

// TimeClash lists orders requested for exactly the same delivery time.
type TimeClash struct {
	Key    string   `json:"key"`
	Orders []string `json:"orders"`
}

// Summary is a quick data check done before any geocoding.
type Summary struct {
	Total          int         `json:"total"`
	TimeClashes    []TimeClash `json:"time_clashes"`
	MissingAddress []string    `json:"missing_address"`
}

// Summarize groups orders sharing a delivery-time key and lists orders
// without an address. Groups keep the order of their first member.
func Summarize(orders []*models.Order) Summary {
	timed := lo.Filter(orders, func(o *models.Order, _ int) bool {
		return timeKey(o) != ""
	})
	groups := lo.GroupBy(timed, timeKey)
	keys := lo.Uniq(lo.Map(timed, func(o *models.Order, _ int) string {
		return timeKey(o)
	}))

	clashes := lo.FilterMap(keys, func(key string, _ int) (TimeClash, bool) {
		members := groups[key]
		return TimeClash{Key: key, Orders: orderNames(members)}, len(members) > 1
	})

	missing := lo.Reject(orders, func(o *models.Order, _ int) bool {
		return o.HasAddress()
	})

	return Summary{
		Total:          len(orders),
		TimeClashes:    clashes,
		MissingAddress: orderNames(missing),
	}
}

func timeKey(o *models.Order) string {
	if o.DeliveryTime == nil {
		return ""
	}
	if o.DeliveryTime.At != nil {
		return o.DeliveryTime.At.UTC().Format(time.RFC3339)
	}

	return strings.TrimSpace(o.DeliveryTime.Raw)
}

func orderNames(orders []*models.Order) []string {
	return lo.Map(orders, func(o *models.Order, _ int) string {
		return o.Name
	})
}
