package models

// WarningKind classifies a recoverable, per-order data-quality problem.
type WarningKind string

const (
	// WarningUnresolvedAddress: geocoding failed and the fallback point was used.
	WarningUnresolvedAddress WarningKind = "unresolved_address"
	// WarningMissingAddress: the order has no address at all.
	WarningMissingAddress WarningKind = "missing_address"
	// WarningMissingDeliveryTime: the order has no parseable delivery time
	// and is left out of time-based conflict checks.
	WarningMissingDeliveryTime WarningKind = "missing_delivery_time"
)

// Warning is a non-fatal condition attached to one order of a build.
type Warning struct {
	Kind   WarningKind `json:"kind"`
	Index  int         `json:"index"`
	Order  string      `json:"order"`
	Detail string      `json:"detail,omitempty"`
}
