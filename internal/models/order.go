package models

import (
	"strings"
	"sync"
	"time"

	goccy_json "github.com/goccy/go-json"
)

// DeliveryTime is the requested delivery moment as it was read from the source.
// At is set for spreadsheet serials and native date-time cells. Raw keeps the
// trimmed cell text of anything else, to be parsed when feasibility is checked.
type DeliveryTime struct {
	At  *time.Time `json:"at,omitempty"`
	Raw string     `json:"raw,omitempty"`
}

// Order is one delivery request. Name is always non-empty.
// A nil Address or DeliveryTime means the source cell was missing.
type Order struct {
	Name         string        `json:"name"`
	Address      *string       `json:"address,omitempty"`
	DeliveryTime *DeliveryTime `json:"delivery_time,omitempty"`

	mu     sync.RWMutex
	coords *Coordinates
	source CoordinateSource
}

// NewOrder creates an order without coordinates.
func NewOrder(name string, address *string, deliveryTime *DeliveryTime) *Order {
	return &Order{Name: name, Address: address, DeliveryTime: deliveryTime}
}

// SetCoordinates stores the coordinates of the order. Coordinates are
// write-once: it returns false and keeps the old value if they were already set.
func (o *Order) SetCoordinates(coords Coordinates, source CoordinateSource) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.coords != nil {
		return false
	}
	o.coords = &coords
	o.source = source

	return true
}

// Coordinates returns a copy of the order coordinates, or nil when unset.
func (o *Order) Coordinates() *Coordinates {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.coords == nil {
		return nil
	}
	c := *o.coords

	return &c
}

// CoordinateSource reports how the coordinates were obtained.
func (o *Order) CoordinateSource() CoordinateSource {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.source
}

// HasAddress reports whether the order carries a usable address.
func (o *Order) HasAddress() bool {
	return o.Address != nil && strings.TrimSpace(*o.Address) != ""
}

// MarshalJSON encodes the order together with its coordinates, if any.
func (o *Order) MarshalJSON() ([]byte, error) {
	type view struct {
		Name         string           `json:"name"`
		Address      *string          `json:"address,omitempty"`
		DeliveryTime *DeliveryTime    `json:"delivery_time,omitempty"`
		Coordinates  *Coordinates     `json:"coordinates,omitempty"`
		Source       CoordinateSource `json:"coordinate_source,omitempty"`
	}

	return goccy_json.Marshal(view{
		Name:         o.Name,
		Address:      o.Address,
		DeliveryTime: o.DeliveryTime,
		Coordinates:  o.Coordinates(),
		Source:       o.CoordinateSource(),
	})
}
