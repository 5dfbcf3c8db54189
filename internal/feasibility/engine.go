// Package feasibility decides whether one vehicle can serve two time-stamped,
// geocoded orders one after the other.
package feasibility

import (
	"math"
	"time"

	"github.com/UnknownOlympus/shipcolor/internal/models"
)

const earthRadiusKm = 6371.0

// Travel model defaults. Speed and route factor also replace non-positive values
// in NewEngine; a zero service time is legal and kept.
const (
	DefaultServiceTime = 15 * time.Minute
	DefaultSpeedKmh    = 30.0
	DefaultRouteFactor = 1.1
)

// Config holds the travel model parameters.
type Config struct {
	ServiceTime time.Duration    // on-site handling time at the first stop
	SpeedKmh    float64          // average vehicle speed
	RouteFactor float64          // real route length over straight-line distance
	Location    *time.Location   // zone for "HH:MM" delivery times
	Now         func() time.Time // clock giving the calendar day for "HH:MM" times
}

// Engine evaluates pairs of orders. It only reads orders and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// Verdict is the detailed outcome of checking one pair of orders.
type Verdict struct {
	Evaluated   bool          // false when coordinates or a parseable time are missing
	DistanceKm  float64       // great-circle distance
	Travel      time.Duration // estimated driving time
	RequiredGap time.Duration // service time plus travel time
	AToB        bool          // A then B meets both delivery times
	BToA        bool          // B then A meets both delivery times
}

// Conflict reports whether no single vehicle can serve both orders.
func (v Verdict) Conflict() bool {
	return v.Evaluated && !v.AToB && !v.BToA
}

// DefaultConfig returns the default travel model in the local zone.
func DefaultConfig() Config {
	return Config{
		ServiceTime: DefaultServiceTime,
		SpeedKmh:    DefaultSpeedKmh,
		RouteFactor: DefaultRouteFactor,
		Location:    time.Local,
		Now:         time.Now,
	}
}

// NewEngine creates an Engine. Non-positive speed or route factor and a nil
// Location or Now are replaced with defaults; a negative service time counts as zero.
func NewEngine(cfg Config) *Engine {
	if cfg.ServiceTime < 0 {
		cfg.ServiceTime = 0
	}
	if cfg.SpeedKmh <= 0 {
		cfg.SpeedKmh = DefaultSpeedKmh
	}
	if cfg.RouteFactor <= 0 {
		cfg.RouteFactor = DefaultRouteFactor
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{cfg: cfg}
}

// Pinned returns a copy of the engine whose clock always reports at,
// so every pair of one build resolves "HH:MM" against the same day.
func (e *Engine) Pinned(at time.Time) *Engine {
	cfg := e.cfg
	cfg.Now = func() time.Time { return at }

	return &Engine{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Haversine returns the great-circle distance between two points in kilometres.
func Haversine(a, b models.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	// rounding can leave h just outside [0, 1] near antipodes
	h = math.Min(1, math.Max(0, h))

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// TravelTime converts a straight-line distance into whole driving minutes.
func (e *Engine) TravelTime(distanceKm float64) time.Duration {
	minutes := math.Ceil(distanceKm / e.cfg.SpeedKmh * 60 * e.cfg.RouteFactor)

	return time.Duration(minutes) * time.Minute
}

// Check evaluates both visiting orders of a pair.
func (e *Engine) Check(a, b *models.Order) Verdict {
	coordsA, coordsB := a.Coordinates(), b.Coordinates()
	if coordsA == nil || coordsB == nil {
		return Verdict{}
	}
	timeA, okA := e.EnsureTime(a.DeliveryTime)
	timeB, okB := e.EnsureTime(b.DeliveryTime)
	if !okA || !okB {
		return Verdict{}
	}

	distance := Haversine(*coordsA, *coordsB)
	travel := e.TravelTime(distance)
	gap := e.cfg.ServiceTime + travel

	return Verdict{
		Evaluated:   true,
		DistanceKm:  distance,
		Travel:      travel,
		RequiredGap: gap,
		AToB:        !timeA.Add(gap).After(timeB),
		BToA:        !timeB.Add(gap).After(timeA),
	}
}

// Conflicts reports whether a and b cannot be served by the same vehicle.
// Pairs with missing coordinates or delivery times never conflict.
func (e *Engine) Conflicts(a, b *models.Order) bool {
	return e.Check(a, b).Conflict()
}
