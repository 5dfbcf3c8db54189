package conflict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/UnknownOlympus/shipcolor/internal/feasibility"
	"github.com/UnknownOlympus/shipcolor/internal/metrics"
	"github.com/UnknownOlympus/shipcolor/internal/models"
	"github.com/UnknownOlympus/shipcolor/internal/service"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoOrders is returned when a build is requested for an empty order list.
var ErrNoOrders = errors.New("no orders to build a conflict graph from")

// Geocoder gives coordinates to orders that have none.
type Geocoder interface {
	ResolveOrders(ctx context.Context, orders []*models.Order) (service.ResolveStats, error)
}

// Builder turns normalised orders into a conflict graph.
type Builder struct {
	log      *slog.Logger
	geocoder Geocoder
	engine   *feasibility.Engine
	metrics  *metrics.Metrics
	workers  int
}

// NewBuilder creates a Builder. Pair evaluation runs on at most workers
// goroutines; a non-positive value means one per CPU.
func NewBuilder(
	log *slog.Logger,
	geocoder Geocoder,
	engine *feasibility.Engine,
	metrics *metrics.Metrics,
	workers int,
) *Builder {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Builder{
		log:      log,
		geocoder: geocoder,
		engine:   engine,
		metrics:  metrics,
		workers:  workers,
	}
}

// Build geocodes the orders and evaluates every unordered pair once.
// Geocoding problems never fail a build, they end up in Graph.Warnings.
// A cancelled context aborts the build and no partial graph is returned.
func (b *Builder) Build(ctx context.Context, orders []*models.Order) (*Graph, error) {
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}

	startTime := time.Now()
	builtAt := b.engine.Config().Now()
	engine := b.engine.Pinned(builtAt)

	if _, err := b.geocoder.ResolveOrders(ctx, orders); err != nil {
		return nil, fmt.Errorf("failed to geocode orders: %w", err)
	}

	warnings := collectWarnings(engine, orders)

	n := len(orders)
	matrix := newMatrix(n)

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(b.workers)
	for i := range n {
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row := matrix[i]
			for j := i + 1; j < n; j++ {
				row[j] = engine.Conflicts(orders[i], orders[j])
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, fmt.Errorf("failed to evaluate order pairs: %w", err)
	}

	var conflicts []Pair
	for i := range n {
		for j := i + 1; j < n; j++ {
			if !matrix[i][j] {
				continue
			}
			matrix[j][i] = true
			conflicts = append(conflicts, Pair{A: i, B: j, NameA: orders[i].Name, NameB: orders[j].Name})
		}
	}

	graph := &Graph{
		ID:        uuid.New(),
		BuiltAt:   builtAt,
		Orders:    orders,
		Matrix:    matrix,
		Conflicts: conflicts,
		EdgeCount: len(conflicts),
		Warnings:  warnings,
	}

	b.metrics.PairsEvaluated.Add(float64(n * (n - 1) / 2))
	b.metrics.ConflictEdges.Set(float64(graph.EdgeCount))
	b.metrics.BuildSeconds.Observe(time.Since(startTime).Seconds())

	b.log.InfoContext(ctx, "Conflict graph built",
		"id", graph.ID,
		"orders", n,
		"edges", graph.EdgeCount,
		"warnings", len(warnings),
		"duration", time.Since(startTime),
	)

	return graph, nil
}

func collectWarnings(engine *feasibility.Engine, orders []*models.Order) []models.Warning {
	var warnings []models.Warning
	for idx, order := range orders {
		if !order.HasAddress() {
			warnings = append(warnings, models.Warning{
				Kind:  models.WarningMissingAddress,
				Index: idx,
				Order: order.Name,
			})
		} else if order.CoordinateSource() == models.SourceFallback {
			warnings = append(warnings, models.Warning{
				Kind:   models.WarningUnresolvedAddress,
				Index:  idx,
				Order:  order.Name,
				Detail: *order.Address,
			})
		}

		if _, ok := engine.EnsureTime(order.DeliveryTime); !ok {
			detail := "no delivery time"
			if order.DeliveryTime != nil {
				detail = fmt.Sprintf("unparseable delivery time %q", order.DeliveryTime.Raw)
			}
			warnings = append(warnings, models.Warning{
				Kind:   models.WarningMissingDeliveryTime,
				Index:  idx,
				Order:  order.Name,
				Detail: detail,
			})
		}
	}

	return warnings
}
