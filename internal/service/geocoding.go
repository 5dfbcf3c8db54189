package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/UnknownOlympus/shipcolor/internal/geocoding"
	"github.com/UnknownOlympus/shipcolor/internal/metrics"
	"github.com/UnknownOlympus/shipcolor/internal/models"
	"golang.org/x/time/rate"
)

// GeocodingService resolves order addresses one at a time, keeping a minimum
// interval between consecutive provider requests.
type GeocodingService struct {
	log           *slog.Logger       // Logger for logging service activities
	provider      geocoding.Provider // Geocoding provider for external geocoding services
	providerName  string             // Name of the provider for metrics labeling
	metrics       *metrics.Metrics   // Metrics for tracking service performance
	limiter       *rate.Limiter      // Spaces out provider requests
	fallback      models.Coordinates // Used when an address cannot be resolved
	addressPrefix string             // Address prefix for more accurate geocoding (country, city, etc.)
}

// ResolveStats summarises one ResolveOrders run.
type ResolveStats struct {
	Requested int // provider lookups issued
	Resolved  int // orders that got provider coordinates
	Fallback  int // orders that got the fallback coordinate
	Skipped   int // orders that already had coordinates
}

// NewGeocodingService creates a new instance of GeocodingService.
// delay is the minimum time between two provider requests; zero disables throttling.
func NewGeocodingService(
	log *slog.Logger,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
	delay time.Duration,
	fallback models.Coordinates,
	addressPrefix string,
) *GeocodingService {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}

	return &GeocodingService{
		log:           log,
		provider:      provider,
		providerName:  providerName,
		metrics:       metrics,
		limiter:       rate.NewLimiter(limit, 1),
		fallback:      fallback,
		addressPrefix: addressPrefix,
	}
}

// Fallback returns the coordinate substituted for unresolved addresses.
func (gs *GeocodingService) Fallback() models.Coordinates {
	return gs.fallback
}

// Resolve looks up one address. It returns nil without a request for a missing
// or blank address, and nil when the provider fails or finds nothing.
// The caller is responsible for spacing out calls.
func (gs *GeocodingService) Resolve(ctx context.Context, address *string) *models.Coordinates {
	if address == nil {
		return nil
	}
	query := gs.prepareQuery(*address)
	if query == "" {
		return nil
	}

	startTime := time.Now()
	coords, err := gs.provider.Geocode(ctx, query)
	gs.metrics.RequestSeconds.WithLabelValues(gs.providerName).Observe(time.Since(startTime).Seconds())

	switch {
	case err == nil && coords != nil:
		gs.metrics.GeocodeLookups.WithLabelValues(metrics.StatusSuccess).Inc()
		return coords
	case isEmptyResult(err) || (err == nil && coords == nil):
		gs.log.WarnContext(ctx, "Address not found", "address", query)
		gs.metrics.GeocodeLookups.WithLabelValues(metrics.StatusEmpty).Inc()
	default:
		gs.log.ErrorContext(ctx, "Failed to geocode", "address", query, "error", err)
		gs.metrics.GeocodeLookups.WithLabelValues(metrics.StatusFailure).Inc()
	}

	return nil
}

// ResolveOrders gives coordinates to every order that has none yet. Orders are
// queued and drained in input order on the calling goroutine; the rate limiter keeps the configured
// delay between consecutive provider requests. Unresolved orders get the
// fallback coordinate. A cancelled context stops the run between two orders
// and its error is returned.
func (gs *GeocodingService) ResolveOrders(ctx context.Context, orders []*models.Order) (ResolveStats, error) {
	jobs := make(chan *models.Order, len(orders))
	for _, order := range orders {
		jobs <- order
	}
	close(jobs)

	stats, err := gs.worker(ctx, jobs)

	gs.log.InfoContext(ctx, "Geocoding finished",
		"orders", len(orders),
		"requested", stats.Requested,
		"resolved", stats.Resolved,
		"fallback", stats.Fallback,
		"skipped", stats.Skipped,
	)

	return stats, err
}

func (gs *GeocodingService) worker(ctx context.Context, jobs <-chan *models.Order) (ResolveStats, error) {
	var stats ResolveStats

	for order := range jobs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if order.Coordinates() != nil {
			stats.Skipped++
			gs.metrics.GeocodeLookups.WithLabelValues(metrics.StatusSkipped).Inc()
			continue
		}

		var coords *models.Coordinates
		if order.HasAddress() {
			if err := gs.limiter.Wait(ctx); err != nil {
				return stats, err
			}
			gs.log.DebugContext(ctx, "Geocoding order", "order", order.Name)
			stats.Requested++
			coords = gs.Resolve(ctx, order.Address)
		}

		if coords != nil {
			order.SetCoordinates(*coords, models.SourceGeocoded)
			stats.Resolved++
			continue
		}

		if err := ctx.Err(); err != nil {
			return stats, err
		}
		order.SetCoordinates(gs.fallback, models.SourceFallback)
		gs.metrics.FallbackCoordinates.Inc()
		stats.Fallback++
	}

	return stats, nil
}

func (gs *GeocodingService) prepareQuery(address string) string {
	query := strings.TrimSpace(strings.ReplaceAll(address, "/", " "))
	if query == "" {
		return ""
	}

	return gs.addressPrefix + query
}

func isEmptyResult(err error) bool {
	return errors.Is(err, geocoding.ErrNominatimEmptyResponse) || errors.Is(err, geocoding.ErrEmptyResponse)
}
