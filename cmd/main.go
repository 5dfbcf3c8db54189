package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/shipcolor/internal/config"
	"github.com/UnknownOlympus/shipcolor/internal/conflict"
	"github.com/UnknownOlympus/shipcolor/internal/feasibility"
	"github.com/UnknownOlympus/shipcolor/internal/geocoding"
	"github.com/UnknownOlympus/shipcolor/internal/handoff"
	"github.com/UnknownOlympus/shipcolor/internal/ingest"
	"github.com/UnknownOlympus/shipcolor/internal/metrics"
	"github.com/UnknownOlympus/shipcolor/internal/repository"
	"github.com/UnknownOlympus/shipcolor/internal/service"
	goccy_json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// Google Maps requests per second, enforced by the maps client.
const googleRateLimit = 50

var errNoSource = errors.New("either --input or --from-db is required")

type options struct {
	input   string
	sheet   string
	fromDB  bool
	publish bool
}

// report is what gets written to stdout.
type report struct {
	Summary conflict.Summary `json:"summary"`
	Graph   *conflict.Graph  `json:"graph"`
}

// main is the entry point of the application.
func main() {
	var opts options
	pflag.StringVarP(&opts.input, "input", "i", "", "CSV or Excel file with delivery orders")
	pflag.StringVar(&opts.sheet, "sheet", "", "workbook sheet to read (default: first sheet)")
	pflag.BoolVar(&opts.fromDB, "from-db", false, "read open orders from PostgreSQL instead of a file")
	pflag.BoolVar(&opts.publish, "publish", false, "hand the graph off to the Redis channel")
	pflag.Parse()

	// Create a context that will be canceled when an interrupt signal is received.
	// An interrupted build is abandoned.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment. Stdout is reserved for the report.
	logger := setupLogger(cfg.Env, os.Stderr)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	if err := run(ctx, logger, cfg, reg, appMetrics, opts, os.Stdout); err != nil {
		logger.ErrorContext(ctx, "Build failed", "error", err)
		stop()
		os.Exit(1)
	}

	if cfg.HealthPort > 0 {
		logger.InfoContext(ctx, "Serving metrics until interrupted. Press Ctrl+C to stop.")
		<-ctx.Done()
	}

	logger.InfoContext(ctx, "Application stopped gracefully.")
}

func run(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	reg *prometheus.Registry,
	appMetrics *metrics.Metrics,
	opts options,
	out io.Writer,
) error {
	var (
		table ingest.Table
		dtb   repository.Database
		err   error
	)

	switch {
	case opts.fromDB:
		pool, errDB := repository.NewDatabase(
			ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if errDB != nil {
			return fmt.Errorf("failed to connect to DB: %w", errDB)
		}
		defer pool.Close()
		dtb = pool

		table, err = repository.NewRepository(pool, logger).FetchOrderTable(ctx, cfg.Source.QueryLimit)
	case opts.input != "":
		table, err = ingest.ReadFile(opts.input, opts.sheet)
	default:
		return errNoSource
	}
	if err != nil {
		return fmt.Errorf("failed to load orders: %w", err)
	}

	if cfg.HealthPort > 0 {
		// Start the monitoring server in a goroutine so the build runs alongside it.
		go startMonitoringServer(ctx, logger, reg, dtb, cfg.HealthPort)
	}

	cols, err := ingest.ResolveHeaders(table.Headers())
	if err != nil {
		return err
	}
	orders := ingest.NewNormalizer(logger, cfg.Feasibility.Location).NormalizeOrders(cols, table.Rows())

	summary := conflict.Summarize(orders)
	logger.InfoContext(ctx, "Orders loaded",
		"orders", summary.Total,
		"time_clashes", len(summary.TimeClashes),
		"missing_address", len(summary.MissingAddress),
	)

	builder, err := newBuilder(logger, cfg, appMetrics)
	if err != nil {
		return err
	}

	graph, err := builder.Build(ctx, orders)
	if err != nil {
		return err
	}

	encoder := goccy_json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err = encoder.Encode(report{Summary: summary, Graph: graph}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if opts.publish {
		return publish(ctx, logger, cfg, graph)
	}

	return nil
}

// newBuilder wires the geocoding provider, the throttled geocoding service and
// the feasibility engine into a conflict graph builder.
func newBuilder(logger *slog.Logger, cfg *config.Config, appMetrics *metrics.Metrics) (*conflict.Builder, error) {
	geoProvider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Provider.Type),
		APIKey:    cfg.Provider.APIKey,
		RateLimit: googleRateLimit,
		BaseURL:   cfg.Provider.URL,
		UserAgent: cfg.Provider.UserAgent,
		Timeout:   cfg.Geocoder.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding provider: %w", err)
	}

	logger.Info("Geocoding provider initialized", "type", cfg.Provider.Type)

	geoService := service.NewGeocodingService(
		logger,
		geoProvider,
		cfg.Provider.Type, // Provider name for metrics
		appMetrics,
		cfg.Geocoder.Delay,
		cfg.Fallback(),
		cfg.Geocoder.AddressPrefix,
	)

	engine := feasibility.NewEngine(feasibility.Config{
		ServiceTime: cfg.Feasibility.ServiceTime,
		SpeedKmh:    cfg.Feasibility.SpeedKmh,
		RouteFactor: cfg.Feasibility.RouteFactor,
		Location:    cfg.Feasibility.Location,
	})

	return conflict.NewBuilder(logger, geoService, engine, appMetrics, cfg.Feasibility.Workers), nil
}

func publish(ctx context.Context, logger *slog.Logger, cfg *config.Config, graph *conflict.Graph) error {
	if cfg.Redis.URL == "" {
		return errors.New("--publish needs redis.url to be configured")
	}

	publisher, err := handoff.NewRedisPublisher(logger, cfg.Redis.URL, cfg.Redis.Channel)
	if err != nil {
		return err
	}
	defer publisher.Close()

	return publisher.Publish(ctx, graph)
}

// startMonitoringServer starts an HTTP server that provides health check and metrics endpoints.
// It listens on the specified port and logs the server's status and any errors encountered.
//
// Parameters:
// - ctx: A context.Context for managing cancellation and timeouts.
// - log: A logger for logging server events and errors.
// - reg: A registry with Prometheus collectors.
// - dtb: The order database to ping, nil when orders come from a file.
// - port: The port number on which the server will listen.
func startMonitoringServer(
	ctx context.Context,
	log *slog.Logger,
	reg *prometheus.Registry,
	dtb repository.Database,
	port int,
) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, req *http.Request) {
		log.DebugContext(ctx, "Performing health checks...")
		status, body := http.StatusOK, "OK"
		if dtb != nil {
			if err := dtb.Ping(req.Context()); err != nil {
				status, body = http.StatusServiceUnavailable, "DB ping failed"
			}
		}
		writer.WriteHeader(status)
		_, err := writer.Write([]byte(body))
		if err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}

		log.DebugContext(ctx, "Health checks completed", "status", status)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.InfoContext(ctx, "Starting monitoring server", "port", port)
	readTimeout := 5
	writeTimeout := 10
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.ErrorContext(ctx, "Monitoring server failed", "error", err)
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string, out io.Writer) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(out, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				AddSource:   false,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{
				Level:       slog.LevelError,
				AddSource:   false,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}

	return a
}
