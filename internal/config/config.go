package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // delivery time zones must resolve on hosts without zoneinfo

	"github.com/UnknownOlympus/shipcolor/internal/models"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the conflict graph builder.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - HealthPort: The port for the monitoring server, 0 disables it.
// - Provider: Which geocoding provider to call and how to reach it.
// - Geocoder: Throttling, timeouts and fallback point of the geocoding step.
// - Feasibility: Travel model used to decide conflicts.
// - Database: Configuration settings for the PostgreSQL order source.
// - Source: Limits for reading orders from the database.
// - Redis: Where finished graphs are handed off.
type Config struct {
	Env         string            `yaml:"env"`         // Env is the current environment: local, development, production.
	HealthPort  int               `yaml:"health_port"` // HealthPort is the monitoring server port.
	Provider    ProviderConfig    `yaml:"provider"`
	Geocoder    GeocoderConfig    `yaml:"geocoder"`
	Feasibility FeasibilityConfig `yaml:"feasibility"`
	Database    PostgresConfig    `yaml:"postgres"` // Database holds the postgres database configuration
	Source      SourceConfig      `yaml:"source"`
	Redis       RedisConfig       `yaml:"redis"`
}

// ProviderConfig selects the geocoding provider.
type ProviderConfig struct {
	Type      string `yaml:"type"`       // Type is google or nominatim.
	APIKey    string `yaml:"key"`        // APIKey is required for google.
	URL       string `yaml:"url"`        // URL overrides the public Nominatim endpoint.
	UserAgent string `yaml:"user_agent"` // UserAgent overrides the Nominatim User-Agent.
}

// GeocoderConfig controls the geocoding step of a build.
type GeocoderConfig struct {
	Delay         time.Duration `yaml:"delay"`          // Minimum time between two lookups.
	Timeout       time.Duration `yaml:"timeout"`        // HTTP timeout of a single lookup.
	AddressPrefix string        `yaml:"address_prefix"` // Address prefix for more accurate geocoding
	FallbackLat   float64       `yaml:"fallback_lat"`
	FallbackLon   float64       `yaml:"fallback_lon"`
}

// FeasibilityConfig holds the travel model.
type FeasibilityConfig struct {
	ServiceTime time.Duration  `yaml:"service_time"`
	SpeedKmh    float64        `yaml:"speed_kmh"`
	RouteFactor float64        `yaml:"route_factor"`
	Location    *time.Location `yaml:"timezone"`
	Workers     int            `yaml:"workers"` // Pair evaluation goroutines, 0 means one per CPU.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`     // Host is the database server address.
	Port     string `yaml:"port"`     // Port is the database server port.
	User     string `yaml:"user"`     // User is the database user.
	Password string `yaml:"password"` // Password is the database user's password.
	Name     string `yaml:"db_name"`  // Name is the name of the database.
}

// SourceConfig limits reads from the order table.
type SourceConfig struct {
	QueryLimit int `yaml:"query_limit"`
}

// RedisConfig points at the handoff channel.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

// Fallback returns the point used for addresses that cannot be geocoded.
func (c *Config) Fallback() models.Coordinates {
	return models.Coordinates{Latitude: c.Geocoder.FallbackLat, Longitude: c.Geocoder.FallbackLon}
}

// MustLoad reads the configuration from the environment (SHIPCOLOR_* and DB_*
// variables, optionally seeded from .env) and from the YAML file named by
// SHIPCOLOR_CONFIG. Environment values win over the file.
func MustLoad() *Config {
	_ = godotenv.Load()

	vpr := viper.New()
	vpr.SetEnvPrefix("SHIPCOLOR")
	vpr.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vpr.AutomaticEnv()
	setDefaults(vpr)

	_ = vpr.BindEnv("postgres.host", "DB_HOST")
	_ = vpr.BindEnv("postgres.port", "DB_PORT")
	_ = vpr.BindEnv("postgres.user", "DB_USERNAME")
	_ = vpr.BindEnv("postgres.password", "DB_PASSWORD")
	_ = vpr.BindEnv("postgres.db_name", "DB_NAME")

	if path := os.Getenv("SHIPCOLOR_CONFIG"); path != "" {
		vpr.SetConfigFile(path)
		if err := vpr.ReadInConfig(); err != nil {
			panic("failed to read configuration file")
		}
	}

	healthPort, err := strconv.Atoi(vpr.GetString("health_port"))
	if err != nil {
		panic("failed to parse port for monitoring server from configuration")
	}

	delay, err := time.ParseDuration(vpr.GetString("geocoder.delay"))
	if err != nil {
		panic("failed to parse geocoder delay from configuration")
	}

	timeout, err := time.ParseDuration(vpr.GetString("geocoder.timeout"))
	if err != nil {
		panic("failed to parse geocoder timeout from configuration")
	}

	fallbackLat, errLat := strconv.ParseFloat(vpr.GetString("geocoder.fallback_lat"), 64)
	fallbackLon, errLon := strconv.ParseFloat(vpr.GetString("geocoder.fallback_lon"), 64)
	if errLat != nil || errLon != nil {
		panic("failed to parse fallback coordinates from configuration")
	}

	serviceTime, err := time.ParseDuration(vpr.GetString("feasibility.service_time"))
	if err != nil {
		panic("failed to parse service time from configuration")
	}

	speed, errSpeed := strconv.ParseFloat(vpr.GetString("feasibility.speed_kmh"), 64)
	factor, errFactor := strconv.ParseFloat(vpr.GetString("feasibility.route_factor"), 64)
	if errSpeed != nil || errFactor != nil {
		panic("failed to parse travel model from configuration")
	}

	location, err := time.LoadLocation(vpr.GetString("feasibility.timezone"))
	if err != nil {
		panic("failed to load time zone from configuration")
	}

	workers, err := strconv.Atoi(vpr.GetString("feasibility.workers"))
	if err != nil {
		panic("failed to parse workers from configuration, must be an integer types")
	}

	queryLimit, err := strconv.Atoi(vpr.GetString("source.query_limit"))
	if err != nil {
		panic("failed to parse query limit from configuration")
	}

	return &Config{
		Env:        vpr.GetString("env"),
		HealthPort: healthPort,
		Provider: ProviderConfig{
			Type:      vpr.GetString("provider.type"),
			APIKey:    vpr.GetString("provider.key"),
			URL:       vpr.GetString("provider.url"),
			UserAgent: vpr.GetString("provider.user_agent"),
		},
		Geocoder: GeocoderConfig{
			Delay:         delay,
			Timeout:       timeout,
			AddressPrefix: vpr.GetString("geocoder.address_prefix"),
			FallbackLat:   fallbackLat,
			FallbackLon:   fallbackLon,
		},
		Feasibility: FeasibilityConfig{
			ServiceTime: serviceTime,
			SpeedKmh:    speed,
			RouteFactor: factor,
			Location:    location,
			Workers:     workers,
		},
		Database: PostgresConfig{
			Host:     vpr.GetString("postgres.host"),
			Port:     vpr.GetString("postgres.port"),
			User:     vpr.GetString("postgres.user"),
			Password: vpr.GetString("postgres.password"),
			Name:     vpr.GetString("postgres.db_name"),
		},
		Source: SourceConfig{QueryLimit: queryLimit},
		Redis: RedisConfig{
			URL:     vpr.GetString("redis.url"),
			Channel: vpr.GetString("redis.channel"),
		},
	}
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.Provider.Type {
	case "nominatim":
	case "google":
		if c.Provider.APIKey == "" {
			result = multierror.Append(result, errors.New("provider.key is required for the google provider"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown provider.type %q", c.Provider.Type))
	}

	if c.HealthPort < 0 || c.HealthPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("health_port %d is out of range", c.HealthPort))
	}
	if c.Geocoder.Delay < 0 {
		result = multierror.Append(result, fmt.Errorf("geocoder.delay must not be negative, got %s", c.Geocoder.Delay))
	}
	if c.Geocoder.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("geocoder.timeout must be positive, got %s", c.Geocoder.Timeout))
	}
	if c.Geocoder.FallbackLat < -90 || c.Geocoder.FallbackLat > 90 {
		result = multierror.Append(result, fmt.Errorf("geocoder.fallback_lat %v is not a latitude", c.Geocoder.FallbackLat))
	}
	if c.Geocoder.FallbackLon < -180 || c.Geocoder.FallbackLon > 180 {
		result = multierror.Append(result, fmt.Errorf("geocoder.fallback_lon %v is not a longitude", c.Geocoder.FallbackLon))
	}
	if c.Feasibility.ServiceTime < 0 {
		result = multierror.Append(result, errors.New("feasibility.service_time must not be negative"))
	}
	if c.Feasibility.SpeedKmh <= 0 {
		result = multierror.Append(result, errors.New("feasibility.speed_kmh must be positive"))
	}
	if c.Feasibility.RouteFactor <= 0 {
		result = multierror.Append(result, errors.New("feasibility.route_factor must be positive"))
	}
	if c.Feasibility.Workers < 0 {
		result = multierror.Append(result, errors.New("feasibility.workers must not be negative"))
	}
	if c.Source.QueryLimit <= 0 {
		result = multierror.Append(result, errors.New("source.query_limit must be positive"))
	}
	if c.Redis.URL != "" && c.Redis.Channel == "" {
		result = multierror.Append(result, errors.New("redis.channel is required when redis.url is set"))
	}

	return result.ErrorOrNil()
}

func setDefaults(vpr *viper.Viper) {
	vpr.SetDefault("env", "production")
	vpr.SetDefault("health_port", "0")
	vpr.SetDefault("provider.type", "nominatim")
	vpr.SetDefault("provider.key", "")
	vpr.SetDefault("provider.url", "")
	vpr.SetDefault("provider.user_agent", "")
	vpr.SetDefault("geocoder.delay", "1100ms")
	vpr.SetDefault("geocoder.timeout", "10s")
	vpr.SetDefault("geocoder.address_prefix", "")
	vpr.SetDefault("geocoder.fallback_lat", "10.762622")
	vpr.SetDefault("geocoder.fallback_lon", "106.660172")
	vpr.SetDefault("feasibility.service_time", "15m")
	vpr.SetDefault("feasibility.speed_kmh", "30")
	vpr.SetDefault("feasibility.route_factor", "1.1")
	vpr.SetDefault("feasibility.timezone", "Asia/Ho_Chi_Minh")
	vpr.SetDefault("feasibility.workers", "0")
	vpr.SetDefault("postgres.port", "5432")
	vpr.SetDefault("source.query_limit", "1000")
	vpr.SetDefault("redis.url", "")
	vpr.SetDefault("redis.channel", "shipcolor:graphs")
}
