package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // day boundaries must not depend on the host zoneinfo

	"github.com/jengzang/mobility-backend-go/internal/spatial"
	"github.com/ringsaturn/tzf"
	"gopkg.in/yaml.v3"
)

// DefaultArea is the Hangzhou urban area the base station data was collected in
var DefaultArea = spatial.Area{MinLon: 120.03013, MinLat: 30.13614, MaxLon: 120.28597, MaxLat: 30.35318}

// MinJWTSecretLength is the shortest accepted JWT signing secret
const MinJWTSecretLength = 16

// sampleJWTSecret is the value shipped in old example configs
const sampleJWTSecret = "your-secret-key-change-in-production"

// Config 应用配置
type Config struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	JWTSecret string `yaml:"jwt_secret"` // empty disables the write endpoints
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "console" or "json"

	// Area drops observations located outside of it before day windowing
	Area spatial.Area `yaml:"area"`
	// Timezone of the 03:00 day boundary; resolved from Area when empty
	Timezone string `yaml:"timezone"`

	DwellingSplitRatio   float64 `yaml:"dwelling_split_ratio"`
	MaxDistinctLocations int     `yaml:"max_distinct_locations"` // 0 = unlimited

	KernelLambda     float64 `yaml:"kernel_lambda"`
	KernelSharpness  float64 `yaml:"kernel_sharpness"`
	KernelIterations int     `yaml:"kernel_iterations"`

	RateLimit int `yaml:"rate_limit"` // requests per minute per client
}

// Load 加载配置
//
// Values come from the environment with defaults; when MOBILITY_CONFIG names a
// YAML file its keys override them.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", ":8080"),
		DBPath:               getEnv("DB_PATH", "./data/mobility/mobility.db"),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		Area:                 DefaultArea,
		Timezone:             getEnv("MOBILITY_TIMEZONE", ""),
		DwellingSplitRatio:   getEnvAsFloat("DWELLING_SPLIT_RATIO", 0.8),
		MaxDistinctLocations: getEnvAsInt("MAX_DISTINCT_LOCATIONS", 0),
		KernelLambda:         getEnvAsFloat("KERNEL_LAMBDA", 0.5),
		KernelSharpness:      getEnvAsFloat("KERNEL_SHARPNESS", 0.25),
		KernelIterations:     getEnvAsInt("KERNEL_ITERATIONS", 5),
		RateLimit:            getEnvAsInt("RATE_LIMIT", 120),
	}

	if raw := os.Getenv("MOBILITY_AREA"); raw != "" {
		area, err := ParseArea(raw)
		if err != nil {
			return nil, fmt.Errorf("MOBILITY_AREA: %w", err)
		}
		cfg.Area = area
	}

	if path := os.Getenv("MOBILITY_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret != "" {
		if c.JWTSecret == sampleJWTSecret {
			errs = append(errs, errors.New("jwt secret is the sample value, set JWT_SECRET"))
		} else if len(c.JWTSecret) < MinJWTSecretLength {
			errs = append(errs, fmt.Errorf("jwt secret must be at least %d bytes", MinJWTSecretLength))
		}
	}
	if c.DwellingSplitRatio < 0 || c.DwellingSplitRatio > 1 {
		errs = append(errs, fmt.Errorf("dwelling split ratio %v outside [0,1]", c.DwellingSplitRatio))
	}
	if c.KernelLambda < 0 || c.KernelLambda > 1 {
		errs = append(errs, fmt.Errorf("kernel lambda %v outside [0,1]", c.KernelLambda))
	}
	if c.KernelSharpness <= 0 {
		errs = append(errs, fmt.Errorf("kernel sharpness must be positive, got %v", c.KernelSharpness))
	}
	if c.KernelIterations < 0 {
		errs = append(errs, fmt.Errorf("kernel iterations must not be negative, got %d", c.KernelIterations))
	}
	if c.MaxDistinctLocations < 0 {
		errs = append(errs, fmt.Errorf("max distinct locations must not be negative, got %d", c.MaxDistinctLocations))
	}
	if c.Area.MinLon > c.Area.MaxLon || c.Area.MinLat > c.Area.MaxLat {
		errs = append(errs, fmt.Errorf("area %+v is inverted", c.Area))
	}
	return errors.Join(errs...)
}

// Location returns the timezone of the mobility day boundary. An explicit
// Timezone wins; otherwise the zone containing the center of Area is looked up.
// UTC is used when neither yields a zone.
func (c *Config) Location() (*time.Location, error) {
	name := c.Timezone
	if name == "" && !c.Area.IsZero() {
		finder, err := tzf.NewDefaultFinder()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize timezone finder: %w", err)
		}
		center := c.Area.Center()
		name = finder.GetTimezoneName(center.Lon, center.Lat)
	}
	if name == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// ParseArea parses "min_lon,min_lat,max_lon,max_lat"
func ParseArea(s string) (spatial.Area, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return spatial.Area{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return spatial.Area{}, fmt.Errorf("invalid area value %q: %w", p, err)
		}
		v[i] = f
	}
	return spatial.Area{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}
