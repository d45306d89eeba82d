package appconf

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pebfutar.app/internal/settings"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps "development", "test" or "production" (any
// case, with the usual short forms) to an Environment.
func EnvFlagToEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dev", "development":
		return Development, nil
	case "test":
		return Test, nil
	case "prod", "production":
		return Production, nil
	default:
		return Development, fmt.Errorf("unknown environment %q", s)
	}
}

func (e *Environment) UnmarshalYAML(node *yaml.Node) error {
	env, err := EnvFlagToEnvironment(node.Value)
	if err != nil {
		return err
	}
	*e = env
	return nil
}

func (e Environment) MarshalYAML() (any, error) {
	return e.String(), nil
}

type APIConfig struct {
	BaseURL   string        `yaml:"base-url" validate:"required,url"`
	Key       string        `yaml:"key"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	RateLimit float64       `yaml:"rate-limit" validate:"gte=0"`
	Burst     int           `yaml:"burst" validate:"gte=0"`
	UserAgent string        `yaml:"user-agent"`
}

type StopsConfig struct {
	RadiusMeters int `yaml:"radius" validate:"gt=0,lte=5000"`
	// DistanceGranularity rounds stop distances; 0 uses the fix accuracy.
	DistanceGranularity int `yaml:"distance-granularity" validate:"gte=0"`
}

// LocationConfig is the fixed position reported to the stops flow and the
// acquisition budget applied to it.
type LocationConfig struct {
	Latitude  float64       `yaml:"lat" validate:"gte=-90,lte=90"`
	Longitude float64       `yaml:"lon" validate:"gte=-180,lte=180"`
	Accuracy  float64       `yaml:"accuracy" validate:"gte=0"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxAge    time.Duration `yaml:"max-age" validate:"gte=0"`
}

type SettingsConfig struct {
	Backend       string `yaml:"backend" validate:"oneof=memory sqlite redis"`
	Path          string `yaml:"path" validate:"required_if=Backend sqlite"`
	RedisAddr     string `yaml:"redis-addr" validate:"required_if=Backend redis"`
	RedisPassword string `yaml:"redis-password"`
	RedisDB       int    `yaml:"redis-db" validate:"gte=0"`
}

type DebugConfig struct {
	// Addr is where the debug server listens; empty disables it.
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
	// Token, when set, must be passed as ?key= on every route but /healthz.
	Token string `yaml:"token"`
}

type Config struct {
	Env       Environment    `yaml:"env"`
	LogLevel  string         `yaml:"log-level" validate:"oneof=debug info warn error"`
	LogFormat string         `yaml:"log-format" validate:"oneof=text json"`
	Language  string         `yaml:"language" validate:"required"`
	TimeZone  string         `yaml:"time-zone" validate:"required"`
	API       APIConfig      `yaml:"api"`
	Stops     StopsConfig    `yaml:"stops"`
	Location  LocationConfig `yaml:"location"`
	Settings  SettingsConfig `yaml:"settings"`
	Debug     DebugConfig    `yaml:"debug"`
}

const DefaultBaseURL = "http://futar.bkk.hu/bkk-utvonaltervezo-api/ws/otp/api/where/"

// Default is a working configuration centered on Budapest.
func Default() Config {
	return Config{
		Env:       Development,
		LogLevel:  "info",
		LogFormat: "text",
		Language:  "hu",
		TimeZone:  "Europe/Budapest",
		API: APIConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   10 * time.Second,
			RateLimit: 2,
			Burst:     4,
			UserAgent: "pebfutar/1.0",
		},
		Stops: StopsConfig{RadiusMeters: 400},
		Location: LocationConfig{
			Latitude:  47.4979,
			Longitude: 19.0402,
			Accuracy:  1,
			Timeout:   15 * time.Second,
			MaxAge:    30 * time.Second,
		},
		Settings: SettingsConfig{Backend: settings.BackendMemory},
	}
}

// SettingsStoreConfig converts the settings section for settings.Open.
func (c Config) SettingsStoreConfig() settings.Config {
	return settings.Config{
		Backend:       c.Settings.Backend,
		Path:          c.Settings.Path,
		RedisAddr:     c.Settings.RedisAddr,
		RedisPassword: c.Settings.RedisPassword,
		RedisDB:       c.Settings.RedisDB,
	}
}

// TimeLocation loads the configured zone for trip wall-clock times.
func (c Config) TimeLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags and returns every violation at once.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.TimeLocation(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadFromFile reads a YAML file over Default and validates the result.
func LoadFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load builds the runtime configuration: defaults, then the YAML file at
// path (if any), then FUTAR_* variables from the environment and from
// dotenv files. Files later in dotenv do not override earlier ones, and
// neither overrides variables already set in the process.
func Load(path string, dotenv ...string) (*Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Default()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from FUTAR_* variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	if v, ok := lookup("FUTAR_ENV"); ok {
		env, err := EnvFlagToEnvironment(v)
		if err != nil {
			return fmt.Errorf("FUTAR_ENV: %w", err)
		}
		c.Env = env
	}
	e.str("FUTAR_LOG_LEVEL", &c.LogLevel)
	e.str("FUTAR_LOG_FORMAT", &c.LogFormat)
	e.str("FUTAR_LANGUAGE", &c.Language)
	e.str("FUTAR_TIME_ZONE", &c.TimeZone)

	e.str("FUTAR_API_BASE_URL", &c.API.BaseURL)
	e.str("FUTAR_API_KEY", &c.API.Key)
	e.duration("FUTAR_API_TIMEOUT", &c.API.Timeout)
	e.float("FUTAR_API_RATE_LIMIT", &c.API.RateLimit)
	e.int("FUTAR_API_BURST", &c.API.Burst)

	e.int("FUTAR_STOPS_RADIUS", &c.Stops.RadiusMeters)
	e.int("FUTAR_STOPS_DISTANCE_GRANULARITY", &c.Stops.DistanceGranularity)

	e.float("FUTAR_LOCATION_LAT", &c.Location.Latitude)
	e.float("FUTAR_LOCATION_LON", &c.Location.Longitude)
	e.float("FUTAR_LOCATION_ACCURACY", &c.Location.Accuracy)
	e.duration("FUTAR_LOCATION_TIMEOUT", &c.Location.Timeout)
	e.duration("FUTAR_LOCATION_MAX_AGE", &c.Location.MaxAge)

	e.str("FUTAR_SETTINGS_BACKEND", &c.Settings.Backend)
	e.str("FUTAR_SETTINGS_PATH", &c.Settings.Path)
	e.str("FUTAR_REDIS_ADDR", &c.Settings.RedisAddr)
	e.str("FUTAR_REDIS_PASSWORD", &c.Settings.RedisPassword)
	e.int("FUTAR_REDIS_DB", &c.Settings.RedisDB)

	e.str("FUTAR_DEBUG_ADDR", &c.Debug.Addr)
	e.str("FUTAR_DEBUG_TOKEN", &c.Debug.Token)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.lookup(key); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.lookup(key); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}
