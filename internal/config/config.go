// Package config resolves runtime settings from defaults, an optional YAML file,
// .env files, PROPMAP_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ensigniasec/propmap/internal/broker"
	"github.com/ensigniasec/propmap/internal/geo"
	"github.com/ensigniasec/propmap/internal/hover"
	"github.com/ensigniasec/propmap/internal/listing"
	"github.com/ensigniasec/propmap/internal/storage"
	"github.com/ensigniasec/propmap/internal/validate"
	"github.com/ensigniasec/propmap/internal/viewport"
)

// EnvPrefix namespaces environment variables, e.g. PROPMAP_API_URL.
const EnvPrefix = "PROPMAP"

// Keys shared by flags, environment and config file.
const (
	KeyAPIURL          = "api-url"
	KeyAPIKey          = "api-key"
	KeyOffline         = "offline"
	KeyNATSURL         = "nats-url"
	KeyNATSSubject     = "nats-subject"
	KeyMetricsAddr     = "metrics-addr"
	KeyDebounce        = "debounce"
	KeyHoverDelay      = "hover-delay"
	KeySyncDelay       = "sync-delay"
	KeySyncAttempts    = "sync-attempts"
	KeyZoom            = "zoom"
	KeyCity            = "city"
	KeyListings        = "listings"
	KeyListingsPattern = "listings-pattern"
	KeyListingsDSN     = "listings-dsn"
	KeyWatch           = "watch"
	KeyStorageFile     = "storage-file"
)

// Config is the resolved configuration.
type Config struct {
	APIURL          string        `mapstructure:"api-url" validate:"omitempty,url"`
	APIKey          string        `mapstructure:"api-key"`
	Offline         bool          `mapstructure:"offline"`
	NATSURL         string        `mapstructure:"nats-url" validate:"omitempty,url"`
	NATSSubject     string        `mapstructure:"nats-subject" validate:"required"`
	MetricsAddr     string        `mapstructure:"metrics-addr" validate:"omitempty,hostname_port"`
	Debounce        time.Duration `mapstructure:"debounce" validate:"gt=0"`
	HoverDelay      time.Duration `mapstructure:"hover-delay" validate:"gt=0"`
	SyncDelay       time.Duration `mapstructure:"sync-delay" validate:"gte=0"`
	SyncAttempts    int           `mapstructure:"sync-attempts" validate:"gte=1,lte=10"`
	Zoom            int           `mapstructure:"zoom" validate:"gte=1,lte=21"`
	City            string        `mapstructure:"city"`
	Listings        string        `mapstructure:"listings"`
	ListingsPattern string        `mapstructure:"listings-pattern"`
	ListingsDSN     string        `mapstructure:"listings-dsn"`
	Watch           bool          `mapstructure:"watch"`
	StorageFile     string        `mapstructure:"storage-file" validate:"required"`
}

// Options selects the optional inputs of Load.
type Options struct {
	// Flags are bound with BindPFlags; only flags set on the command line override.
	Flags *pflag.FlagSet
	// ConfigFile is a YAML file; empty skips it.
	ConfigFile string
	// EnvFiles are loaded with godotenv. Empty means ".env" when present.
	EnvFiles []string
}

// ErrUnknownCity is returned when the configured city is not a reference city.
var ErrUnknownCity = errors.New("unknown city")

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		NATSSubject:     broker.DefaultSubject,
		Debounce:        viewport.DefaultDebounce,
		HoverDelay:      hover.DefaultCloseDelay,
		SyncDelay:       viewport.DefaultSimulatedDelay,
		SyncAttempts:    3,
		Zoom:            geo.DefaultZoom,
		ListingsPattern: listing.DefaultPattern,
		StorageFile:     storage.DefaultPath,
	}
}

// RegisterFlags adds the configuration flags to fs with the built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String(KeyAPIURL, d.APIURL, "Listings backend base URL; empty uses the simulated sync")
	fs.String(KeyAPIKey, d.APIKey, "Bearer token for the listings backend")
	fs.Bool(KeyOffline, d.Offline, "Never contact the backend or NATS")
	fs.String(KeyNATSURL, d.NATSURL, "Also publish settled viewports to this NATS server")
	fs.String(KeyNATSSubject, d.NATSSubject, "NATS subject for settled viewports")
	fs.String(KeyMetricsAddr, d.MetricsAddr, "Serve prometheus metrics on this host:port")
	fs.Duration(KeyDebounce, d.Debounce, "Quiet period after the map settles before syncing")
	fs.Duration(KeyHoverDelay, d.HoverDelay, "Grace period before a hover card closes")
	fs.Duration(KeySyncDelay, d.SyncDelay, "Latency of the simulated sync")
	fs.Int(KeySyncAttempts, d.SyncAttempts, "Attempts per remote sync")
	fs.Int(KeyZoom, d.Zoom, "Initial map zoom")
	fs.String(KeyCity, d.City, "Initial city (defaults to the last city viewed, then Mumbai)")
	fs.String(KeyListings, d.Listings, "Listing file or directory; empty uses the bundled sample")
	fs.String(KeyListingsPattern, d.ListingsPattern, "Glob selecting listing files inside a directory")
	fs.String(KeyListingsDSN, d.ListingsDSN, "Postgres DSN to load listings from")
	fs.Bool(KeyWatch, d.Watch, "Append listings added to the listing files while running")
	fs.String(KeyStorageFile, d.StorageFile, "Path of the client state file")
}

// Load resolves the configuration and validates it.
func Load(opts Options) (Config, error) {
	envFiles := opts.EnvFiles
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// Existing environment variables win over .env entries.
		if err := godotenv.Load(f); err != nil {
			logrus.Debugf("no env file %s: %v", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	}
	if opts.Flags != nil {
		if err := v.BindPFlags(opts.Flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks field constraints and that City names a reference city.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if c.City != "" {
		if _, ok := geo.City(c.City); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCity, c.City)
		}
	}
	return nil
}

// Remote reports whether a backend should be contacted.
func (c Config) Remote() bool {
	return !c.Offline && c.APIURL != ""
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyAPIURL, d.APIURL)
	v.SetDefault(KeyAPIKey, d.APIKey)
	v.SetDefault(KeyOffline, d.Offline)
	v.SetDefault(KeyNATSURL, d.NATSURL)
	v.SetDefault(KeyNATSSubject, d.NATSSubject)
	v.SetDefault(KeyMetricsAddr, d.MetricsAddr)
	v.SetDefault(KeyDebounce, d.Debounce)
	v.SetDefault(KeyHoverDelay, d.HoverDelay)
	v.SetDefault(KeySyncDelay, d.SyncDelay)
	v.SetDefault(KeySyncAttempts, d.SyncAttempts)
	v.SetDefault(KeyZoom, d.Zoom)
	v.SetDefault(KeyCity, d.City)
	v.SetDefault(KeyListings, d.Listings)
	v.SetDefault(KeyListingsPattern, d.ListingsPattern)
	v.SetDefault(KeyListingsDSN, d.ListingsDSN)
	v.SetDefault(KeyWatch, d.Watch)
	v.SetDefault(KeyStorageFile, d.StorageFile)
}
