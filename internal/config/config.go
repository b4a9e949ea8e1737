package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
	Datastore     DatastoreConfig     `yaml:"datastore" mapstructure:"datastore"`
	Geometry      GeometryConfig      `yaml:"geometry" mapstructure:"geometry"`
	Address       AddressConfig       `yaml:"address" mapstructure:"address"`
	Legal         LegalConfig         `yaml:"legal" mapstructure:"legal"`
	Artifact      ArtifactConfig      `yaml:"artifact" mapstructure:"artifact"`
	Jurisdictions JurisdictionsConfig `yaml:"jurisdictions" mapstructure:"jurisdictions"`
	Batch         BatchConfig         `yaml:"batch" mapstructure:"batch"`
	Monitoring    MonitoringConfig    `yaml:"monitoring" mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	PublicURL   string   `yaml:"public_url" mapstructure:"public_url"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DatastoreConfig configures the outbound parcel-service client.
type DatastoreConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests/sec, 0 = unlimited
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// GeometryConfig selects the planar projection used for measurements.
type GeometryConfig struct {
	CRS string `yaml:"crs" mapstructure:"crs"`
}

// AddressConfig configures the address parser.
type AddressConfig struct {
	StreetTypes []string `yaml:"street_types" mapstructure:"street_types"`
}

// LegalConfig configures legal-description keywords.
type LegalConfig struct {
	SubdivisionTerminators []string `yaml:"subdivision_terminators" mapstructure:"subdivision_terminators"`
	BlockKeywords          []string `yaml:"block_keywords" mapstructure:"block_keywords"`
	LotKeywords            []string `yaml:"lot_keywords" mapstructure:"lot_keywords"`
	ReserveQualifiers      []string `yaml:"reserve_qualifiers" mapstructure:"reserve_qualifiers"`
}

// ArtifactConfig configures artifact rendering and storage.
type ArtifactConfig struct {
	Store         string      `yaml:"store" mapstructure:"store"` // memory | redis
	DefaultFormat string      `yaml:"default_format" mapstructure:"default_format"`
	TTLMinutes    int         `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	MaxEntries    int         `yaml:"max_entries" mapstructure:"max_entries"`
	Redis         RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig configures the redis artifact store.
type RedisConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	Password  string `yaml:"password" mapstructure:"password"`
	DB        int    `yaml:"db" mapstructure:"db"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// JurisdictionsConfig selects the jurisdiction registry.
type JurisdictionsConfig struct {
	File    string `yaml:"file" mapstructure:"file"` // empty = built-in registry
	Default string `yaml:"default" mapstructure:"default"`
}

// BatchConfig configures batch lookups.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// MonitoringConfig configures the background datastore checker.
type MonitoringConfig struct {
	CheckIntervalSecs int `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TEJAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Hosting platforms inject PORT.
	if err := v.BindEnv("server.port", "TEJAS_SERVER_PORT", "PORT"); err != nil {
		return nil, eris.Wrap(err, "config: bind port env")
	}

	// Defaults
	v.SetDefault("server.port", 10000)
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("datastore.timeout_secs", 10)
	v.SetDefault("datastore.rate_limit", 0)
	v.SetDefault("datastore.user_agent", "tejas-estimator")
	v.SetDefault("geometry.crs", "EPSG:2278")
	v.SetDefault("address.street_types", []string{"RD", "ST", "DR", "LN", "BLVD", "CT", "AVE", "HWY", "WAY", "TRAIL", "PKWY", "CIR"})
	v.SetDefault("legal.subdivision_terminators", []string{"BLOCK", "LOT", "RESERVE", "ACRES"})
	v.SetDefault("legal.block_keywords", []string{"BLOCK"})
	v.SetDefault("legal.lot_keywords", []string{"LOT", "RESERVE"})
	v.SetDefault("legal.reserve_qualifiers", []string{"UNRESTRICTED", "RESTRICTED", "COMMERCIAL"})
	v.SetDefault("artifact.store", "memory")
	v.SetDefault("artifact.default_format", "kml")
	v.SetDefault("artifact.ttl_minutes", 60)
	v.SetDefault("artifact.max_entries", 500)
	v.SetDefault("artifact.redis.addr", "localhost:6379")
	v.SetDefault("artifact.redis.db", 0)
	v.SetDefault("artifact.redis.key_prefix", "tejas:artifact:")
	v.SetDefault("jurisdictions.file", "")
	v.SetDefault("jurisdictions.default", "fortbend")
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("monitoring.check_interval_secs", 300)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is the command being
// run: "serve", "lookup" or "batch".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "lookup":
	case "batch":
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
			errs = append(errs, "batch.concurrency must be between 1 and 64")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Datastore.TimeoutSecs <= 0 {
		errs = append(errs, "datastore.timeout_secs must be > 0")
	}
	if c.Datastore.RateLimit < 0 {
		errs = append(errs, "datastore.rate_limit must be >= 0")
	}
	if len(c.Address.StreetTypes) == 0 {
		errs = append(errs, "address.street_types must not be empty")
	}
	if c.Artifact.TTLMinutes <= 0 {
		errs = append(errs, "artifact.ttl_minutes must be > 0")
	}
	switch strings.ToLower(c.Artifact.Store) {
	case "memory":
		if c.Artifact.MaxEntries <= 0 {
			errs = append(errs, "artifact.max_entries must be > 0")
		}
	case "redis":
		if c.Artifact.Redis.Addr == "" {
			errs = append(errs, "artifact.redis.addr is required when artifact.store is redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("artifact.store must be memory or redis, got %q", c.Artifact.Store))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
