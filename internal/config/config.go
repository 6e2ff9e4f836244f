package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full server configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Push      PushConfig      `mapstructure:"push"`
	PayMongo  PayMongoConfig  `mapstructure:"paymongo"`
	App       AppConfig       `mapstructure:"app"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
	Migrate  bool   `mapstructure:"migrate"`
}

// RedisConfig controls the optional cross-instance event relay
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// PushConfig selects the push backend. Without credentials pushes are only logged.
type PushConfig struct {
	CredentialsFile string        `mapstructure:"credentials_file"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type PayMongoConfig struct {
	Mode       string        `mapstructure:"mode"`
	SecretKey  string        `mapstructure:"secret_key"`
	SuccessURL string        `mapstructure:"success_url"`
	CancelURL  string        `mapstructure:"cancel_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type AppConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type SchedulerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	PruneSpec      string        `mapstructure:"prune_spec"`
	TokenRetention time.Duration `mapstructure:"token_retention"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "laundry")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "laundry:realtime")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("push.credentials_file", "")
	v.SetDefault("push.timeout", 10*time.Second)

	v.SetDefault("paymongo.mode", "mock")
	v.SetDefault("paymongo.secret_key", "")
	v.SetDefault("paymongo.success_url", "https://example.com/success")
	v.SetDefault("paymongo.cancel_url", "https://example.com/cancel")
	v.SetDefault("paymongo.timeout", 15*time.Second)

	v.SetDefault("app.timezone", "Asia/Manila")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.prune_spec", "@every 1h")
	v.SetDefault("scheduler.token_retention", 720*time.Hour)
}

// Load builds the configuration from defaults, an optional config file,
// environment variables (DATABASE_HOST for database.host) and command line flags.
// Flags win over the environment, which wins over the file.
func Load(args []string) (*Config, error) {
	flagSet := pflag.NewFlagSet("laundry-server", pflag.ContinueOnError)
	configFile := flagSet.String("config", "", "Configuration file path")
	flagSet.Int("port", 8080, "HTTP server port")
	flagSet.Int("grpc-port", 50051, "gRPC health server port")
	flagSet.String("log-level", "info", "Log level (debug, info, warn, error)")
	flagSet.Bool("migrate", true, "Apply database migrations on startup")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"server.port":      "port",
		"grpc.port":        "grpc-port",
		"log.level":        "log-level",
		"database.migrate": "migrate",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, flagSet.Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late at startup
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Scheduler.Enabled && c.Scheduler.TokenRetention <= 0 {
		return fmt.Errorf("scheduler.token_retention must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the business timezone used to render booking dates
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid app.timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}
