// Package conf loads the notification engine configuration from a YAML file
// and NOTIFY_* environment variables.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. NOTIFY_DATABASE_DSN.
const EnvPrefix = "NOTIFY"

// Settings is the root configuration.
type Settings struct {
	Log       LogSettings       `mapstructure:"log" yaml:"log"`
	Database  DatabaseSettings  `mapstructure:"database" yaml:"database"`
	Email     EmailSettings     `mapstructure:"email" yaml:"email"`
	Engine    EngineSettings    `mapstructure:"engine" yaml:"engine"`
	Scheduler SchedulerSettings `mapstructure:"scheduler" yaml:"scheduler"`
	Kafka     KafkaSettings     `mapstructure:"kafka" yaml:"kafka"`
	HTTP      HTTPSettings      `mapstructure:"http" yaml:"http"`
	Sentry    SentrySettings    `mapstructure:"sentry" yaml:"sentry"`
}

type LogSettings struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// DatabaseSettings selects the gorm dialect. Driver is "sqlite" or "mysql".
type DatabaseSettings struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
	Debug  bool   `mapstructure:"debug" yaml:"debug"`
}

// EmailSettings selects the email transport. Driver is "shoutrrr", "smtp" or "log".
type EmailSettings struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`
	ShoutrrrURL string `mapstructure:"shoutrrr_url" yaml:"shoutrrr_url"`
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port"`
	Username    string `mapstructure:"username" yaml:"username"`
	Password    string `mapstructure:"password" yaml:"password"`
	From        string `mapstructure:"from" yaml:"from"`
}

type EngineSettings struct {
	// Timezone used for quiet hours and deadline day windows.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
	// DefaultMaxPerHour applies when a preference enables rate limiting without a cap.
	DefaultMaxPerHour int `mapstructure:"default_max_per_hour" yaml:"default_max_per_hour"`
	// ExcludeActor removes the acting user from event recipients.
	ExcludeActor bool `mapstructure:"exclude_actor" yaml:"exclude_actor"`
	// ApprovalEmail also emails approval and rejection notices.
	ApprovalEmail bool `mapstructure:"approval_email" yaml:"approval_email"`
	// ContactCacheTTL caches user contact lookups; zero disables the cache.
	ContactCacheTTL Duration `mapstructure:"contact_cache_ttl" yaml:"contact_cache_ttl"`
	RetentionDays   int      `mapstructure:"retention_days" yaml:"retention_days"`
}

type SchedulerSettings struct {
	AlertsInterval     Duration `mapstructure:"alerts_interval" yaml:"alerts_interval"`
	ExpirationInterval Duration `mapstructure:"expiration_interval" yaml:"expiration_interval"`
	OverdueInterval    Duration `mapstructure:"overdue_interval" yaml:"overdue_interval"`
	PurgeInterval      Duration `mapstructure:"purge_interval" yaml:"purge_interval"`
	RunTimeout         Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
	// RedisURL enables the distributed scan lock; empty uses an in-process lock.
	RedisURL string   `mapstructure:"redis_url" yaml:"redis_url"`
	LockTTL  Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
}

type KafkaSettings struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`
	Topic   string   `mapstructure:"topic" yaml:"topic"`
	GroupID string   `mapstructure:"group_id" yaml:"group_id"`
}

type HTTPSettings struct {
	Addr              string  `mapstructure:"addr" yaml:"addr"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

type SentrySettings struct {
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// Location resolves the configured timezone, falling back to time.Local.
func (e EngineSettings) Location() *time.Location {
	if e.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "notify.db")
	v.SetDefault("email.driver", "log")
	v.SetDefault("email.port", 587)
	v.SetDefault("engine.default_max_per_hour", 100)
	v.SetDefault("engine.contact_cache_ttl", "5m")
	v.SetDefault("engine.retention_days", 90)
	v.SetDefault("scheduler.alerts_interval", "5m")
	v.SetDefault("scheduler.expiration_interval", "24h")
	v.SetDefault("scheduler.overdue_interval", "24h")
	v.SetDefault("scheduler.purge_interval", "24h")
	v.SetDefault("scheduler.run_timeout", "2m")
	v.SetDefault("scheduler.lock_ttl", "10m")
	v.SetDefault("kafka.topic", "entity-events")
	v.SetDefault("kafka.group_id", "notify-engine")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.requests_per_second", 20)
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects settings the engine cannot start with.
func (s *Settings) Validate() error {
	switch s.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", s.Database.Driver)
	}
	switch s.Email.Driver {
	case "log":
	case "shoutrrr":
		if s.Email.ShoutrrrURL == "" {
			return fmt.Errorf("email.shoutrrr_url is required for the shoutrrr driver")
		}
	case "smtp":
		if s.Email.Host == "" || s.Email.From == "" {
			return fmt.Errorf("email.host and email.from are required for the smtp driver")
		}
	default:
		return fmt.Errorf("unsupported email driver %q", s.Email.Driver)
	}
	if s.Kafka.Enabled && len(s.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if s.Engine.Timezone != "" {
		if _, err := time.LoadLocation(s.Engine.Timezone); err != nil {
			return fmt.Errorf("invalid engine.timezone: %w", err)
		}
	}
	return nil
}
