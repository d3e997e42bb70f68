// Package config loads and validates the Family Hub configuration from a
// YAML file and environment variable overrides.
package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

// pinPattern accepts numeric PINs between 4 and 8 digits.
var pinPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

// Environments accepted by server.environment.
const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

// Log levels accepted by logging.level.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// AuthConfig holds PIN authentication and token settings.
type AuthConfig struct {
	SigningKey string `mapstructure:"signing_key"`
	Issuer     string `mapstructure:"issuer"`
	Audience   string `mapstructure:"audience"`

	// Members are seeded into the member store at startup. Without them no
	// PIN login can succeed on a fresh store.
	Members []MemberConfig `mapstructure:"members"`
}

// MemberConfig seeds one family member account.
type MemberConfig struct {
	Name string `mapstructure:"name"`
	Role string `mapstructure:"role"`
	PIN  string `mapstructure:"pin"`
}

// DatabaseConfig holds PostgreSQL settings for the member store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// GoogleConfig holds settings for the Google Workspace providers.
type GoogleConfig struct {
	// AccessToken is the OAuth bearer token used for Calendar, Gmail and
	// Drive calls. Token acquisition happens outside this service.
	AccessToken string `mapstructure:"access_token"`

	CalendarURL string `mapstructure:"calendar_url"`
	GmailURL    string `mapstructure:"gmail_url"`
	DriveURL    string `mapstructure:"drive_url"`
}

// OllamaConfig holds settings for the local AI endpoint.
type OllamaConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// DNSConfig holds settings for resolver health checks.
type DNSConfig struct {
	// Domains are probed on every status check.
	Domains []string `mapstructure:"domains"`

	// Interval is the worker's polling period.
	Interval time.Duration `mapstructure:"interval"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// PubSubConfig holds alert publishing settings for the worker.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// BreakerConfig holds per-service circuit breaker tuning.
type BreakerConfig struct {
	Name             string        `mapstructure:"name"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	TimeWindow       time.Duration `mapstructure:"time_window"`
	CallTimeout      time.Duration `mapstructure:"call_timeout"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

// Config is the root configuration tree.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Google    GoogleConfig    `mapstructure:"google"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	DNS       DNSConfig       `mapstructure:"dns"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Breakers  []BreakerConfig `mapstructure:"breakers"`
}

// DefaultBreakers returns the per-service breaker tuning used when the
// config file does not override it.
func DefaultBreakers() []BreakerConfig {
	google := BreakerConfig{
		FailureThreshold: 3,
		TimeWindow:       60 * time.Second,
		CallTimeout:      15 * time.Second,
		ResetTimeout:     30 * time.Second,
	}

	calendar, gmail, drive := google, google, google
	calendar.Name = "google-calendar"
	gmail.Name = "google-gmail"
	drive.Name = "google-drive"

	return []BreakerConfig{
		calendar,
		gmail,
		drive,
		{
			Name:             "ollama-ai",
			FailureThreshold: 5,
			TimeWindow:       60 * time.Second,
			CallTimeout:      30 * time.Second,
			ResetTimeout:     60 * time.Second,
		},
		{
			Name:             "dns-resolver",
			FailureThreshold: 5,
			TimeWindow:       60 * time.Second,
			CallTimeout:      10 * time.Second,
			ResetTimeout:     30 * time.Second,
		},
	}
}

// Load reads the configuration from ./config.yaml (or ./config/config.yaml)
// and the environment, applies defaults, and validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("auth.issuer", "familyhub-api")
	v.SetDefault("auth.audience", "familyhub")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "familyhub")
	v.SetDefault("database.database", "familyhub")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("google.calendar_url", "https://www.googleapis.com/calendar/v3")
	v.SetDefault("google.gmail_url", "https://gmail.googleapis.com/gmail/v1")
	v.SetDefault("google.drive_url", "https://www.googleapis.com/drive/v3")
	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3")
	v.SetDefault("dns.domains", []string{"google.com", "cloudflare.com"})
	v.SetDefault("dns.interval", "5m")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("pubsub.topic", "familyhub-alerts")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FAMILYHUB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file: defaults and environment variables apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if len(cfg.Breakers) == 0 {
		cfg.Breakers = DefaultBreakers()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration tree and fails fast on bad values.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server, validation.By(validateServer)),
		validation.Field(&c.Logging, validation.By(validateLogging)),
		validation.Field(&c.Auth, validation.By(validateAuth)),
		validation.Field(&c.Ollama, validation.By(validateOllama)),
		validation.Field(&c.DNS, validation.By(validateDNS)),
		validation.Field(&c.Breakers,
			validation.Required,
			validation.Each(validation.By(validateBreaker)),
		),
	)
}

func validateServer(value interface{}) error {
	sc, ok := value.(ServerConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ServerConfig")
	}
	return validation.ValidateStruct(&sc,
		validation.Field(&sc.Address, validation.Required, validation.By(validateHostPort)),
		validation.Field(&sc.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
	)
}

func validateLogging(value interface{}) error {
	lc, ok := value.(LoggingConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
	}
	return validation.ValidateStruct(&lc,
		validation.Field(&lc.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	)
}

func validateAuth(value interface{}) error {
	ac, ok := value.(AuthConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an AuthConfig")
	}
	return validation.ValidateStruct(&ac,
		validation.Field(&ac.Issuer, validation.Required),
		validation.Field(&ac.Audience, validation.Required),
		validation.Field(&ac.Members, validation.Each(validation.By(validateMember))),
	)
}

func validateMember(value interface{}) error {
	mc, ok := value.(MemberConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a MemberConfig")
	}
	return validation.ValidateStruct(&mc,
		validation.Field(&mc.Name, validation.Required),
		validation.Field(&mc.Role, validation.Required, validation.In("parent", "child")),
		validation.Field(&mc.PIN, validation.Required, validation.Match(pinPattern)),
	)
}

func validateOllama(value interface{}) error {
	oc, ok := value.(OllamaConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an OllamaConfig")
	}
	return validation.ValidateStruct(&oc,
		validation.Field(&oc.URL, validation.Required, validation.By(validateHTTPURL)),
		validation.Field(&oc.Model, validation.Required),
	)
}

func validateDNS(value interface{}) error {
	dc, ok := value.(DNSConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a DNSConfig")
	}
	return validation.ValidateStruct(&dc,
		validation.Field(&dc.Domains, validation.Required, validation.Length(1, 0)),
		validation.Field(&dc.Interval, validation.Required, validation.Min(time.Second)),
	)
}

func validateBreaker(value interface{}) error {
	bc, ok := value.(BreakerConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
	}
	return validation.ValidateStruct(&bc,
		validation.Field(&bc.Name, validation.Required),
		validation.Field(&bc.FailureThreshold, validation.Required, validation.Min(uint32(1))),
		validation.Field(&bc.TimeWindow, validation.Required, validation.Min(time.Second)),
		validation.Field(&bc.CallTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&bc.ResetTimeout, validation.Required, validation.Min(time.Second)),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}
	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}
	return nil
}

func validateHTTPURL(value interface{}) error {
	raw, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}
	if parsed.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}
	return nil
}
