package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"omip-benchmark/internal/model"
)

// Config is the service configuration. Values come from an optional YAML
// file, then OMIP_* environment variables, then a few well-known bare
// variables (DATABASE_URL, ADMIN_KEY, ...).
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	DB          DBConfig          `mapstructure:"db"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Email       EmailConfig       `mapstructure:"email"`
	EmailCheck  EmailCheckConfig  `mapstructure:"email_check"`
	Import      ImportConfig      `mapstructure:"import"`
	Reference   ReferenceConfig   `mapstructure:"reference"`
	Adjustments AdjustmentsConfig `mapstructure:"adjustments"`
	CORS        CORSConfig        `mapstructure:"cors"`
}

type AppConfig struct {
	Env    string `mapstructure:"env"`
	Origin string `mapstructure:"origin"`
}

func (a AppConfig) IsDevelopment() bool {
	return a.Env == "dev" || a.Env == "development" || a.Env == "test"
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig enables the shared reference cache when URL is set.
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type AdminConfig struct {
	Key string `mapstructure:"key"`
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	ConfirmTTL   time.Duration `mapstructure:"confirm_ttl"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

type EmailConfig struct {
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromEmail      string `mapstructure:"from_email"`
	FromName       string `mapstructure:"from_name"`
}

type EmailCheckConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ImportConfig struct {
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

type ReferenceConfig struct {
	MaxMonths int `mapstructure:"max_months"`
}

// AdjustmentsConfig holds the terms applied when no settings version is
// active.
type AdjustmentsConfig struct {
	Fallback FallbackConfig `mapstructure:"fallback"`
}

type FallbackConfig struct {
	LossesPercent float64 `mapstructure:"losses_percent"`
	EricPerMWh    float64 `mapstructure:"eric_per_mwh"`
	RenPerMWh     float64 `mapstructure:"ren_per_mwh"`
}

func (f FallbackConfig) ToModel() model.Adjustments {
	return model.Adjustments{
		LossesPercent: f.LossesPercent,
		EricPerMWh:    f.EricPerMWh,
		RenPerMWh:     f.RenPerMWh,
	}
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// bareEnv maps config keys to unprefixed variables commonly set by hosting
// platforms.
var bareEnv = map[string]string{
	"db.dsn":                  "DATABASE_URL",
	"redis.url":               "REDIS_URL",
	"admin.key":               "ADMIN_KEY",
	"auth.jwt_secret":         "JWT_SECRET",
	"email.sendgrid_api_key":  "SENDGRID_API_KEY",
	"email_check.api_key":     "EMAILABLE_API_KEY",
	"app.origin":              "APP_ORIGIN",
	"server.http_addr":        "HTTP_ADDR",
	"cors.allowed_origins":    "CORS_ALLOWED_ORIGINS",
	"import.max_upload_bytes": "MAX_UPLOAD_BYTES",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.origin", "http://localhost:8080")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.key_prefix", "omip:ref:")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("admin.key", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.confirm_ttl", "60m")
	v.SetDefault("auth.session_ttl", "168h")
	v.SetDefault("auth.cookie_name", "b2p_ev")
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("email.sendgrid_api_key", "")
	v.SetDefault("email.from_email", "no-reply@omip-benchmark.local")
	v.SetDefault("email.from_name", "OMIP Benchmark")
	v.SetDefault("email_check.base_url", "https://api.emailable.com")
	v.SetDefault("email_check.api_key", "")
	v.SetDefault("email_check.timeout", "10s")
	v.SetDefault("import.max_upload_bytes", 5<<20)
	v.SetDefault("reference.max_months", 120)
	v.SetDefault("adjustments.fallback.losses_percent", 7.0)
	v.SetDefault("adjustments.fallback.eric_per_mwh", 3.0)
	v.SetDefault("adjustments.fallback.ren_per_mwh", 1.5)
	v.SetDefault("cors.allowed_origins", []string{})
}

// Load reads configuration. An empty path searches ./config.yaml and
// ./config/config.yaml; a missing file is not an error, a broken one is.
func Load(path string) (Config, error) {
	cfg, err := LoadUnchecked(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadUnchecked reads configuration without validating it.
func LoadUnchecked(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OMIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	for key, env := range bareEnv {
		if err := v.BindEnv(key, "OMIP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, err
		}
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORS.AllowedOrigins = splitList(strings.Join(cfg.CORS.AllowedOrigins, ","))
	if len(cfg.CORS.AllowedOrigins) == 0 && cfg.App.Origin != "" {
		cfg.CORS.AllowedOrigins = []string{cfg.App.Origin}
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Reference.MaxMonths < 1 {
		return errors.New("reference.max_months must be >= 1")
	}
	if c.Import.MaxUploadBytes <= 0 {
		return errors.New("import.max_upload_bytes must be > 0")
	}
	if err := c.Adjustments.Fallback.ToModel().Validate(); err != nil {
		return fmt.Errorf("adjustments.fallback invalid: %w", err)
	}
	if c.Auth.JWTSecret == "" && !c.App.IsDevelopment() {
		return errors.New("auth.jwt_secret is required outside development")
	}
	if c.Auth.CookieName == "" {
		return errors.New("auth.cookie_name is required")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
