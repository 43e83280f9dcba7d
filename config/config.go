package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	PSP      PSPConfig
	Webhook  WebhookConfig
	API      APIConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port         string `validate:"required,numeric"`
	Env          string `validate:"oneof=development production test"`
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PublicURL is the externally reachable base used when registering the
	// webhook at the PSP.
	PublicURL string `validate:"omitempty,url"`
}

type DatabaseConfig struct {
	Driver          string `validate:"oneof=postgres mysql"`
	DSN             string `validate:"required"`
	AutoMigrate     bool
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type PSPConfig struct {
	Provider     string `validate:"oneof=sulcredi modobank efipay stub"`
	BaseURL      string `validate:"omitempty,url"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	CertPath     string `validate:"required_unless=Provider stub"`
	KeyPath      string `validate:"required_unless=Provider stub"`
	CAPath       string
	ReceiverKey  string `validate:"required"`
	Timeout      time.Duration
}

type WebhookConfig struct {
	Secret    string `validate:"required"`
	Tolerance time.Duration
}

type APIConfig struct {
	TokenSecret string `validate:"required,min=16"`
	TokenExpiry time.Duration
	Issuer      string
	RateLimit   int
	RateWindow  time.Duration
}

// RedisConfig enables the shared token cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AMQPConfig enables status event publishing when URL is set.
type AMQPConfig struct {
	URL      string `validate:"omitempty,url"`
	Exchange string
}

type LogConfig struct {
	Level string `validate:"oneof=trace debug info warn error"`
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Load reads .env when present, then the process environment. Values that
// are set but unparsable are reported; missing values take defaults and are
// left for Validate.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var p parser
	cfg := &Config{
		Server: ServerConfig{
			Port:         p.str("PORT", "8099"),
			Env:          p.str("APP_ENV", "development"),
			ReadTimeout:  p.duration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: p.duration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			PublicURL:    p.str("PUBLIC_URL", ""),
		},
		Database: DatabaseConfig{
			Driver:          p.str("DB_DRIVER", "postgres"),
			DSN:             p.str("DATABASE_URL", ""),
			AutoMigrate:     p.boolean("DB_AUTO_MIGRATE", true),
			MaxIdleConns:    p.integer("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    p.integer("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		PSP: PSPConfig{
			Provider:     p.str("PIX_PROVIDER", "sulcredi"),
			BaseURL:      p.str("PIX_BASE_URL", ""),
			ClientID:     p.str("PIX_CLIENT_ID", ""),
			ClientSecret: p.str("PIX_CLIENT_SECRET", ""),
			CertPath:     p.str("PIX_CERT_PATH", ""),
			KeyPath:      p.str("PIX_KEY_PATH", ""),
			CAPath:       p.str("PIX_CA_PATH", ""),
			ReceiverKey:  p.str("PIX_RECEIVER_KEY", ""),
			Timeout:      p.duration("PIX_HTTP_TIMEOUT", 8*time.Second),
		},
		Webhook: WebhookConfig{
			Secret:    p.str("WEBHOOK_SECRET", ""),
			Tolerance: p.duration("WEBHOOK_TOLERANCE", 5*time.Minute),
		},
		API: APIConfig{
			TokenSecret: p.str("API_TOKEN_SECRET", ""),
			TokenExpiry: p.duration("API_TOKEN_EXPIRY", 24*time.Hour),
			Issuer:      p.str("API_TOKEN_ISSUER", "pixcharge"),
			RateLimit:   p.integer("RATE_LIMIT", 120),
			RateWindow:  p.duration("RATE_WINDOW", time.Minute),
		},
		Redis: RedisConfig{
			Addr:     p.str("REDIS_ADDR", ""),
			Password: p.str("REDIS_PASSWORD", ""),
			DB:       p.integer("REDIS_DB", 0),
		},
		AMQP: AMQPConfig{
			URL:      p.str("AMQP_URL", ""),
			Exchange: p.str("AMQP_EXCHANGE", "pix.events"),
		},
		Log: LogConfig{
			Level: strings.ToLower(p.str("LOG_LEVEL", "info")),
		},
	}
	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return cfg, nil
}

// Validate reports every missing or malformed setting at once, naming the
// offending field.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		if c.IsProduction() && c.PSP.Provider == "stub" {
			return errors.New("config: PIX_PROVIDER=stub is not allowed in production")
		}
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: invalid settings: %s", strings.Join(msgs, ", "))
}

type parser struct {
	errs []error
}

func (p *parser) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return d
}
