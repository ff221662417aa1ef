// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Store      StoreConfig      `mapstructure:"store"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Mail       MailConfig       `mapstructure:"mail"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	YouTube    YouTubeConfig    `mapstructure:"youtube"`
	Reddit     RedditConfig     `mapstructure:"reddit"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"` // development, production
	Version         string        `mapstructure:"version"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c ServerConfig) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development") || strings.EqualFold(c.Environment, "dev")
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	ResetTokenTTL  time.Duration `mapstructure:"reset_token_ttl"`
	// BaseURL is the frontend origin used to build password reset links.
	BaseURL string `mapstructure:"base_url"`
}

type StoreConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, mongo, memory
	DatabaseURL     string        `mapstructure:"database_url"`
	MongoURL        string        `mapstructure:"mongo_url"`
	MongoDatabase   string        `mapstructure:"mongo_database"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL               string `mapstructure:"url"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	BurstSize         int    `mapstructure:"burst_size"`
}

type MailConfig struct {
	Transport       string        `mapstructure:"transport"` // smtp, resend, log
	From            string        `mapstructure:"from"`
	SupportInbox    string        `mapstructure:"support_inbox"`
	SMTPServer      string        `mapstructure:"smtp_server"`
	SMTPPort        int           `mapstructure:"smtp_port"`
	SMTPUser        string        `mapstructure:"smtp_user"`
	SMTPPassword    string        `mapstructure:"smtp_password"`
	ResendAPIKey    string        `mapstructure:"resend_api_key"`
	ResendBaseURL   string        `mapstructure:"resend_base_url"`
	MaxEmailsPerDay int           `mapstructure:"max_emails_per_day"`
	QueueSize       int           `mapstructure:"queue_size"`
	Workers         int           `mapstructure:"workers"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay"`
}

type ClassifierConfig struct {
	HFToken     string        `mapstructure:"hf_token"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	MaxChars    int           `mapstructure:"max_chars"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type YouTubeConfig struct {
	APIKey      string `mapstructure:"api_key"`
	MaxComments int    `mapstructure:"max_comments"`
}

type RedditConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	UserAgent    string `mapstructure:"user_agent"`
	TokenURL     string `mapstructure:"token_url"`
	APIBaseURL   string `mapstructure:"api_base_url"`
	MaxComments  int    `mapstructure:"max_comments"`
}

// envBindings maps config keys to the environment variables that feed them.
// The first name is preferred; later names are accepted for compatibility.
var envBindings = map[string][]string{
	"server.port":             {"PORT"},
	"server.environment":      {"APP_ENV"},
	"server.allowed_origins":  {"CORS_ALLOWED_ORIGINS"},
	"auth.jwt_secret":         {"JWT_SECRET", "JWT_SECRET_KEY"},
	"auth.access_token_ttl":   {"ACCESS_TOKEN_TTL"},
	"auth.reset_token_ttl":    {"RESET_TOKEN_TTL"},
	"auth.base_url":           {"BASE_URL"},
	"store.driver":            {"STORE_DRIVER"},
	"store.database_url":      {"DATABASE_URL"},
	"store.mongo_url":         {"MONGO_URL"},
	"store.mongo_database":    {"MONGO_DATABASE"},
	"redis.url":               {"REDIS_URL"},
	"mail.transport":          {"MAIL_TRANSPORT"},
	"mail.from":               {"EMAIL_FROM", "EMAIL_USER"},
	"mail.support_inbox":      {"SUPPORT_INBOX", "EMAIL_USER"},
	"mail.smtp_server":        {"SMTP_SERVER"},
	"mail.smtp_port":          {"SMTP_PORT"},
	"mail.smtp_user":          {"SMTP_USER", "EMAIL_USER"},
	"mail.smtp_password":      {"SMTP_PASSWORD", "EMAIL_PASSWORD"},
	"mail.resend_api_key":     {"RESEND_API_KEY"},
	"mail.max_emails_per_day": {"MAX_EMAILS_PER_DAY"},
	"classifier.hf_token":     {"HF_TOKEN"},
	"classifier.model":        {"HF_MODEL"},
	"classifier.base_url":     {"HF_BASE_URL"},
	"youtube.api_key":         {"YOUTUBE_API_KEY"},
	"reddit.client_id":        {"REDDIT_CLIENT_ID"},
	"reddit.client_secret":    {"REDDIT_CLIENT_SECRET"},
	"reddit.user_agent":       {"REDDIT_USER_AGENT"},
}

// Load reads configuration from an optional .env file, an optional
// config.yaml and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case "mongo":
		if c.Store.MongoURL == "" {
			return errors.New("MONGO_URL is required for the mongo store")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Mail.Transport {
	case "smtp", "resend", "log":
	default:
		return fmt.Errorf("unknown MAIL_TRANSPORT %q", c.Mail.Transport)
	}
	return nil
}

func (c *Config) normalize() {
	if c.Store.Driver == "" {
		switch {
		case c.Store.DatabaseURL != "":
			c.Store.Driver = "postgres"
		case c.Store.MongoURL != "":
			c.Store.Driver = "mongo"
		default:
			c.Store.Driver = "memory"
		}
	}
	if c.Mail.Transport == "" {
		switch {
		case c.Mail.ResendAPIKey != "":
			c.Mail.Transport = "resend"
		case c.Mail.SMTPPassword != "":
			c.Mail.Transport = "smtp"
		default:
			c.Mail.Transport = "log"
		}
	}
	// Env lists arrive as a single comma separated value.
	if len(c.Server.AllowedOrigins) == 1 && strings.Contains(c.Server.AllowedOrigins[0], ",") {
		c.Server.AllowedOrigins = strings.Split(c.Server.AllowedOrigins[0], ",")
	}
	for i, o := range c.Server.AllowedOrigins {
		c.Server.AllowedOrigins[i] = strings.TrimSpace(o)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "production")
	v.SetDefault("server.version", "1.0.0")
	v.SetDefault("server.allowed_origins", []string{
		"https://sentiment-sense.netlify.app",
		"https://sentiment.mohsinabbas.site",
	})
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("auth.access_token_ttl", "400m")
	v.SetDefault("auth.reset_token_ttl", "60m")
	v.SetDefault("auth.base_url", "http://sentiment-sense.netlify.app")

	v.SetDefault("store.mongo_database", "sentiment_analysis")
	v.SetDefault("store.max_open_conns", 10)
	v.SetDefault("store.conn_max_lifetime", "2h")

	v.SetDefault("redis.requests_per_minute", 60)
	v.SetDefault("redis.burst_size", 10)

	v.SetDefault("mail.smtp_server", "smtp.gmail.com")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.resend_base_url", "https://api.resend.com")
	v.SetDefault("mail.max_emails_per_day", 10)
	v.SetDefault("mail.queue_size", 100)
	v.SetDefault("mail.workers", 2)
	v.SetDefault("mail.max_attempts", 5)
	v.SetDefault("mail.retry_base_delay", "2s")

	v.SetDefault("classifier.model", "j-hartmann/emotion-english-distilroberta-base")
	v.SetDefault("classifier.base_url", "https://router.huggingface.co/hf-inference/models")
	v.SetDefault("classifier.max_chars", 512)
	v.SetDefault("classifier.concurrency", 8)
	v.SetDefault("classifier.timeout", "30s")

	v.SetDefault("youtube.max_comments", 500)

	v.SetDefault("reddit.user_agent", "Sentiment Analysis")
	v.SetDefault("reddit.token_url", "https://www.reddit.com/api/v1/access_token")
	v.SetDefault("reddit.api_base_url", "https://oauth.reddit.com")
	v.SetDefault("reddit.max_comments", 500)
}
