package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env             string        `yaml:"env"`
	Port            int           `yaml:"port"`
	LogJSON         bool          `yaml:"logJson"`
	DatabaseURL     string        `yaml:"databaseUrl"`
	Stripe          Stripe        `yaml:"stripe"`
	Currency        string        `yaml:"currency"`
	Fee             Fee           `yaml:"fee"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	FrontendURL     string        `yaml:"frontendUrl"`
	Email           Email         `yaml:"email"`
	Links           Links         `yaml:"links"`
	RateLimit       RateLimit     `yaml:"rateLimit"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type Stripe struct {
	SecretKey     string `yaml:"secretKey"`
	WebhookSecret string `yaml:"webhookSecret"`
}

type Fee struct {
	Rate  string `yaml:"rate"`
	Fixed int64  `yaml:"fixed"`
}

type Email struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	From string `yaml:"from"`
}

// Links configures signed checkout links. An empty secret disables them.
type Links struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

func Default() Config {
	return Config{
		Env:             "dev",
		Port:            5000,
		LogJSON:         true,
		Currency:        "usd",
		Fee:             Fee{Rate: "0.02", Fixed: 30},
		AllowedOrigins:  []string{"http://localhost:5173"},
		FrontendURL:     "http://localhost:5173",
		Email:           Email{Port: 587},
		Links:           Links{TTL: 7 * 24 * time.Hour},
		RateLimit:       RateLimit{RPS: 5, Burst: 20},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load layers an optional YAML file and then the environment over Default.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return fromEnv(c), nil
}

func fromEnv(c Config) Config {
	if v := os.Getenv("MARKETPAY_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("MARKETPAY_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("MARKETPAY_LOG_JSON"); v != "" {
		switch v {
		case "1", "true", "TRUE":
			c.LogJSON = true
		case "0", "false", "FALSE":
			c.LogJSON = false
		}
	}
	if v := os.Getenv("MARKETPAY_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("MARKETPAY_STRIPE_SECRET_KEY"); v != "" {
		c.Stripe.SecretKey = v
	}
	if v := os.Getenv("MARKETPAY_STRIPE_WEBHOOK_SECRET"); v != "" {
		c.Stripe.WebhookSecret = v
	}
	if v := os.Getenv("MARKETPAY_CURRENCY"); v != "" {
		c.Currency = strings.ToLower(v)
	}
	if v := os.Getenv("MARKETPAY_FEE_RATE"); v != "" {
		c.Fee.Rate = v
	}
	if v := os.Getenv("MARKETPAY_FEE_FIXED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Fee.Fixed = n
		}
	}
	if v := os.Getenv("MARKETPAY_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("MARKETPAY_FRONTEND_URL"); v != "" {
		c.FrontendURL = v
	}
	if v := os.Getenv("MARKETPAY_EMAIL_HOST"); v != "" {
		c.Email.Host = v
	}
	if v := os.Getenv("MARKETPAY_EMAIL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Email.Port = p
		}
	}
	if v := os.Getenv("MARKETPAY_EMAIL_USER"); v != "" {
		c.Email.User = v
	}
	if v := os.Getenv("MARKETPAY_EMAIL_PASS"); v != "" {
		c.Email.Pass = v
	}
	if v := os.Getenv("MARKETPAY_EMAIL_FROM"); v != "" {
		c.Email.From = v
	}
	if v := os.Getenv("MARKETPAY_LINK_SECRET"); v != "" {
		c.Links.Secret = v
	}
	if v := os.Getenv("MARKETPAY_LINK_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Links.TTL = d
		}
	}
	if v := os.Getenv("MARKETPAY_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("MARKETPAY_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("MARKETPAY_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ShutdownTimeout = d
		}
	}
	return c
}

// Validate reports settings the HTTP server cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("stripe secret key is required (MARKETPAY_STRIPE_SECRET_KEY)"))
	}
	if c.Currency == "" {
		errs = append(errs, errors.New("currency is required"))
	}
	if len(c.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("at least one allowed origin is required (MARKETPAY_ALLOWED_ORIGINS)"))
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	return errors.Join(errs...)
}

func (c Config) IsDev() bool {
	return c.Env == "dev"
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
