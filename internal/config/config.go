// Package config reads the service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	MpesaSandbox    = "sandbox"
	MpesaProduction = "production"

	sandboxShortCode = "174379"
	sandboxPassKey   = "bfb279f9aa9bdbcf158e97dd71a467cd2e0c893059b10f78e6b72ada1ed2c919"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:5174",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:5174",
}

type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string
	Debug       bool
	LogLevel    string
	LogFile     string

	DB    Database
	Redis Redis
	JWT   JWT
	Media Media
	Mpesa Mpesa
	Admin Admin

	PublicBaseURL      string
	CORSAllowedOrigins []string
	PayRateLimit       int
	PayRateWindow      time.Duration
}

type Database struct {
	Driver   string
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type JWT struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Media struct {
	Root string
	URL  string
}

type Mpesa struct {
	Environment    string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	CallbackURL    string
	Timeout        time.Duration
}

type Admin struct {
	Username string
	Password string
	Email    string
}

// Load reads every setting, applying defaults. Malformed numbers and
// durations are errors; semantic checks are left to Validate.
func Load() (*Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		v, err := getenvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := getenvDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	boolVar := func(key string, def bool) bool {
		v, err := getenvBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		ServiceName: getenvDefault("SERVICE_NAME", "storefront"),
		Env:         getenvDefault("ENV", "dev"),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8000"),
		Debug:       boolVar("DEBUG", true),
		LogLevel:    getenvDefault("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),
		DB: Database{
			Driver:   getenvDefault("DB_DRIVER", DriverSQLite),
			DSN:      os.Getenv("DB_DSN"),
			Host:     getenvDefault("DB_HOST", "localhost"),
			Port:     getenvDefault("DB_PORT", "5432"),
			User:     getenvDefault("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getenvDefault("DB_NAME", "ecommerce_db"),
		},
		Redis: Redis{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       intVar("REDIS_DB", 0),
			CacheTTL: durVar("CACHE_TTL", 5*time.Minute),
		},
		JWT: JWT{
			Secret:     os.Getenv("JWT_SECRET"),
			AccessTTL:  durVar("JWT_ACCESS_TTL", 60*time.Minute),
			RefreshTTL: durVar("JWT_REFRESH_TTL", 24*time.Hour),
		},
		Media: Media{
			Root: getenvDefault("MEDIA_ROOT", "media"),
			URL:  getenvDefault("MEDIA_URL", "/media/"),
		},
		Mpesa: Mpesa{
			Environment:    getenvDefault("MPESA_ENVIRONMENT", MpesaSandbox),
			ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
			ShortCode:      getenvDefault("MPESA_SHORTCODE", sandboxShortCode),
			PassKey:        getenvDefault("MPESA_PASSKEY", sandboxPassKey),
			CallbackURL:    getenvDefault("MPESA_CALLBACK_URL", "https://mydomain.com/api/mpesa/callback/"),
			Timeout:        durVar("MPESA_TIMEOUT", 15*time.Second),
		},
		Admin: Admin{
			Username: os.Getenv("ADMIN_USERNAME"),
			Password: os.Getenv("ADMIN_PASSWORD"),
			Email:    os.Getenv("ADMIN_EMAIL"),
		},
		PublicBaseURL:      strings.TrimSuffix(getenvDefault("PUBLIC_BASE_URL", "http://localhost:8000"), "/"),
		CORSAllowedOrigins: splitList(getenvDefault("CORS_ALLOWED_ORIGINS", strings.Join(defaultCORSOrigins, ","))),
		PayRateLimit:       intVar("PAY_RATE_LIMIT", 5),
		PayRateWindow:      durVar("PAY_RATE_WINDOW", time.Minute),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Production() bool { return c.Env == "prod" || c.Env == "production" }

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unknown driver %q", c.DB.Driver))
	}
	switch c.Mpesa.Environment {
	case MpesaSandbox, MpesaProduction:
	default:
		errs = append(errs, fmt.Errorf("MPESA_ENVIRONMENT: must be sandbox or production, got %q", c.Mpesa.Environment))
	}
	if c.Mpesa.ConsumerKey == "" || c.Mpesa.ConsumerSecret == "" {
		errs = append(errs, errors.New("MPESA_CONSUMER_KEY and MPESA_CONSUMER_SECRET are required"))
	}
	if c.Mpesa.ShortCode == "" || c.Mpesa.PassKey == "" {
		errs = append(errs, errors.New("MPESA_SHORTCODE and MPESA_PASSKEY are required"))
	}
	if u, err := url.Parse(c.Mpesa.CallbackURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("MPESA_CALLBACK_URL: not an absolute URL: %q", c.Mpesa.CallbackURL))
	}
	if c.Mpesa.Timeout <= 0 {
		errs = append(errs, errors.New("MPESA_TIMEOUT must be positive"))
	}
	if c.JWT.Secret == "" && c.Production() {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive"))
	}
	if c.PayRateLimit < 1 || c.PayRateWindow <= 0 {
		errs = append(errs, errors.New("PAY_RATE_LIMIT and PAY_RATE_WINDOW must be positive"))
	}
	if (c.Admin.Username == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// PostgresDSN builds a DSN from the DB_* parts unless DB_DSN is set.
func (d Database) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// SQLiteDSN defaults to a file named after DB_NAME.
func (d Database) SQLiteDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return d.Name + ".sqlite3"
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
