// Package config loads bookstack settings: built-in defaults, then an
// optional YAML file, then environment overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// PathEnv names the environment variable holding the YAML config path.
const PathEnv = "BOOKSTACK_CONFIG"

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// CatalogConfig points at the OPDS catalog (Booklore).
type CatalogConfig struct {
	URL  string `yaml:"url"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	// ForceHTTPSHosts are catalog hosts whose http links are upgraded to https.
	ForceHTTPSHosts []string `yaml:"force_https_hosts"`
}

// EphemeraConfig points at the release search service.
type EphemeraConfig struct {
	URL string `yaml:"url"`
}

// SMTPConfig holds the relay used for send-to-kindle.
type SMTPConfig struct {
	Server string `yaml:"server"`
	Port   int    `yaml:"port"`
	User   string `yaml:"user"`
	Pass   string `yaml:"pass"`
}

// SeriesConfig describes the reference site.
type SeriesConfig struct {
	SiteURL           string  `yaml:"site_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Config is the root of the configuration tree.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Ephemera EphemeraConfig `yaml:"ephemera"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Series   SeriesConfig   `yaml:"series"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{ListenAddr: ":5000"},
		Catalog:  CatalogConfig{URL: "http://booklore:6060/api/v1/opds"},
		Ephemera: EphemeraConfig{URL: "http://ephemera:8286"},
		SMTP:     SMTPConfig{Server: "smtp.gmail.com", Port: 587},
		Series: SeriesConfig{
			SiteURL:           "https://www.bookseriesinorder.com",
			RequestsPerSecond: 1,
		},
		Log: LogConfig{Level: "info"},
	}
}

// env lists the environment overrides. Unset variables leave the field nil.
type env struct {
	ListenAddr        *string   `envconfig:"SERVER_LISTEN_ADDR"`
	CatalogURL        *string   `envconfig:"BOOKLORE_URL"`
	CatalogUser       *string   `envconfig:"BOOKLORE_USER"`
	CatalogPass       *string   `envconfig:"BOOKLORE_PASS"`
	ForceHTTPSHosts   *[]string `envconfig:"BOOKLORE_FORCE_HTTPS_HOSTS"`
	EphemeraURL       *string   `envconfig:"EPHEMERA_URL"`
	SMTPServer        *string   `envconfig:"SMTP_SERVER"`
	SMTPPort          *int      `envconfig:"SMTP_PORT"`
	SMTPUser          *string   `envconfig:"SMTP_USER"`
	SMTPPass          *string   `envconfig:"SMTP_PASS"`
	SeriesSiteURL     *string   `envconfig:"SERIES_SITE_URL"`
	RequestsPerSecond *float64  `envconfig:"SERIES_REQUESTS_PER_SECOND"`
	LogLevel          *string   `envconfig:"LOG_LEVEL"`
	LogJSON           *bool     `envconfig:"LOG_JSON"`
}

func (e env) apply(c *Config) {
	set(&c.Server.ListenAddr, e.ListenAddr)
	set(&c.Catalog.URL, e.CatalogURL)
	set(&c.Catalog.User, e.CatalogUser)
	set(&c.Catalog.Pass, e.CatalogPass)
	set(&c.Catalog.ForceHTTPSHosts, e.ForceHTTPSHosts)
	set(&c.Ephemera.URL, e.EphemeraURL)
	set(&c.SMTP.Server, e.SMTPServer)
	set(&c.SMTP.Port, e.SMTPPort)
	set(&c.SMTP.User, e.SMTPUser)
	set(&c.SMTP.Pass, e.SMTPPass)
	set(&c.Series.SiteURL, e.SeriesSiteURL)
	set(&c.Series.RequestsPerSecond, e.RequestsPerSecond)
	set(&c.Log.Level, e.LogLevel)
	set(&c.Log.JSON, e.LogJSON)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Load builds the configuration. path may be empty, in which case
// $BOOKSTACK_CONFIG is used when set.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	var overrides env
	if err := envconfig.Process("", &overrides); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	overrides.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type invalidErr string

func (e invalidErr) Error() string { return "invalid config: " + string(e) }

// ErrInvalid builds a validation error.
func ErrInvalid(format string, args ...any) error {
	return invalidErr(fmt.Sprintf(format, args...))
}

// Validate checks the settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return ErrInvalid("server.listen_addr is required")
	}
	for name, raw := range map[string]string{
		"catalog.url":     c.Catalog.URL,
		"ephemera.url":    c.Ephemera.URL,
		"series.site_url": c.Series.SiteURL,
	} {
		if err := validateURL(raw); err != nil {
			return ErrInvalid("%s: %v", name, err)
		}
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return ErrInvalid("smtp.port %d out of range", c.SMTP.Port)
	}
	if c.Series.RequestsPerSecond < 0 {
		return ErrInvalid("series.requests_per_second must not be negative")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return ErrInvalid("log.level: %v", err)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// ForcesHTTPS reports whether host is listed in force_https_hosts.
// Subdomains of a listed host match too.
func (c CatalogConfig) ForcesHTTPS(host string) bool {
	host = strings.ToLower(host)
	for _, h := range c.ForceHTTPSHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" && (host == h || strings.HasSuffix(host, "."+h)) {
			return true
		}
	}
	return false
}
