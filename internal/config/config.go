package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const defaultPath = "config.yaml"

// PaperSize is a page size in millimeters.
type PaperSize struct {
	Width  float64 `yaml:"width" validate:"gt=0"`
	Height float64 `yaml:"height" validate:"gt=0"`
}

// PostgresConfig describes the itinerary database.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"gte=0,lte=65535"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// S3Config describes the optional archive bucket for generated PDFs.
type S3Config struct {
	Enabled      bool   `yaml:"enabled"`
	Bucket       string `yaml:"bucket" validate:"required_if=Enabled true"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Config is the service configuration.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Limits struct {
		MaxSnapshotBytes int `yaml:"max_snapshot_bytes" validate:"gte=0"`
		MaxPDFBytes      int `yaml:"max_pdf_bytes" validate:"gte=0"`
	} `yaml:"limits"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Redis struct {
		Host        string `yaml:"host"`
		RateLimitDB int    `yaml:"rate_limit_db" validate:"gte=0"`
		LockDB      int    `yaml:"lock_db" validate:"gte=0"`
		ItineraryDB int    `yaml:"itinerary_db" validate:"gte=0"`
	} `yaml:"redis"`

	RateLimiter struct {
		Interval  time.Duration `yaml:"interval"`
		UserLimit int           `yaml:"user_limit" validate:"gte=0"`
	} `yaml:"rate_limiter"`

	PDF struct {
		DefaultPaper    string               `yaml:"default_paper"`
		PaperSizes      map[string]PaperSize `yaml:"paper_sizes" validate:"dive"`
		Orientation     string               `yaml:"orientation" validate:"omitempty,oneof=portrait landscape"`
		MarginMM        float64              `yaml:"margin_mm" validate:"gte=0"`
		TimeoutSecs     int                  `yaml:"timeout_secs" validate:"gte=0"`
		ChromePath      string               `yaml:"chrome_path"`
		ChromeNoSandbox bool                 `yaml:"chrome_no_sandbox"`
		ChromePoolSize  int                  `yaml:"chrome_pool_size" validate:"gte=0"`
		UserDataDir     string               `yaml:"user_data_dir"`
	} `yaml:"pdf"`

	Export struct {
		TemplateWidth   int           `yaml:"template_width" validate:"gt=0"`
		Scale           float64       `yaml:"scale" validate:"gt=0,lte=4"`
		SettleTimeout   time.Duration `yaml:"settle_timeout"`
		SettleInterval  time.Duration `yaml:"settle_interval"`
		LockTTL         time.Duration `yaml:"lock_ttl"`
		DefaultCurrency string        `yaml:"default_currency" validate:"len=3"`
		LogoURL         string        `yaml:"logo_url"`
		BrandName       string        `yaml:"brand_name"`
		BrandTagline    string        `yaml:"brand_tagline"`
		ContactEmail    string        `yaml:"contact_email"`
		ContactPhone    string        `yaml:"contact_phone"`
	} `yaml:"export"`

	Repository struct {
		Driver   string         `yaml:"driver" validate:"oneof=memory redis postgres"`
		Postgres PostgresConfig `yaml:"postgres"`
	} `yaml:"repository"`

	Storage struct {
		S3 S3Config `yaml:"s3"`
	} `yaml:"storage"`
}

// Default returns a configuration usable without a config file: A4 pages,
// 10mm margins, an in-memory repository and no Chrome pool.
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

// Load reads the file named by CONFIG_PATH, or config.yaml. When neither is
// set and config.yaml does not exist, defaults are returned.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat(defaultPath); errors.Is(err, os.ErrNotExist) {
			return Default()
		}
		path = defaultPath
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates the YAML file at path. It panics on unreadable
// files and invalid values.
func LoadFrom(path string) Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		panic(fmt.Sprintf("config: parse %s: %v", path, err))
	}
	applyDefaults(&cfg)

	if v := os.Getenv("CHROME_BIN"); v != "" && cfg.PDF.ChromePath == "" {
		cfg.PDF.ChromePath = v
	}

	if err := Validate(cfg); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// Validate checks field constraints and page geometry.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	paper, ok := cfg.PDF.PaperSizes[strings.ToUpper(cfg.PDF.DefaultPaper)]
	if !ok {
		return fmt.Errorf("default paper %q not configured", cfg.PDF.DefaultPaper)
	}
	if 2*cfg.PDF.MarginMM >= paper.Width || 2*cfg.PDF.MarginMM >= paper.Height {
		return fmt.Errorf("margin %.1fmm leaves no content area on %s", cfg.PDF.MarginMM, cfg.PDF.DefaultPaper)
	}
	if cfg.Repository.Driver == "postgres" && cfg.Repository.Postgres.Host == "" {
		return errors.New("repository.postgres.host is required for the postgres driver")
	}
	return nil
}

// Paper returns the page size for format and orientation, falling back to
// the configured defaults when either is empty.
func (c Config) Paper(format, orientation string) (PaperSize, bool) {
	if format == "" {
		format = c.PDF.DefaultPaper
	}
	paper, ok := c.PDF.PaperSizes[strings.ToUpper(format)]
	if !ok {
		return PaperSize{}, false
	}
	if orientation == "" {
		orientation = c.PDF.Orientation
	}
	if orientation == "landscape" {
		paper.Width, paper.Height = paper.Height, paper.Width
	}
	return paper, true
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Limits.MaxSnapshotBytes == 0 {
		cfg.Limits.MaxSnapshotBytes = 1 << 20
	}
	if cfg.Limits.MaxPDFBytes == 0 {
		cfg.Limits.MaxPDFBytes = 50 << 20
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.RateLimiter.Interval == 0 {
		cfg.RateLimiter.Interval = time.Minute
	}
	if cfg.PDF.DefaultPaper == "" {
		cfg.PDF.DefaultPaper = "A4"
	}
	if len(cfg.PDF.PaperSizes) == 0 {
		cfg.PDF.PaperSizes = map[string]PaperSize{
			"A4":     {Width: 210, Height: 297},
			"LETTER": {Width: 215.9, Height: 279.4},
		}
	}
	if cfg.PDF.Orientation == "" {
		cfg.PDF.Orientation = "portrait"
	}
	if cfg.PDF.MarginMM == 0 {
		cfg.PDF.MarginMM = 10
	}
	if cfg.PDF.TimeoutSecs == 0 {
		cfg.PDF.TimeoutSecs = 30
	}
	if cfg.Export.TemplateWidth == 0 {
		cfg.Export.TemplateWidth = 800
	}
	if cfg.Export.Scale == 0 {
		cfg.Export.Scale = 2
	}
	if cfg.Export.SettleTimeout == 0 {
		cfg.Export.SettleTimeout = 1500 * time.Millisecond
	}
	if cfg.Export.SettleInterval == 0 {
		cfg.Export.SettleInterval = 50 * time.Millisecond
	}
	if cfg.Export.LockTTL == 0 {
		cfg.Export.LockTTL = 2 * time.Minute
	}
	if cfg.Export.DefaultCurrency == "" {
		cfg.Export.DefaultCurrency = "USD"
	}
	if cfg.Export.BrandName == "" {
		cfg.Export.BrandName = "VIGOVIA"
	}
	if cfg.Export.BrandTagline == "" {
		cfg.Export.BrandTagline = "Travel & Tourism"
	}
	if cfg.Repository.Driver == "" {
		cfg.Repository.Driver = "memory"
	}
}
