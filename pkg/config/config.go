package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ScraperConfig holds listing-site and fetch settings.
type ScraperConfig struct {
	BaseURL           string        `yaml:"base_url"`
	PagesToScrape     int           `yaml:"pages_to_scrape"`
	Proxy             string        `yaml:"proxy"`
	Workers           string        `yaml:"workers"`
	UserAgent         string        `yaml:"user_agent"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Retries           int           `yaml:"retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	Timeout           time.Duration `yaml:"timeout"`
}

// ImagesConfig holds settings for image downloads.
type ImagesConfig struct {
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

// OutputConfig says where a run's results end up.
type OutputConfig struct {
	File     string `yaml:"file"`
	Database string `yaml:"database"`
}

// CacheConfig controls how long the price cache lives: "run" or "process".
type CacheConfig struct {
	Scope string `yaml:"scope"`
}

// ServerConfig holds the trigger API settings.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	ApiKey string `yaml:"api_key"`
}

// Config is the complete structure for the config.yml file.
type Config struct {
	Scraper ScraperConfig `yaml:"scraper"`
	Images  ImagesConfig  `yaml:"images"`
	Output  OutputConfig  `yaml:"output"`
	Cache   CacheConfig   `yaml:"cache"`
	Server  ServerConfig  `yaml:"server"`
}

const (
	CacheScopeRun     = "run"
	CacheScopeProcess = "process"
)

// Default returns the configuration used for every field config.yml leaves empty.
func Default() Config {
	return Config{
		Scraper: ScraperConfig{
			BaseURL:       "https://dentalstall.com/shop/page/",
			PagesToScrape: 5,
			Workers:       "1",
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
			Retries:       3,
			RetryDelay:    5 * time.Second,
			Timeout:       30 * time.Second,
		},
		Images: ImagesConfig{
			Dir:     "images",
			Timeout: 10 * time.Second,
		},
		Output: OutputConfig{
			File:     "scraped_products.json",
			Database: "products.db",
		},
		Cache: CacheConfig{
			Scope: CacheScopeProcess,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// LoadConfig reads filepath and fills in anything it leaves out from Default.
// A missing file is not an error.
func LoadConfig(filepath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filepath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("Config file %s not found, using defaults", filepath)
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshalling config YAML: %w", err)
		}
	}

	if err := mergo.Merge(&cfg, Default()); err != nil {
		return nil, fmt.Errorf("applying config defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values that cannot drive a run.
func (c *Config) Validate() error {
	if c.Scraper.PagesToScrape < 1 {
		return fmt.Errorf("scraper.pages_to_scrape must be positive, got %d", c.Scraper.PagesToScrape)
	}
	if c.Scraper.Retries < 1 {
		return fmt.Errorf("scraper.retries must be positive, got %d", c.Scraper.Retries)
	}
	if c.Scraper.RequestsPerSecond < 0 {
		return fmt.Errorf("scraper.requests_per_second must not be negative")
	}
	switch c.Cache.Scope {
	case CacheScopeRun, CacheScopeProcess:
	default:
		return fmt.Errorf("cache.scope must be %q or %q, got %q", CacheScopeRun, CacheScopeProcess, c.Cache.Scope)
	}
	return nil
}
