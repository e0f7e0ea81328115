package config

import (
	"fmt"
	"net/url"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the complete solrload configuration.
type Config struct {
	Solr    SolrConfig    `koanf:"solr"`
	Batch   BatchConfig   `koanf:"batch"`
	Loader  LoaderConfig  `koanf:"loader"`
	Logging LoggingConfig `koanf:"logging"`
}

type SolrConfig struct {
	URL            string    `koanf:"url"`
	Username       string    `koanf:"username"`
	Password       string    `koanf:"password"`
	UpdateFormat   string    `koanf:"update_format"` // "xml" or "json"
	TimeoutSeconds int       `koanf:"timeout_seconds"`
	TLSConfig      TLSConfig `koanf:"tls"`
}

type TLSConfig struct {
	SkipVerify bool   `koanf:"skip_verify"`
	CACert     string `koanf:"ca_cert"`
}

type BatchConfig struct {
	Size       int  `koanf:"size"`
	AutoCommit bool `koanf:"auto_commit"`
}

type LoaderConfig struct {
	Files       []string `koanf:"files"`    // NDJSON file globs
	Schedule    string   `koanf:"schedule"` // cron spec; empty means run once
	CommitAtEnd bool     `koanf:"commit_at_end"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Load reads configuration from the given YAML file path.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Solr.UpdateFormat == "" {
		cfg.Solr.UpdateFormat = "xml"
	}
	if cfg.Solr.TimeoutSeconds <= 0 {
		cfg.Solr.TimeoutSeconds = 60
	}
	if cfg.Batch.Size <= 0 {
		cfg.Batch.Size = 500
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func validate(cfg *Config) error {
	if cfg.Solr.URL == "" {
		return fmt.Errorf("solr.url is required")
	}
	if _, err := url.Parse(cfg.Solr.URL); err != nil {
		return fmt.Errorf("invalid solr.url: %w", err)
	}

	if cfg.Solr.UpdateFormat != "xml" && cfg.Solr.UpdateFormat != "json" {
		return fmt.Errorf("solr.update_format must be \"xml\" or \"json\", got %q", cfg.Solr.UpdateFormat)
	}

	if len(cfg.Loader.Files) == 0 {
		return fmt.Errorf("loader.files is required")
	}

	return nil
}
