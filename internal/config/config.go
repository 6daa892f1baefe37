// Package config loads finflow configuration.
//
// Values come from three layers, later layers winning: built-in defaults, an
// optional YAML file, and FINFLOW_* environment variables. The merged result
// is checked against an embedded CUE schema before use.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/finflow/internal/extract"
	"github.com/roach88/finflow/internal/fin"
)

// Config is the complete finflow configuration.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Thresholds fin.Thresholds   `json:"thresholds" yaml:"thresholds"`
	Defaults   DefaultsConfig   `json:"defaults" yaml:"defaults"`
	Review     ReviewConfig     `json:"review" yaml:"review"`
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint"`
	Documents  DocumentsConfig  `json:"documents" yaml:"documents"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Events     EventsConfig     `json:"events" yaml:"events"`
	Telemetry  TelemetryConfig  `json:"telemetry" yaml:"telemetry"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

type ServerConfig struct {
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	BodyLimitMB int    `json:"body_limit_mb" yaml:"body_limit_mb"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DefaultsConfig struct {
	Currency string `json:"currency" yaml:"currency"`
	Scale    string `json:"scale" yaml:"scale"`
	Period   string `json:"period" yaml:"period"`
}

// Normalizer returns the defaults in the form the engine takes. Scale has
// already been checked by Validate.
func (d DefaultsConfig) Normalizer() extract.Defaults {
	scale, _ := fin.ParseScale(d.Scale)
	return extract.Defaults{Currency: d.Currency, Scale: scale, Period: d.Period}
}

type ReviewConfig struct {
	// MaxRounds caps review suspensions per run. Zero means unlimited.
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`
}

type CheckpointConfig struct {
	// Driver is sqlite, postgres, redis or memory.
	Driver string `json:"driver" yaml:"driver"`
	// DSN is a file path for sqlite and a URL for postgres and redis.
	DSN string `json:"dsn" yaml:"dsn"`
}

type DocumentsConfig struct {
	// Driver is local or azblob. Documents are always kept under Dir;
	// azblob additionally uploads them for remote extraction.
	Driver           string `json:"driver" yaml:"driver"`
	Dir              string `json:"dir" yaml:"dir"`
	Container        string `json:"container" yaml:"container"`
	ConnectionString string `json:"connection_string" yaml:"connection_string"`
	AccountURL       string `json:"account_url" yaml:"account_url"`
}

type ExtractionConfig struct {
	// Provider is vertex, file or none.
	Provider   string         `json:"provider" yaml:"provider"`
	Project    string         `json:"project" yaml:"project"`
	Location   string         `json:"location" yaml:"location"`
	Model      string         `json:"model" yaml:"model"`
	FixtureDir string         `json:"fixture_dir" yaml:"fixture_dir"`
	Limits     extract.Limits `json:"limits" yaml:"limits"`
	Timeout    time.Duration  `json:"timeout" yaml:"timeout"`
}

type EventsConfig struct {
	// Driver is none, gochannel or kafka.
	Driver  string   `json:"driver" yaml:"driver"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
}

type TelemetryConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Endpoint    string `json:"endpoint" yaml:"endpoint"`
	Insecure    bool   `json:"insecure" yaml:"insecure"`
	ServiceName string `json:"service_name" yaml:"service_name"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns the built-in configuration: a local sqlite store under
// ./storage, no extraction provider and no event broker.
func Default() *Config {
	return &Config{
		Server:     ServerConfig{Host: "0.0.0.0", Port: 8000, BodyLimitMB: 25},
		Thresholds: fin.DefaultThresholds(),
		Defaults: DefaultsConfig{
			Currency: "MXN",
			Scale:    string(fin.ScaleUnit),
			Period:   extract.UnknownPeriod,
		},
		Checkpoint: CheckpointConfig{Driver: "sqlite", DSN: "storage/checkpoints.db"},
		Documents:  DocumentsConfig{Driver: "local", Dir: "storage/docs"},
		Extraction: ExtractionConfig{
			Provider: "none",
			Location: "us-central1",
			Model:    "gemini-2.0-flash",
			Limits:   extract.DefaultLimits(),
			Timeout:  2 * time.Minute,
		},
		Events:    EventsConfig{Driver: "none", Brokers: []string{}, Topic: "finflow.runs"},
		Telemetry: TelemetryConfig{ServiceName: "finflow"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the process environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
