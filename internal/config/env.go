package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FINFLOW_"

type lookupFunc func(key string) (string, bool)

// envBinding maps one variable onto a field.
type envBinding struct {
	key string
	set func(c *Config, v string) error
}

func str(dst func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func integer(dst func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func float(dst func(c *Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst(c) = f
		return nil
	}
}

func boolean(dst func(c *Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

var envBindings = []envBinding{
	{"SERVER_HOST", str(func(c *Config) *string { return &c.Server.Host })},
	{"SERVER_PORT", integer(func(c *Config) *int { return &c.Server.Port })},
	{"SERVER_BODY_LIMIT_MB", integer(func(c *Config) *int { return &c.Server.BodyLimitMB })},
	{"CONF_HIGH", float(func(c *Config) *float64 { return &c.Thresholds.High })},
	{"CONF_MED", float(func(c *Config) *float64 { return &c.Thresholds.Medium })},
	{"BASE_CURRENCY", str(func(c *Config) *string { return &c.Defaults.Currency })},
	{"SCALE_DEFAULT", str(func(c *Config) *string { return &c.Defaults.Scale })},
	{"REVIEW_MAX_ROUNDS", integer(func(c *Config) *int { return &c.Review.MaxRounds })},
	{"CHECKPOINT_DRIVER", str(func(c *Config) *string { return &c.Checkpoint.Driver })},
	{"CHECKPOINT_DSN", str(func(c *Config) *string { return &c.Checkpoint.DSN })},
	{"DOCUMENTS_DRIVER", str(func(c *Config) *string { return &c.Documents.Driver })},
	{"DOCUMENTS_DIR", str(func(c *Config) *string { return &c.Documents.Dir })},
	{"DOCUMENTS_CONTAINER", str(func(c *Config) *string { return &c.Documents.Container })},
	{"AZURE_STORAGE_CONNECTION_STRING", str(func(c *Config) *string { return &c.Documents.ConnectionString })},
	{"AZURE_STORAGE_ACCOUNT_URL", str(func(c *Config) *string { return &c.Documents.AccountURL })},
	{"EXTRACTION_PROVIDER", str(func(c *Config) *string { return &c.Extraction.Provider })},
	{"GCP_PROJECT", str(func(c *Config) *string { return &c.Extraction.Project })},
	{"GCP_LOCATION", str(func(c *Config) *string { return &c.Extraction.Location })},
	{"VERTEX_MODEL_ID", str(func(c *Config) *string { return &c.Extraction.Model })},
	{"EXTRACTION_FIXTURE_DIR", str(func(c *Config) *string { return &c.Extraction.FixtureDir })},
	{"EXTRACTION_TIMEOUT", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.Extraction.Timeout = d
		return nil
	}},
	{"EVENTS_DRIVER", str(func(c *Config) *string { return &c.Events.Driver })},
	{"EVENTS_BROKERS", func(c *Config, v string) error {
		c.Events.Brokers = splitList(v)
		return nil
	}},
	{"EVENTS_TOPIC", str(func(c *Config) *string { return &c.Events.Topic })},
	{"TELEMETRY_ENABLED", boolean(func(c *Config) *bool { return &c.Telemetry.Enabled })},
	{"TELEMETRY_ENDPOINT", str(func(c *Config) *string { return &c.Telemetry.Endpoint })},
	{"TELEMETRY_INSECURE", boolean(func(c *Config) *bool { return &c.Telemetry.Insecure })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
	{"LOG_FORMAT", str(func(c *Config) *string { return &c.Log.Format })},
}

// applyEnv overlays FINFLOW_* variables. Empty values are ignored.
func (c *Config) applyEnv(lookup lookupFunc) error {
	for _, b := range envBindings {
		v, ok := lookup(EnvPrefix + b.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := b.set(c, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, b.key, err)
		}
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
