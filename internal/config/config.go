// Package config loads cartsync settings: defaults, then an optional YAML
// file, then CARTSYNC_* environment variables, validated by a CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Remote kinds.
const (
	RemoteHTTP     = "http"
	RemoteScripted = "scripted"
)

// Config is the complete cartsync configuration.
type Config struct {
	Remote        Remote        `yaml:"remote"`
	Notifications Notifications `yaml:"notifications"`
	Resync        Resync        `yaml:"resync"`
	Journal       Journal       `yaml:"journal"`
	Compare       Compare       `yaml:"compare"`
}

// Remote selects and configures the cart service adapter.
type Remote struct {
	Kind    string        `yaml:"kind"`
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// Notifications configures the notification center.
type Notifications struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxVisible int           `yaml:"maxVisible"`
}

// Resync configures periodic drift correction. Zero disables it.
type Resync struct {
	Interval time.Duration `yaml:"interval"`
}

// Journal configures the mutation journal database.
type Journal struct {
	Path string `yaml:"path"`
}

// Compare configures the compare-products list.
type Compare struct {
	Max int `yaml:"max"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Remote:        Remote{Kind: RemoteScripted, Timeout: 10 * time.Second},
		Notifications: Notifications{TTL: 3000 * time.Millisecond, MaxVisible: 5},
		Journal:       Journal{Path: "cartsync.db"},
		Compare:       Compare{Max: 3},
	}
}

// ValidationError is one schema violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load builds the configuration.
//
// path may be empty (defaults only). getenv is usually os.Getenv; tests
// pass a map lookup.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if getenv != nil {
		if err := applyEnv(&cfg, getenv); err != nil {
			return Config{}, err
		}
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(cfg); err != nil {
		// An empty file decodes to io.EOF; keep the defaults.
		if strings.TrimSpace(string(data)) == "" {
			return nil
		}
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("CARTSYNC_REMOTE_KIND", &cfg.Remote.Kind)
	str("CARTSYNC_REMOTE_BASE_URL", &cfg.Remote.BaseURL)
	str("CARTSYNC_JOURNAL_PATH", &cfg.Journal.Path)

	for _, err := range []error{
		dur("CARTSYNC_REMOTE_TIMEOUT", &cfg.Remote.Timeout),
		dur("CARTSYNC_NOTIFY_TTL", &cfg.Notifications.TTL),
		num("CARTSYNC_NOTIFY_MAX_VISIBLE", &cfg.Notifications.MaxVisible),
		dur("CARTSYNC_RESYNC_INTERVAL", &cfg.Resync.Interval),
		num("CARTSYNC_COMPARE_MAX", &cfg.Compare.Max),
	} {
		if err != nil {
			return fmt.Errorf("invalid environment override: %w", err)
		}
	}
	return nil
}

// Validate checks cfg against the embedded CUE schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.Encode(map[string]any{
		"remote": map[string]any{
			"kind":      cfg.Remote.Kind,
			"baseURL":   cfg.Remote.BaseURL,
			"timeoutMs": cfg.Remote.Timeout.Milliseconds(),
		},
		"notifications": map[string]any{
			"ttlMs":      cfg.Notifications.TTL.Milliseconds(),
			"maxVisible": cfg.Notifications.MaxVisible,
		},
		"resync":  map[string]any{"intervalMs": cfg.Resync.Interval.Milliseconds()},
		"journal": map[string]any{"path": cfg.Journal.Path},
		"compare": map[string]any{"max": cfg.Compare.Max},
	})

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError returns the first schema violation with its field path.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	format, args := first.Msg()
	return &ValidationError{
		Field:   strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
}
