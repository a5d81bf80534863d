package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
)

// Duration is a time.Duration written as a string such
// as "30s" in configuration files.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parsing duration: %w", err)
	}

	*d = Duration(v)

	return nil
}

// MarshalText renders the duration as a Go duration
// string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Retry bounds retries of transient remote failures.
type Retry struct {
	MaxAttempts int      `json:"max_attempts" toml:"max_attempts" yaml:"max_attempts"`
	BaseDelay   Duration `json:"base_delay"   toml:"base_delay"   yaml:"base_delay"`
	MaxDelay    Duration `json:"max_delay"    toml:"max_delay"    yaml:"max_delay"`
}

// Templates holds the text templates of a submission.
// A value starting with '@' names a template file.
type Templates struct {
	Commit    string   `json:"commit"    toml:"commit"    yaml:"commit"`
	Title     string   `json:"title"     toml:"title"     yaml:"title"`
	Body      string   `json:"body"      toml:"body"      yaml:"body"`
	StartTag  string   `json:"start_tag" toml:"start_tag" yaml:"start_tag"`
	EndTag    string   `json:"end_tag"   toml:"end_tag"   yaml:"end_tag"`
	Variables []string `json:"variables" toml:"variables" yaml:"variables"`
}

// Config is the run configuration.
type Config struct {
	// Owner and Name identify the upstream repository.
	Owner string `json:"owner" toml:"owner" yaml:"owner"`
	Name  string `json:"name"  toml:"name"  yaml:"name"`
	// ForkOwner owns the head repository; empty means
	// the credential's owner.
	ForkOwner      string `json:"fork_owner"      toml:"fork_owner"      yaml:"fork_owner"`
	CreateFork     bool   `json:"create_fork"     toml:"create_fork"     yaml:"create_fork"`
	EnterpriseHost string `json:"enterprise_host" toml:"enterprise_host" yaml:"enterprise_host"`
	// ManifestRoot is the repository directory holding
	// all packages.
	ManifestRoot      string    `json:"manifest_root"       toml:"manifest_root"       yaml:"manifest_root"`
	Retry             Retry     `json:"retry"               toml:"retry"               yaml:"retry"`
	CommitAttempts    int       `json:"commit_attempts"     toml:"commit_attempts"     yaml:"commit_attempts"`
	Concurrency       int       `json:"concurrency"         toml:"concurrency"         yaml:"concurrency"`
	RequestsPerSecond float64   `json:"requests_per_second" toml:"requests_per_second" yaml:"requests_per_second"`
	Depth             int       `json:"depth"               toml:"depth"               yaml:"depth"`
	MaxTextSize       int       `json:"max_text_size"       toml:"max_text_size"       yaml:"max_text_size"`
	Amend             bool      `json:"amend"               toml:"amend"               yaml:"amend"`
	Draft             bool      `json:"draft"               toml:"draft"               yaml:"draft"`
	DryRun            bool      `json:"dry_run"             toml:"dry_run"             yaml:"dry_run"`
	Labels            []string  `json:"labels"              toml:"labels"              yaml:"labels"`
	Templates         Templates `json:"templates"          toml:"templates"           yaml:"templates"`
}

// Default returns the configuration used for unset
// fields.
func Default() Config {
	return Config{
		ManifestRoot: "manifests",
		Retry: Retry{
			MaxAttempts: 5,
			BaseDelay:   Duration(time.Second),
			MaxDelay:    Duration(time.Minute),
		},
		CommitAttempts: 3,
		Concurrency:    4,
		Depth:          2,
		MaxTextSize:    1 << 20,
	}
}

// Load reads the file at path over Default. The format
// follows the extension: .yaml/.yml, .toml, or .json.
func Load(path string) (Config, error) {
	const errCtx = "loading config"

	raw, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	cfg := Default()

	if err := decode(filepath.Ext(path), raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %s: %w", errCtx, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %s: %w", errCtx, path, err)
	}

	return cfg, nil
}

func decode(ext string, raw []byte, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}

		return yaml.Unmarshal(raw, cfg)
	case ".toml":
		_, err := toml.Decode(string(raw), cfg)

		return err
	case ".json":
		return json.Unmarshal(raw, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

// Validate checks the fields and fills zero values
// with defaults where a zero is meaningless. A zero
// depth is kept and lifts the level limit.
func (c *Config) Validate() error {
	const errCtx = "validating config"

	var errs []error

	if c.Owner == "" || c.Name == "" {
		errs = append(errs, errors.New("owner and name must be set"))
	}

	if strings.Contains(c.Owner, "/") || strings.Contains(c.Name, "/") {
		errs = append(errs, errors.New("owner and name must not contain '/'"))
	}

	def := Default()

	if c.ManifestRoot == "" {
		c.ManifestRoot = def.ManifestRoot
	}

	c.ManifestRoot = strings.Trim(c.ManifestRoot, "/")

	if c.Retry.MaxAttempts < 0 || c.CommitAttempts < 0 ||
		c.Concurrency < 0 || c.Depth < 0 || c.MaxTextSize < 0 ||
		c.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("numeric settings must not be negative"))
	}

	if c.Retry.BaseDelay > c.Retry.MaxDelay && c.Retry.MaxDelay > 0 {
		errs = append(errs, errors.New("retry base_delay exceeds max_delay"))
	}

	if c.CommitAttempts == 0 {
		c.CommitAttempts = def.CommitAttempts
	}

	if c.Concurrency == 0 {
		c.Concurrency = def.Concurrency
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
