// Package config loads the electrooms configuration file.
//
// The file is YAML. After decoding it is checked against the CUE schema in
// schema.cue; anything the schema rejects is reported with its CUE path.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/electrooms/internal/provision"
)

//go:embed schema.cue
var schemaSource string

// Endpoint is a JSON-RPC service address.
type Endpoint struct {
	URL     string `yaml:"url" json:"url"`
	Timeout string `yaml:"timeout" json:"timeout"` // Go duration, e.g. "30s"
}

// CallTimeout returns the parsed Timeout. Load has already validated it.
func (e Endpoint) CallTimeout() time.Duration {
	d, err := time.ParseDuration(e.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Config is the file configuration. CLI flags override individual fields.
type Config struct {
	Database string `yaml:"database" json:"database"`
	Season   int    `yaml:"season" json:"season"`
	Year     int    `yaml:"year" json:"year"` // 0 means the current year
	Mode     string `yaml:"mode" json:"mode"`

	AgentHandle      string   `yaml:"agent_handle" json:"agent_handle"`
	OperatorHandles  []string `yaml:"operator_handles" json:"operator_handles"`
	OrientationPhoto string   `yaml:"orientation_photo" json:"orientation_photo"`
	Language         string   `yaml:"language" json:"language"`

	Ledger    Endpoint `yaml:"ledger" json:"ledger"`
	Messenger Endpoint `yaml:"messenger" json:"messenger"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database:        "electrooms.db",
		Season:          1,
		Mode:            string(provision.ModeLive),
		OperatorHandles: []string{},
		Language:        "en",
		Ledger:          Endpoint{Timeout: "30s"},
		Messenger:       Endpoint{Timeout: "30s"},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result. An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := decode(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if cfg.OperatorHandles == nil {
		cfg.OperatorHandles = []string{}
	}
	return nil
}

// Validate checks the configuration against the CUE schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	if c.OperatorHandles == nil {
		c.OperatorHandles = []string{}
	}
	value := schema.Unify(ctx.Encode(c))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Provision returns the orchestrator settings.
func (c Config) Provision() provision.Config {
	return provision.Config{
		Season:           c.Season,
		Year:             c.Year,
		Mode:             provision.Mode(c.Mode),
		AgentHandle:      c.AgentHandle,
		OperatorHandles:  c.OperatorHandles,
		OrientationPhoto: c.OrientationPhoto,
	}
}
