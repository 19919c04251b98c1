// Package config reads and writes store configuration files and applies
// overrides from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dekarrin/sms"
	"gopkg.in/yaml.v3"
)

type marshaledLog struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Provider string `yaml:"provider" json:"provider"`
	File     string `yaml:"file,omitempty" json:"file,omitempty"`
}

type marshaledConfig struct {
	Storage   string       `yaml:"storage" json:"storage"`
	KeyPrefix string       `yaml:"key_prefix,omitempty" json:"key_prefix,omitempty"`
	Latency   int          `yaml:"latency_ms,omitempty" json:"latency_ms,omitempty"`
	IDScheme  string       `yaml:"id_scheme,omitempty" json:"id_scheme,omitempty"`
	Logging   marshaledLog `yaml:"logging" json:"logging"`
}

// Load loads a configuration from a JSON or YAML file. The format of the file
// is determined by examining its extension; see DetectFormat. The returned
// Config is not validated and has no defaults filled in.
func Load(file string) (sms.Config, error) {
	f := DetectFormat(file)
	if f == NoFormat {
		return sms.Config{}, fmt.Errorf("%s: incompatible format; must be a %s file", file, extensionList())
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return sms.Config{}, fmt.Errorf("%s: %w", file, err)
	}

	cfg, err := Decode(f, data)
	if err != nil {
		return sms.Config{}, fmt.Errorf("%s: %w", file, err)
	}
	return cfg, nil
}

// Decode parses data in format f into a Config.
func Decode(f Format, data []byte) (sms.Config, error) {
	var mc marshaledConfig
	var err error

	switch f {
	case JSON:
		err = json.Unmarshal(data, &mc)
	case YAML:
		err = yaml.Unmarshal(data, &mc)
	default:
		return sms.Config{}, fmt.Errorf("cannot unmarshal data in format %q", f.String())
	}
	if err != nil {
		return sms.Config{}, err
	}

	return unmarshalConfig(mc)
}

// Encode writes cfg in format f.
func Encode(f Format, cfg sms.Config) ([]byte, error) {
	mc := marshalConfig(cfg)

	switch f {
	case JSON:
		return json.MarshalIndent(mc, "", "  ")
	case YAML:
		return yaml.Marshal(mc)
	default:
		return nil, fmt.Errorf("cannot marshal data in format %q", f.String())
	}
}

// Dump gives cfg as a YAML document. Passing the result to Decode gives back
// an equivalent Config.
//
// This function will cause a panic if there is a problem marshaling the config
// data.
func Dump(cfg sms.Config) []byte {
	b, err := Encode(YAML, cfg)
	if err != nil {
		panic(fmt.Sprintf("format encoding failed: %v", err))
	}
	return b
}

// unmarshalConfig completely replaces all attributes. It does no validation
// except that which is required for parsing.
func unmarshalConfig(m marshaledConfig) (sms.Config, error) {
	var cfg sms.Config
	var err error

	if m.Storage != "" {
		cfg.Storage, err = sms.ParseStorageConnString(m.Storage)
		if err != nil {
			return cfg, fmt.Errorf("storage: %w", err)
		}
	}

	cfg.KeyPrefix = m.KeyPrefix
	cfg.LatencyMillis = m.Latency

	cfg.IDScheme, err = sms.ParseIDScheme(m.IDScheme)
	if err != nil {
		return cfg, fmt.Errorf("id_scheme: %w", err)
	}

	cfg.Log.Enabled = m.Logging.Enabled
	cfg.Log.Provider, err = sms.ParseLogProvider(m.Logging.Provider)
	if err != nil {
		return cfg, fmt.Errorf("logging: provider: %w", err)
	}
	cfg.Log.File = m.Logging.File

	return cfg, nil
}

func marshalConfig(cfg sms.Config) marshaledConfig {
	mc := marshaledConfig{
		KeyPrefix: cfg.KeyPrefix,
		Latency:   cfg.LatencyMillis,
		IDScheme:  string(cfg.IDScheme),
		Logging: marshaledLog{
			Enabled:  cfg.Log.Enabled,
			Provider: cfg.Log.Provider.String(),
			File:     cfg.Log.File,
		},
	}
	if cfg.Storage.Type != "" && cfg.Storage.Type != sms.StorageNone {
		mc.Storage = cfg.Storage.String()
	}
	return mc
}
