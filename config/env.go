package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dekarrin/sms"
	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvStorage     = "SMS_STORAGE"
	EnvKeyPrefix   = "SMS_KEY_PREFIX"
	EnvLatency     = "SMS_LATENCY_MS"
	EnvIDScheme    = "SMS_ID_SCHEME"
	EnvLogEnabled  = "SMS_LOG_ENABLED"
	EnvLogProvider = "SMS_LOG_PROVIDER"
	EnvLogFile     = "SMS_LOG_FILE"
)

// envConfig holds the raw environment overrides. Fields whose zero value is a
// valid setting are pointers so an unset variable stays nil.
type envConfig struct {
	Storage     string `env:"SMS_STORAGE"`
	KeyPrefix   string `env:"SMS_KEY_PREFIX"`
	Latency     *int   `env:"SMS_LATENCY_MS"`
	IDScheme    string `env:"SMS_ID_SCHEME"`
	LogEnabled  *bool  `env:"SMS_LOG_ENABLED"`
	LogProvider string `env:"SMS_LOG_PROVIDER"`
	LogFile     string `env:"SMS_LOG_FILE"`
}

// ApplyEnv overlays the SMS_* environment variables onto cfg. Only variables
// that are set change cfg.
//
// If dotenvFile is given, variables are first loaded from it into the process
// environment; variables already set in the environment are not overwritten. A
// dotenvFile that does not exist is ignored.
func ApplyEnv(cfg *sms.Config, dotenvFile string) error {
	if dotenvFile != "" {
		if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", dotenvFile, err)
		}
	}

	var e envConfig
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	return e.apply(cfg)
}

func (e envConfig) apply(cfg *sms.Config) error {
	var err error

	if e.Storage != "" {
		cfg.Storage, err = sms.ParseStorageConnString(e.Storage)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStorage, err)
		}
	}
	if e.KeyPrefix != "" {
		cfg.KeyPrefix = e.KeyPrefix
	}
	if e.Latency != nil {
		cfg.LatencyMillis = *e.Latency
	}
	if e.IDScheme != "" {
		cfg.IDScheme, err = sms.ParseIDScheme(e.IDScheme)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvIDScheme, err)
		}
	}
	if e.LogEnabled != nil {
		cfg.Log.Enabled = *e.LogEnabled
	}
	if e.LogProvider != "" {
		cfg.Log.Provider, err = sms.ParseLogProvider(e.LogProvider)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLogProvider, err)
		}
	}
	if e.LogFile != "" {
		cfg.Log.File = e.LogFile
	}

	return nil
}
