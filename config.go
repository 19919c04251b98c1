package sms

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// StorageType is the type of key-value backend a Store persists to.
type StorageType string

func (st StorageType) String() string {
	return string(st)
}

const (
	StorageNone     StorageType = "none"
	StorageInMemory StorageType = "inmem"
	StorageSQLite   StorageType = "sqlite"
	StorageFile     StorageType = "file"
)

const (
	DefaultKeyPrefix   = "sms_"
	DefaultStorageFile = "sms.kvf"
	DefaultDataDir     = "data"
)

// ParseStorageType parses a string found in a connection string into a
// StorageType.
func ParseStorageType(s string) (StorageType, error) {
	sLower := strings.ToLower(s)

	switch sLower {
	case StorageSQLite.String():
		return StorageSQLite, nil
	case StorageInMemory.String():
		return StorageInMemory, nil
	case StorageFile.String():
		return StorageFile, nil
	default:
		return StorageNone, fmt.Errorf("storage type not one of 'sqlite', 'file', or 'inmem': %q", s)
	}
}

// Storage contains configuration settings for connecting to a key-value
// backend.
type Storage struct {
	// Type is the type of backend the config refers to. It also determines
	// which of its other fields are valid.
	Type StorageType

	// Dir is the path on disk to a directory to store data in. This is only
	// applicable for the SQLite and file backends.
	Dir string

	// File is the name of the data file used by the file backend. By default,
	// it is "sms.kvf".
	File string
}

// Validate returns an error if the Storage does not have the correct fields
// set for its type.
func (st Storage) Validate() error {
	switch st.Type {
	case StorageInMemory:
		return nil
	case StorageSQLite:
		if st.Dir == "" {
			return fmt.Errorf("Dir not set to path")
		}
		return nil
	case StorageFile:
		if st.Dir == "" {
			return fmt.Errorf("Dir not set to path")
		}
		if st.File == "" {
			return fmt.Errorf("File not set")
		}
		return nil
	case StorageNone:
		return fmt.Errorf("'none' storage is not valid")
	default:
		return fmt.Errorf("unknown storage type: %q", st.Type.String())
	}
}

// String returns the connection string form of st.
func (st Storage) String() string {
	switch st.Type {
	case StorageSQLite:
		return "sqlite:" + filepath.ToSlash(st.Dir)
	case StorageFile:
		s := "file:dir=" + filepath.ToSlash(st.Dir)
		if st.File != "" && st.File != DefaultStorageFile {
			s += ",file=" + st.File
		}
		return s
	default:
		return st.Type.String()
	}
}

// ParseStorageConnString parses a storage connection string of the form
// "engine:params" (or just "engine" if no other params are required) into a
// Storage config.
//
// Supported backends and a sample string for each are shown below. Placeholder
// values are between angle brackets, optional parts are between square
// brackets. Ordering of parameters does not matter.
//
//   - In-memory: "inmem"
//   - SQLite3 DB file: "sqlite:</path/to/db/dir>"
//   - Single data file: "file:dir=<path/to/dir>[,file=<data-file-name.kvf>]"
func ParseStorageConnString(s string) (Storage, error) {
	var paramStr string
	parts := strings.SplitN(s, ":", 2)

	if len(parts) == 2 {
		paramStr = strings.TrimSpace(parts[1])
	}

	eng, err := ParseStorageType(strings.TrimSpace(parts[0]))
	if err != nil {
		return Storage{}, fmt.Errorf("unsupported storage engine: %w", err)
	}

	switch eng {
	case StorageInMemory:
		if paramStr != "" {
			return Storage{}, fmt.Errorf("unsupported param(s) for in-memory storage engine: %s", paramStr)
		}

		return Storage{Type: StorageInMemory}, nil
	case StorageSQLite:
		if paramStr == "" {
			return Storage{}, fmt.Errorf("sqlite storage engine requires path to data directory after ':'")
		}

		return Storage{Type: StorageSQLite, Dir: filepath.FromSlash(paramStr)}, nil
	case StorageFile:
		if paramStr == "" {
			return Storage{}, fmt.Errorf("file storage engine requires qualified path to data directory after ':'")
		}

		params, err := parseParamsMap(paramStr)
		if err != nil {
			return Storage{}, err
		}

		st := Storage{Type: StorageFile}

		if val, ok := params["dir"]; ok {
			st.Dir = filepath.FromSlash(val)
		} else {
			return Storage{}, fmt.Errorf("file storage engine params missing qualified path to data directory in key 'dir'")
		}

		if val, ok := params["file"]; ok {
			st.File = val
		} else {
			st.File = DefaultStorageFile
		}
		return st, nil
	default:
		return Storage{}, fmt.Errorf("unknown storage engine: %q", eng.String())
	}
}

func parseParamsMap(paramStr string) (map[string]string, error) {
	seqs := splitWithEscaped(paramStr, ',')
	if len(seqs) < 1 {
		return nil, fmt.Errorf("not a map format string: %q", paramStr)
	}

	params := map[string]string{}
	for idx, kv := range seqs {
		parsed := splitWithEscaped(kv, '=')
		if len(parsed) != 2 {
			return nil, fmt.Errorf("param %d: not a kv-pair: %q", idx, kv)
		}
		params[strings.ToLower(strings.TrimSpace(parsed[0]))] = parsed[1]
	}

	return params, nil
}

// splitWithEscaped splits s on every sep that is not preceded by a backslash.
// Escaped characters have their backslash removed.
func splitWithEscaped(s string, sep rune) []string {
	var split []string
	var cur strings.Builder

	sr := []rune(s)
	for i := 0; i < len(sr); i++ {
		ch := sr[i]

		if ch == '\\' && i+1 < len(sr) {
			cur.WriteRune(sr[i+1])
			i++
			continue
		}

		if ch == sep {
			split = append(split, cur.String())
			cur.Reset()
			continue
		}

		cur.WriteRune(ch)
	}

	if cur.Len() > 0 || len(split) > 0 {
		split = append(split, cur.String())
	}

	return split
}

// IDScheme is the way that record IDs are generated by a Store.
type IDScheme string

const (
	// IDTimestamp generates IDs of the form "<epoch-millis>_<base36>".
	IDTimestamp IDScheme = "timestamp"

	// IDUUID generates random UUIDs.
	IDUUID IDScheme = "uuid"
)

// ParseIDScheme parses an IDScheme from its string form. The empty string is
// parsed as IDTimestamp.
func ParseIDScheme(s string) (IDScheme, error) {
	switch strings.ToLower(s) {
	case string(IDTimestamp), "":
		return IDTimestamp, nil
	case string(IDUUID):
		return IDUUID, nil
	default:
		return "", fmt.Errorf("ID scheme not one of 'timestamp' or 'uuid': %q", s)
	}
}

// LogConfig contains logging options.
type LogConfig struct {
	// Enabled is whether to log at all.
	Enabled bool

	// Provider is the logging library to use.
	Provider LogProvider

	// File is a path to a file to also write logs to. If blank, logs only go
	// to stderr.
	File string
}

// Config is a configuration for an entity store and everything that sits on
// top of it.
type Config struct {
	// Storage is the backend to persist records to. If not provided, it will be
	// set to a file backend in the default data directory.
	Storage Storage

	// KeyPrefix is prepended to an entity type to get its storage key. If not
	// set it defaults to "sms_".
	KeyPrefix string

	// LatencyMillis is an artificial delay, in milliseconds, applied before
	// every store operation. Zero or any negative number disables it.
	LatencyMillis int

	// IDScheme selects how record IDs are generated.
	IDScheme IDScheme

	// Log is the logging configuration.
	Log LogConfig
}

// Latency returns the configured latency as a time.Duration. If
// cfg.LatencyMillis is less than 1, this will return a zero-valued
// time.Duration.
func (cfg Config) Latency() time.Duration {
	if cfg.LatencyMillis < 1 {
		var dur time.Duration
		return dur
	}
	return time.Millisecond * time.Duration(cfg.LatencyMillis)
}

// FillDefaults returns a new Config identical to cfg but with unset values set
// to their defaults.
func (cfg Config) FillDefaults() Config {
	newCFG := cfg

	if newCFG.Storage.Type == "" || newCFG.Storage.Type == StorageNone {
		newCFG.Storage = Storage{Type: StorageFile, Dir: DefaultDataDir, File: DefaultStorageFile}
	}
	if newCFG.Storage.Type == StorageFile && newCFG.Storage.File == "" {
		newCFG.Storage.File = DefaultStorageFile
	}
	if newCFG.KeyPrefix == "" {
		newCFG.KeyPrefix = DefaultKeyPrefix
	}
	if newCFG.IDScheme == "" {
		newCFG.IDScheme = IDTimestamp
	}
	if newCFG.Log.Enabled && newCFG.Log.Provider == NoLog {
		newCFG.Log.Provider = Jellog
	}

	return newCFG
}

// Validate returns an error if the Config has invalid field values set. Empty
// and unset values are considered invalid; if defaults are intended to be used,
// call Validate on the return value of FillDefaults.
func (cfg Config) Validate() error {
	if err := cfg.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if cfg.KeyPrefix == "" {
		return fmt.Errorf("key prefix: must not be empty")
	}
	if cfg.IDScheme != IDTimestamp && cfg.IDScheme != IDUUID {
		return fmt.Errorf("id scheme: not one of 'timestamp' or 'uuid': %q", cfg.IDScheme)
	}
	if cfg.Log.Enabled && cfg.Log.Provider == NoLog {
		return fmt.Errorf("log: provider must be set when logging is enabled")
	}

	return nil
}
