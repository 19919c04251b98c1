package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a serialization format a config file can be written in.
type Format int

const (
	NoFormat Format = iota
	JSON
	YAML
)

func (f Format) String() string {
	switch f {
	case NoFormat:
		return "none"
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Extensions returns the file extensions, without the leading dot, that files
// in f use.
func (f Format) Extensions() []string {
	switch f {
	case JSON:
		return []string{"json", "jsn"}
	case YAML:
		return []string{"yaml", "yml"}
	default:
		return nil
	}
}

// SupportedFormats returns the formats Load can decode. Includes all but
// NoFormat.
func SupportedFormats() []Format {
	return []Format{JSON, YAML}
}

// DetectFormat returns the Format of file based on its extension, ignoring
// case. Returns NoFormat if the extension is not one of a supported Format.
func DetectFormat(file string) Format {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")

	for _, f := range SupportedFormats() {
		for _, checked := range f.Extensions() {
			if ext == checked {
				return f
			}
		}
	}

	return NoFormat
}

// extensionList gives the supported extensions in a human-readable list, e.g.
// ".json, .jsn, .yaml, or .yml".
func extensionList() string {
	var exts []string
	for _, f := range SupportedFormats() {
		for _, ext := range f.Extensions() {
			exts = append(exts, "."+ext)
		}
	}

	if len(exts) < 2 {
		return strings.Join(exts, "")
	}
	return strings.Join(exts[:len(exts)-1], ", ") + ", or " + exts[len(exts)-1]
}
