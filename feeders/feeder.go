// Package feeders populates configuration structs from environment
// variables and YAML, TOML or JSON files.
package feeders

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Feeder populates target, which must be a pointer to a struct.
type Feeder interface {
	Feed(target any) error
}

// KeyFeeder can populate target from a single top-level key.
type KeyFeeder interface {
	Feeder
	FeedKey(key string, target any) error
}

// ForFile returns the feeder matching the file extension of path.
func ForFile(path string) (KeyFeeder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYamlFeeder(path), nil
	case ".toml":
		return NewTomlFeeder(path), nil
	case ".json":
		return NewJSONFeeder(path), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileFormat, path)
	}
}

// feedKey decodes the whole document into a map, then re-encodes the value
// under key and decodes it into target. A missing key leaves target untouched.
func feedKey(
	feeder Feeder,
	key string,
	target any,
	marshalFunc func(any) ([]byte, error),
	unmarshalFunc func([]byte, any) error,
	fileType string,
) error {
	var allData map[string]any
	if err := feeder.Feed(&allData); err != nil {
		return fmt.Errorf("failed to read %s: %w", fileType, err)
	}

	value, exists := allData[key]
	if !exists {
		return nil
	}

	valueBytes, err := marshalFunc(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s data: %w", fileType, err)
	}
	if err = unmarshalFunc(valueBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal %s data: %w", fileType, err)
	}
	return nil
}
