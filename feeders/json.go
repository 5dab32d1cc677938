package feeders

import (
	"encoding/json"
	"os"
)

// JSONFeeder reads a JSON file.
type JSONFeeder struct {
	Path string
}

// NewJSONFeeder creates a new JSONFeeder that reads from the specified JSON file
func NewJSONFeeder(filePath string) JSONFeeder {
	return JSONFeeder{Path: filePath}
}

// Feed decodes the file into target.
func (j JSONFeeder) Feed(target any) error {
	if j.Path == "" {
		return ErrFilePathEmpty
	}
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return wrapFileError("json", j.Path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return wrapFileError("json", j.Path, err)
	}
	return nil
}

// FeedKey reads a JSON file and decodes a single top-level key into target.
func (j JSONFeeder) FeedKey(key string, target any) error {
	return feedKey(j, key, target, json.Marshal, json.Unmarshal, "json")
}
