package feeders

import (
	"os"

	"gopkg.in/yaml.v3"
)

// YamlFeeder reads a YAML file.
type YamlFeeder struct {
	Path string
}

// NewYamlFeeder creates a new YamlFeeder that reads from the specified YAML file
func NewYamlFeeder(filePath string) YamlFeeder {
	return YamlFeeder{Path: filePath}
}

// Feed decodes the file into target.
func (y YamlFeeder) Feed(target any) error {
	if y.Path == "" {
		return ErrFilePathEmpty
	}
	data, err := os.ReadFile(y.Path)
	if err != nil {
		return wrapFileError("yaml", y.Path, err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return wrapFileError("yaml", y.Path, err)
	}
	return nil
}

// FeedKey reads a YAML file and decodes a single top-level key into target.
func (y YamlFeeder) FeedKey(key string, target any) error {
	return feedKey(y, key, target, yaml.Marshal, yaml.Unmarshal, "yaml")
}
