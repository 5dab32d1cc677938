package feeders

import (
	"github.com/BurntSushi/toml"
)

// TomlFeeder reads a TOML file.
type TomlFeeder struct {
	Path string
}

// NewTomlFeeder creates a new TomlFeeder that reads from the specified TOML file
func NewTomlFeeder(filePath string) TomlFeeder {
	return TomlFeeder{Path: filePath}
}

// Feed decodes the file into target.
func (t TomlFeeder) Feed(target any) error {
	if t.Path == "" {
		return ErrFilePathEmpty
	}
	if _, err := toml.DecodeFile(t.Path, target); err != nil {
		return wrapFileError("toml", t.Path, err)
	}
	return nil
}

// FeedKey reads a TOML file and decodes a single top-level key into target.
func (t TomlFeeder) FeedKey(key string, target any) error {
	return feedKey(t, key, target, toml.Marshal, toml.Unmarshal, "toml")
}
