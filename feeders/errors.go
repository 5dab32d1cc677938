package feeders

import (
	"errors"
	"fmt"
)

// Env feeder errors
var (
	ErrEnvInvalidStructure = errors.New("env: invalid structure")
	ErrEnvFieldCannotBeSet = errors.New("env: field cannot be set")
)

// File feeder errors
var (
	ErrFilePathEmpty         = errors.New("file path is empty")
	ErrUnsupportedFileFormat = errors.New("unsupported config file format")
)

func wrapFileError(fileType, path string, err error) error {
	return fmt.Errorf("%s feeder: %s: %w", fileType, path, err)
}

func wrapEnvConvertError(envName, fieldType string, err error) error {
	return fmt.Errorf("env: %s: cannot convert value to %s: %w", envName, fieldType, err)
}
