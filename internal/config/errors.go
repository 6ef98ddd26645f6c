package config

import (
	"errors"
	"fmt"
)

// ErrConfigNotFound indicates the configuration file was not found. A
// missing file is not fatal — load falls back to an empty
// OrchestratorYAMLConfig, matching "every section is optional."
var ErrConfigNotFound = errors.New("config: file not found")

// ErrInvalidYAML indicates the configuration file failed to parse.
var ErrInvalidYAML = errors.New("config: invalid YAML syntax")

// LoadError wraps a configuration-loading failure with the file it
// occurred in, mirroring pkg/config/errors.go's LoadError.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("config: failed to load %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
