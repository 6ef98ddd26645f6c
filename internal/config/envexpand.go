package config

import "os"

// ExpandEnv expands environment variables in YAML content using Go's
// standard library, shell-style ($VAR and ${VAR}). Missing variables
// expand to empty string; no later step rejects a field left empty this
// way.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
