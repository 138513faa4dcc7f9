package config

import (
	"os"
)

// EnvironmentExpander expands environment variable placeholders within configuration data.
type EnvironmentExpander interface {
	// Expand replaces ${VAR} or $VAR placeholders in input and returns the result.
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander is an EnvironmentExpander backed by os.ExpandEnv.
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates and returns a new instance of OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

// Expand uses os.ExpandEnv to expand environment variables within input.
// Unset variables expand to an empty string, except that "$$" is kept as a literal "$".
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	expanded := os.Expand(string(input), func(key string) string {
		if key == "$" {
			return "$"
		}
		return os.Getenv(key)
	})
	return []byte(expanded), nil
}
