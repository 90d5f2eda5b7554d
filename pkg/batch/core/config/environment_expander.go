// Package config provides core configuration structures and utilities for the run engine.
// This file defines an interface and implementation for expanding environment variables within configuration data.
package config

import (
	"os"
	"strings"
)

// EnvironmentExpander provides functionality to expand environment variable placeholders
// within an input byte slice.
type EnvironmentExpander interface {
	// Expand takes a byte slice as input, expands any environment variable placeholders
	// (e.g., ${VAR}, $VAR, or ${VAR:-default}) within it, and returns the expanded byte slice.
	//
	// Parameters:
	//   input: The byte slice containing data with potential environment variable placeholders.
	//
	// Returns:
	//   The byte slice with placeholders expanded, and an error if the expansion process fails.
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander is an implementation of the EnvironmentExpander interface
// backed by the process environment.
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates and returns a new instance of OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

// Expand replaces ${VAR} or $VAR in the input with the value of the environment
// variable VAR. The ${VAR:-default} form substitutes the default when VAR is
// unset. An unset variable without a default expands to an empty string.
// The returned error is always nil; it is kept so alternative expanders can fail.
//
// Parameters:
//
//	input: The byte slice containing data with potential environment variable placeholders.
//
// Returns:
//
//	The byte slice with placeholders expanded, and always a nil error.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	expanded := os.Expand(string(input), func(placeholder string) string {
		name, fallback, hasFallback := strings.Cut(placeholder, ":-")
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if hasFallback {
			return fallback
		}
		return ""
	})
	return []byte(expanded), nil
}
