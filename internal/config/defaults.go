// Package config loads hookmeta settings from flags, HOOKMETA_* environment
// variables and an optional hookmeta.yaml file, in that order of precedence.
package config

import "time"

// EnvPrefix is the environment variable prefix for every key.
const EnvPrefix = "HOOKMETA"

// Defaults holds the built-in value of every key.
var Defaults = struct {
	ManifestRoot    string
	ManifestPattern string
	LogLevel        string
	LogFormat       string
	MetricsAddr     string
	OTLPProtocol    string
	ServiceName     string
	ServiceVersion  string
	Debounce        time.Duration
}{
	ManifestRoot:    ".",
	ManifestPattern: "**/*.{yaml,yml}",
	LogLevel:        "info",
	LogFormat:       "text",
	MetricsAddr:     ":9090",
	OTLPProtocol:    "http",
	ServiceName:     "hookmeta",
	ServiceVersion:  "dev",
	Debounce:        250 * time.Millisecond,
}
