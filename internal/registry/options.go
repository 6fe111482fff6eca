package registry

import (
	"io"
	"log/slog"
)

// config stores resolved validation settings after option application.
type config struct {
	logger                 *slog.Logger
	separateMetadataErrors bool
}

// Option mutates validation configuration.
type Option func(*config)

func defaultConfig() config {
	return config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger sets the diagnostic sink. Every finding is written to it at
// error level before Build returns.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithSeparateMetadataErrors reports legacy marker, body-type value and event
// conflict findings as one InvalidMetadataError each instead of merging them.
func WithSeparateMetadataErrors(separate bool) Option {
	return func(cfg *config) {
		cfg.separateMetadataErrors = separate
	}
}
