package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Manifests     ManifestsConfig     `mapstructure:"manifests"`
	Validation    ValidationConfig    `mapstructure:"validation"`
	Serve         ServeConfig         `mapstructure:"serve"`
	Archive       ArchiveConfig       `mapstructure:"archive"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ManifestsConfig struct {
	Root    string `mapstructure:"root" validate:"required"`
	Pattern string `mapstructure:"pattern" validate:"required"`
}

type ValidationConfig struct {
	SeparateMetadataErrors bool `mapstructure:"separate_metadata_errors"`
}

type ServeConfig struct {
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`
}

// ArchiveConfig selects where published snapshots are recorded. An empty
// backend disables the archive.
type ArchiveConfig struct {
	Backend string            `mapstructure:"backend" validate:"omitempty,oneof=memory badger sqlite redis s3"`
	Options map[string]string `mapstructure:"options"`
}

// Enabled reports whether a backend is configured.
func (c ArchiveConfig) Enabled() bool { return c.Backend != "" }

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat      string `mapstructure:"log_format" validate:"oneof=text json"`
	MetricsAddr    string `mapstructure:"metrics_addr" validate:"required"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPProtocol   string `mapstructure:"otlp_protocol" validate:"oneof=http grpc"`
	ServiceName    string `mapstructure:"service_name" validate:"required"`
	ServiceVersion string `mapstructure:"service_version"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("manifests.root", Defaults.ManifestRoot)
	v.SetDefault("manifests.pattern", Defaults.ManifestPattern)

	v.SetDefault("validation.separate_metadata_errors", false)

	v.SetDefault("serve.watch", false)
	v.SetDefault("serve.debounce", Defaults.Debounce)

	v.SetDefault("archive.backend", "")

	v.SetDefault("observability.log_level", Defaults.LogLevel)
	v.SetDefault("observability.log_format", Defaults.LogFormat)
	v.SetDefault("observability.metrics_addr", Defaults.MetricsAddr)
	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_protocol", Defaults.OTLPProtocol)
	v.SetDefault("observability.service_name", Defaults.ServiceName)
	v.SetDefault("observability.service_version", Defaults.ServiceVersion)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the merged settings.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
