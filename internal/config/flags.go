package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BindGlobalFlags registers the flags every subcommand shares as persistent
// flags on the root command.
func BindGlobalFlags(cmd *cobra.Command, v *viper.Viper) {
	f := cmd.PersistentFlags()

	f.String("config", "", "config file path (default ./hookmeta.yaml)")
	f.String("root", "", "manifest root directory")
	f.String("pattern", "", "manifest glob relative to the root")
	f.Bool("separate-errors", false, "report each invalid-metadata cause as its own error")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	f.String("log-format", "", "log format (json, text)")
	f.String("archive", "", "snapshot archive backend (memory, badger, sqlite, redis, s3)")

	_ = v.BindPFlag("manifests.root", f.Lookup("root"))
	_ = v.BindPFlag("manifests.pattern", f.Lookup("pattern"))
	_ = v.BindPFlag("validation.separate_metadata_errors", f.Lookup("separate-errors"))
	_ = v.BindPFlag("observability.log_level", f.Lookup("log-level"))
	_ = v.BindPFlag("observability.log_format", f.Lookup("log-format"))
	_ = v.BindPFlag("archive.backend", f.Lookup("archive"))
}

// BindServeFlags registers the serve command's flags.
func BindServeFlags(cmd *cobra.Command, v *viper.Viper) {
	f := cmd.Flags()

	f.String("metrics-addr", "", "admin HTTP listen address (/metrics, /health, /bindings, /history)")
	f.Bool("watch", false, "reload when manifest files change")
	f.Duration("debounce", 0, "delay before reloading after a change")
	f.String("otlp-endpoint", "", "OTLP trace collector endpoint")

	_ = v.BindPFlag("observability.metrics_addr", f.Lookup("metrics-addr"))
	_ = v.BindPFlag("serve.watch", f.Lookup("watch"))
	_ = v.BindPFlag("serve.debounce", f.Lookup("debounce"))
	_ = v.BindPFlag("observability.otlp_endpoint", f.Lookup("otlp-endpoint"))
}
