package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/hookmeta/internal/cli"
	"github.com/gezibash/hookmeta/internal/config"
	"github.com/gezibash/hookmeta/internal/manifest"
	"github.com/gezibash/hookmeta/internal/observability"
	"github.com/gezibash/hookmeta/internal/registry"
	"github.com/gezibash/hookmeta/internal/snapshot"
	"github.com/gezibash/hookmeta/pkg/webhook"
)

// env is what every command needs after config is loaded.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	out    *cli.Output
	source manifest.Source
}

func setup(cmd *cobra.Command, v *viper.Viper) (*env, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &env{
		cfg:    cfg,
		logger: observability.SetupLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, cmd.ErrOrStderr()),
		out:    newOutput(v, cmd.OutOrStdout()),
		source: manifest.Source{Root: cfg.Manifests.Root, Pattern: cfg.Manifests.Pattern},
	}, nil
}

// newOutput renders to w using the "output" and "color" settings.
func newOutput(v *viper.Viper, w io.Writer) *cli.Output {
	return cli.NewOutput(w, cli.ParseFormat(v.GetString("output")), cli.ParseColorMode(v.GetString("color")))
}

func (e *env) builder(m *observability.Metrics) *snapshot.Builder {
	return snapshot.NewBuilder(e.logger, m,
		registry.WithSeparateMetadataErrors(e.cfg.Validation.SeparateMetadataErrors))
}

// fail renders err with its individual findings and returns errReported so
// main exits non-zero without printing it twice.
func fail(out *cli.Output, resultType string, err error) error {
	e := out.Error(resultType, err)
	if code := errorCode(err); code != "" {
		e.WithCode(code)
	}
	for _, f := range webhook.Findings(err) {
		e.WithCauses(f.Error())
	}
	if rerr := e.Render(); rerr != nil {
		return rerr
	}
	return errReported
}

func errorCode(err error) string {
	dup := errors.Is(err, webhook.ErrDuplicateRegistration)
	meta := errors.Is(err, webhook.ErrInvalidMetadata)
	switch {
	case dup && meta:
		return "invalid-registry"
	case dup:
		return string(webhook.CategoryDuplicateRegistration)
	case meta:
		return "invalid-metadata"
	case errors.Is(err, webhook.ErrInvalidSelector):
		return "invalid-selector"
	case errors.Is(err, webhook.ErrDuplicateEndpoint):
		return "duplicate-endpoint"
	}
	return ""
}
