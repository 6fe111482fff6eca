package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/hookmeta/internal/archive"
	_ "github.com/gezibash/hookmeta/internal/archive/badger"
	_ "github.com/gezibash/hookmeta/internal/archive/memory"
	_ "github.com/gezibash/hookmeta/internal/archive/redis"
	_ "github.com/gezibash/hookmeta/internal/archive/s3"
	_ "github.com/gezibash/hookmeta/internal/archive/sqlite"
	"github.com/gezibash/hookmeta/internal/snapshot"
)

var errNoArchive = errors.New("no archive backend configured (set archive.backend or --archive)")

// openArchive opens the configured backend, or returns nil when the archive
// is disabled.
func (e *env) openArchive(ctx context.Context) (archive.Backend, error) {
	if !e.cfg.Archive.Enabled() {
		return nil, nil
	}
	return archive.Open(ctx, e.cfg.Archive.Backend, e.cfg.Archive.Options)
}

func newHistoryCmd(v *viper.Viper) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [snapshot-id]",
		Short: "List archived snapshots",
		Long: `List the snapshots recorded in the archive, newest first. With a snapshot
ID, show that snapshot's summary and the manifests it was built from.

Snapshots are recorded by serve on every publish and by validate whenever an
archive backend is configured.

Examples:
  hookmeta history --archive sqlite
  hookmeta history 1b4e28ba-2fa1-11d2-883f-0016d3cca427 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, v)
			if err != nil {
				return err
			}
			b, err := e.openArchive(cmd.Context())
			if err != nil {
				return fail(e.out, "history", err)
			}
			if b == nil {
				return fail(e.out, "history", errNoArchive)
			}
			defer b.Close() //nolint:errcheck

			if len(args) == 1 {
				rec, err := b.Get(cmd.Context(), args[0])
				if err != nil {
					return fail(e.out, "history", fmt.Errorf("snapshot %s: %w", args[0], err))
				}
				return e.out.KV("snapshot").
					WithSnapshot(rec.ID).
					Set("ID", rec.ID).
					Set("Built", rec.BuiltAt.Format(time.RFC3339)).
					Set("Files", strings.Join(rec.Origins, ", ")).
					Set("Receivers", rec.Receivers).
					Set("Descriptors", rec.Descriptors).
					Set("Endpoints", rec.Endpoints).
					Render()
			}

			records, err := b.List(cmd.Context(), limit)
			if err != nil {
				return fail(e.out, "history", err)
			}
			tbl := e.out.Table("history", "ID", "Built", "Files", "Receivers", "Descriptors", "Endpoints")
			for _, rec := range records {
				tbl.AddRow(rec.ID, rec.BuiltAt.Format(time.RFC3339),
					fmt.Sprint(len(rec.Origins)), fmt.Sprint(rec.Receivers),
					fmt.Sprint(rec.Descriptors), fmt.Sprint(rec.Endpoints))
			}
			return tbl.Render()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", snapshot.DefaultHistoryLimit, "maximum number of snapshots to list (0 for all)")
	cmd.AddCommand(newBackendsCmd(v))
	return cmd
}

func newBackendsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the archive backends this binary supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutput(v, cmd.OutOrStdout())
			return out.StringList("backends").Add(archive.Backends()...).Render()
		},
	}
}
