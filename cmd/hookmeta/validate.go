package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/hookmeta/internal/snapshot"
)

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate receiver manifests",
		Long: `Load every manifest under the root, validate the registered metadata and
resolve every endpoint. Each problem is logged; the command exits non-zero
if any were found. A valid snapshot is recorded when an archive backend is
configured.

Examples:
  hookmeta validate --root ./hooks
  hookmeta validate --separate-errors -o json
  hookmeta validate --archive sqlite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, v)
			if err != nil {
				return err
			}
			snap, err := e.builder(nil).Build(cmd.Context(), e.source)
			if err != nil {
				return fail(e.out, "validate", err)
			}

			res := e.out.Result("validate", "Metadata is valid").
				WithSnapshot(snap.ID.String()).
				With("Files", len(snap.Origins)).
				With("Receivers", len(snap.Index.Receivers())).
				With("Descriptors", snap.Index.Len()).
				With("Endpoints", len(snap.Bindings))

			b, err := e.openArchive(cmd.Context())
			if err != nil {
				return fail(e.out, "validate", err)
			}
			if b != nil {
				defer b.Close() //nolint:errcheck
				if err := snapshot.Record(cmd.Context(), b, snap); err != nil {
					return fail(e.out, "validate", err)
				}
				res.With("Archived", e.cfg.Archive.Backend)
			}
			return res.Render()
		},
	}
}
