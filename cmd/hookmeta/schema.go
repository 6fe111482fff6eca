package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gezibash/hookmeta/internal/manifest"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for receiver manifests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := manifest.Schema()
			if err != nil {
				return fmt.Errorf("generate schema: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
}
