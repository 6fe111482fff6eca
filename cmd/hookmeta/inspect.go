package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/hookmeta/internal/cli"
	"github.com/gezibash/hookmeta/internal/resolver"
	"github.com/gezibash/hookmeta/internal/snapshot"
	"github.com/gezibash/hookmeta/pkg/webhook"
)

func newInspectCmd(v *viper.Viper) *cobra.Command {
	var request string

	cmd := &cobra.Command{
		Use:   "inspect [endpoint...]",
		Short: "Show the capabilities bound to endpoints",
		Long: `Resolve endpoints and print where each capability came from: the
endpoint's own selector, the registry entry of its named receiver, or the
list of every registered descriptor of that kind.

With --request, also show which descriptor applies to a request for that
receiver name.

Examples:
  hookmeta inspect
  hookmeta inspect github stripe --request stripe-connect
  hookmeta inspect -o markdown`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, v)
			if err != nil {
				return err
			}
			snap, err := e.builder(nil).Build(cmd.Context(), e.source)
			if err != nil {
				return fail(e.out, "inspect", err)
			}

			ids := args
			if len(ids) == 0 {
				for _, ep := range snap.Endpoints {
					ids = append(ids, ep.ID)
				}
			}
			tbl, err := bindingTable(e.out, snap, ids, request)
			if err != nil {
				return fail(e.out, "inspect", err)
			}
			return tbl.Render()
		},
	}
	cmd.Flags().StringVar(&request, "request", "", "receiver name of an incoming request to select descriptors for")
	cmd.AddCommand(newReceiversCmd(v))
	return cmd
}

func bindingTable(out *cli.Output, snap *snapshot.Snapshot, ids []string, request string) (*cli.Table, error) {
	headers := []string{"Endpoint", "Kind", "Source", "Receivers", "Value"}
	if request != "" {
		headers = append(headers, "Selected")
	}
	tbl := out.Table("bindings", headers...).WithSnapshot(snap.ID.String()).MergeFirstColumn()

	for _, id := range ids {
		set, ok := snap.Binding(id)
		if !ok {
			return nil, fmt.Errorf("unknown endpoint %q", id)
		}
		for _, entry := range set.Entries() {
			row := []string{id, entry.Kind, entry.Source, strings.Join(entry.Receivers, ","), entry.Value}
			if request != "" {
				row = append(row, selected(set, entry, request))
			}
			tbl.AddRow(row...)
		}
	}
	return tbl, nil
}

func selected(set resolver.BindingSet, entry resolver.Entry, request string) string {
	if entry.Source == resolver.SourceSelector.String() {
		return "(selector)"
	}
	kind, err := webhook.ParseKind(entry.Kind)
	if err != nil {
		return "-"
	}
	if d, ok := set.Select(kind, request); ok {
		return d.ReceiverName()
	}
	return "-"
}

func newReceiversCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "receivers",
		Short: "List registered receivers and their capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, v)
			if err != nil {
				return err
			}
			snap, err := e.builder(nil).Build(cmd.Context(), e.source)
			if err != nil {
				return fail(e.out, "receivers", err)
			}

			tbl := e.out.Table("receivers", "Receiver", "Kinds").WithSnapshot(snap.ID.String())
			for _, name := range snap.Index.Receivers() {
				var kinds []string
				for _, kind := range webhook.Kinds {
					if len(snap.Index.ListFor(kind, name)) > 0 {
						kinds = append(kinds, kind.String())
					}
				}
				tbl.AddRow(name, strings.Join(kinds, ", "))
			}
			return tbl.Render()
		},
	}
}
