package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/hookmeta/internal/config"
)

// errReported marks failures already rendered to the user.
var errReported = errors.New("reported")

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hookmeta",
		Short:         "Validate and resolve webhook receiver metadata",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.BindGlobalFlags(rootCmd, v)
	rootCmd.PersistentFlags().StringP("output", "o", "text", "output format (text, json, markdown)")
	rootCmd.PersistentFlags().String("color", "auto", "colour text output (auto, always, never)")
	_ = v.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = v.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))

	rootCmd.AddCommand(
		newValidateCmd(v),
		newInspectCmd(v),
		newSchemaCmd(),
		newServeCmd(v),
		newHistoryCmd(v),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "hookmeta %s\n", version)
	fmt.Fprintf(w, "  commit:  %s\n", commit)
	fmt.Fprintf(w, "  built:   %s\n", buildDate)
}
