package main

import (
	"context"
	"encoding/json"

	"chatarchive/infrastructure/di"

	"github.com/spf13/cobra"
)

// containerFunc hands a subcommand the shared container
type containerFunc func(ctx context.Context) (*di.Container, error)

func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "archive",
		Short:         "Manage a chat-history archive",
		Long:          `Import AI conversation transcripts, detect relationships between them and explore the resulting graph.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	if a != nil {
		addSubcommands(rootCmd, a.Container)
	}

	return rootCmd
}

func addSubcommands(root *cobra.Command, c containerFunc) {
	root.AddCommand(
		NewServeCmd(c),
		NewImportCmd(c),
		NewShowCmd(c),
		NewDeleteCmd(c),
		NewDetectCmd(c),
		NewRelatedCmd(c),
		NewLinkCmd(c),
		NewUnlinkCmd(c),
		NewGraphCmd(c),
	)
}

func wantJSON(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
