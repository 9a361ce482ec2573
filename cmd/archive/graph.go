package main

import (
	"fmt"
	"os"

	"chatarchive/application/queries"
	domainservices "chatarchive/domain/services"
	"chatarchive/visualization/view"

	"github.com/spf13/cobra"
)

func NewGraphCmd(c containerFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the relationship graph",
		Long: `Print the visualization dataset, or with --svg run the force layout to
completion and write the settled picture to a file ("-" for stdout).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			minScore, _ := cmd.Flags().GetFloat64("min-score")
			svgPath, _ := cmd.Flags().GetString("svg")
			focus, _ := cmd.Flags().GetString("focus")
			width, _ := cmd.Flags().GetFloat64("width")
			height, _ := cmd.Flags().GetFloat64("height")

			container, err := c(cmd.Context())
			if err != nil {
				return err
			}
			out, err := container.QueryBus.Ask(cmd.Context(), queries.GetGraphDataQuery{MinScore: minScore})
			if err != nil {
				return fmt.Errorf("graph data: %w", err)
			}
			graph := out.(*domainservices.GraphData)

			if svgPath != "" {
				doc := view.RenderSVG(*graph, container.Tuning.Current(), focus, width, height)
				if svgPath == "-" {
					_, err := cmd.OutOrStdout().Write(doc)
					return err
				}
				if err := os.WriteFile(svgPath, doc, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", svgPath, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d nodes, %d edges)\n", svgPath, len(graph.Nodes), len(graph.Edges))
				return nil
			}

			if wantJSON(cmd) {
				return writeJSON(cmd, graph)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d nodes, %d edges\n", len(graph.Nodes), len(graph.Edges))
			for _, e := range graph.Edges {
				fmt.Fprintf(w, "  %s -- %s  %.3f %s\n", e.SourceID, e.TargetID, e.Strength, e.Kind)
			}
			return nil
		},
	}

	cmd.Flags().Float64("min-score", 0, "Hide edges weaker than this (0 uses the similarity threshold)")
	cmd.Flags().String("svg", "", "Render the settled layout to this file")
	cmd.Flags().String("focus", "", "Entry to center the view on")
	cmd.Flags().Float64("width", 0, "Canvas width (0 uses the configured default)")
	cmd.Flags().Float64("height", 0, "Canvas height (0 uses the configured default)")
	return cmd
}
