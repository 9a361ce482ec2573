package main

import (
	"fmt"
	"text/tabwriter"

	"chatarchive/application/commands"
	"chatarchive/application/queries"
	"chatarchive/application/services"
	"chatarchive/domain/core/entities"

	"github.com/spf13/cobra"
)

func NewDetectCmd(c containerFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect [id]",
		Short: "Run relationship detection",
		Long:  `Score an entry against the rest of the archive and persist every pair above the threshold. With --all, every entry is processed in turn.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if all == (len(args) == 1) {
				return fmt.Errorf("pass exactly one of an entry id or --all")
			}

			container, err := c(cmd.Context())
			if err != nil {
				return err
			}

			var results []*services.DetectionResult
			if all {
				results, err = container.Detector.DetectAll(cmd.Context())
				_ = container.Cache.Clear(cmd.Context())
				if err != nil {
					return fmt.Errorf("detect all: %w", err)
				}
			} else {
				out, err := container.CommandBus.Dispatch(cmd.Context(), commands.DetectRelationshipsCommand{EntryID: args[0]})
				if err != nil {
					return fmt.Errorf("detect: %w", err)
				}
				results = append(results, out.(*services.DetectionResult))
			}

			if wantJSON(cmd) {
				return writeJSON(cmd, results)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENTRY\tCOMPARED\tLINKED\tMANUAL\tREMOVED")
			for _, r := range results {
				if r.NotFound {
					fmt.Fprintf(w, "%s\tnot found\t\t\t\n", r.EntryID)
					continue
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", r.EntryID, r.Compared, len(r.Linked), r.KeptManual, r.Removed)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Bool("all", false, "Run detection for every entry")
	return cmd
}

func NewRelatedCmd(c containerFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "related <id>",
		Short: "List entries related to an entry",
		Long:  `List stored relationships, strongest first. With --suggest, rank every other entry live using embeddings where available; nothing is persisted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			suggest, _ := cmd.Flags().GetBool("suggest")

			container, err := c(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if suggest {
				out, err := container.QueryBus.Ask(cmd.Context(), queries.GetSuggestionsQuery{EntryID: args[0], Limit: limit})
				if err != nil {
					return fmt.Errorf("suggestions: %w", err)
				}
				result := out.(*queries.GetSuggestionsResult)
				if wantJSON(cmd) {
					return writeJSON(cmd, result)
				}
				fmt.Fprintln(w, "SCORE\tLINKED\tID\tTITLE")
				for _, s := range result.Suggestions {
					fmt.Fprintf(w, "%.3f\t%t\t%s\t%s\n", s.Score, s.Linked, s.Entry.ID, s.Entry.Title)
				}
				return w.Flush()
			}

			out, err := container.QueryBus.Ask(cmd.Context(), queries.GetRelatedQuery{EntryID: args[0], Limit: limit})
			if err != nil {
				return fmt.Errorf("related: %w", err)
			}
			result := out.(*queries.GetRelatedResult)
			if wantJSON(cmd) {
				return writeJSON(cmd, result)
			}
			fmt.Fprintln(w, "SCORE\tKIND\tID\tTITLE")
			for _, r := range result.Related {
				fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n", r.Score, r.Kind, r.Entry.ID, r.Entry.Title)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int("limit", 0, "Maximum results (0 uses the configured default)")
	cmd.Flags().Bool("suggest", false, "Rank live suggestions instead of stored relationships")
	return cmd
}

func NewLinkCmd(c containerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "link <source-id> <target-id>",
		Short: "Record a manual relationship",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c(cmd.Context())
			if err != nil {
				return err
			}
			out, err := container.CommandBus.Dispatch(cmd.Context(), commands.LinkEntriesCommand{SourceID: args[0], TargetID: args[1]})
			if err != nil {
				return fmt.Errorf("link: %w", err)
			}
			rel := out.(*entities.Relationship)
			if wantJSON(cmd) {
				return writeJSON(cmd, rel)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "linked %s <-> %s\n", rel.SourceID, rel.TargetID)
			return nil
		},
	}
}

func NewUnlinkCmd(c containerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <source-id> <target-id>",
		Short: "Remove a relationship in both directions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.CommandBus.Send(cmd.Context(), commands.UnlinkEntriesCommand{SourceID: args[0], TargetID: args[1]}); err != nil {
				return fmt.Errorf("unlink: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unlinked %s <-> %s\n", args[0], args[1])
			return nil
		},
	}
}
