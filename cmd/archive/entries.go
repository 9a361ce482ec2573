package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"chatarchive/application/commands"
	"chatarchive/application/queries"

	"github.com/spf13/cobra"
)

func NewImportCmd(c containerFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import conversation transcripts",
		Long: `Import one entry or a JSON array of entries. Use "-" to read from stdin.

Each entry accepts id, title, summary, tags, sourceLabel, bodyText and createdAt.
Missing titles and tags are filled in by the summarizer when one is configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			batch, err := decodeImports(raw)
			if err != nil {
				return err
			}

			container, err := c(cmd.Context())
			if err != nil {
				return err
			}

			detect, _ := cmd.Flags().GetBool("detect")
			results := make([]*commands.ImportEntryResult, 0, len(batch))
			for i, in := range batch {
				in.DetectNow = detect
				out, err := container.CommandBus.Dispatch(cmd.Context(), in)
				if err != nil {
					return fmt.Errorf("import entry %d: %w", i, err)
				}
				results = append(results, out.(*commands.ImportEntryResult))
			}

			if wantJSON(cmd) {
				return writeJSON(cmd, results)
			}
			for _, r := range results {
				line := r.EntryID
				if r.Summarized {
					line += " summarized"
				}
				if r.Embedded {
					line += " embedded"
				}
				if r.Detection != nil {
					line += fmt.Sprintf(" linked=%d", len(r.Detection.Linked))
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().Bool("detect", false, "Run relationship detection for each entry after storing it")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(bufio.NewReader(cmd.InOrStdin()))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// decodeImports accepts a single object or an array of objects
func decodeImports(raw []byte) ([]commands.ImportEntryCommand, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no entries to import")
	}
	if trimmed[0] == '[' {
		var batch []commands.ImportEntryCommand
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, fmt.Errorf("decode entries: %w", err)
		}
		return batch, nil
	}
	var one commands.ImportEntryCommand
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	return []commands.ImportEntryCommand{one}, nil
}

func NewShowCmd(c containerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c(cmd.Context())
			if err != nil {
				return err
			}
			out, err := container.QueryBus.Ask(cmd.Context(), queries.GetEntryQuery{EntryID: args[0]})
			if err != nil {
				return fmt.Errorf("get entry: %w", err)
			}
			entry := out.(*queries.EntryView)
			if wantJSON(cmd) {
				return writeJSON(cmd, entry)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n", entry.Title)
			fmt.Fprintf(w, "  id:      %s\n", entry.ID)
			fmt.Fprintf(w, "  source:  %s\n", entry.SourceLabel)
			fmt.Fprintf(w, "  tags:    %v\n", entry.Tags)
			fmt.Fprintf(w, "  created: %s\n", entry.CreatedAt.Format("2006-01-02 15:04"))
			if entry.Summary != "" {
				fmt.Fprintf(w, "\n%s\n", entry.Summary)
			}
			return nil
		},
	}
}

func NewDeleteCmd(c containerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry and its relationships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.CommandBus.Send(cmd.Context(), commands.DeleteEntryCommand{EntryID: args[0]}); err != nil {
				return fmt.Errorf("delete entry: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
