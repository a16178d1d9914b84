package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewSearchCmd constructs the `kbchat search` command, which shows how the
// knowledge base ranks entries for a query without calling the model.
func NewSearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Show the knowledge entries retrieved for a query",
		Long: `Rank the knowledge base against a query and print the entries that
would be offered to the model, with their similarity scores. Entries scoring
at or below the relevance threshold are dropped.

Examples:
  kbchat search "AI Consulting"
  kbchat search --top-k 10 "pricing for web development"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(cmd.Context(), runtimeOptions{offline: true})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer func() { _ = rt.Close() }()

			results, err := rt.assistant.Search(strings.Join(args, " "), topK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "no entries above the relevance threshold")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tID\tCATEGORY\tSIMILARITY")
			for i, r := range results {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\n", i+1, r.ID, r.Category, r.Similarity)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of entries to rank (default: KBCHAT_TOP_K or 3)")

	return cmd
}
