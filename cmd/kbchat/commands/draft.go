package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/kbchat-go/internal/rag"
)

// NewDraftCmd constructs the `kbchat draft` command, which prints the inquiry
// message draft the widget offers as a quick action.
func NewDraftCmd() *cobra.Command {
	var meta rag.Metadata

	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Print an inquiry message draft for the contact form",
		Long: `Print an inquiry message the customer can send through the contact form,
personalised from the metadata flags.

Examples:
  kbchat draft --name "Ann Lee" --company Acme --service ai`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := buildRuntime(cmd.Context(), runtimeOptions{offline: true})
			if err != nil {
				return fmt.Errorf("draft: %w", err)
			}
			defer func() { _ = rt.Close() }()

			fmt.Fprintln(cmd.OutOrStdout(), rt.assistant.Draft(meta))
			return nil
		},
	}

	metadataFlags(cmd, &meta)

	return cmd
}
