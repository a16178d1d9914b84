package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/kbchat-go/internal/chat"
	"github.com/54b3r/kbchat-go/internal/rag"
)

// askOutput is the --json shape of `kbchat ask`. It extends the HTTP reply
// with the fields useful when tuning a corpus.
type askOutput struct {
	Text      string   `json:"text"`
	Succeeded bool     `json:"succeeded"`
	SourceTag string   `json:"sourceTag"`
	Rule      string   `json:"rule,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Matches   []string `json:"matches"`
}

// NewAskCmd constructs the `kbchat ask` command, which runs one question
// through the full pipeline and prints the reply.
func NewAskCmd() *cobra.Command {
	var (
		meta    rag.Metadata
		offline bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the assistant a question",
		Long: `Ask the assistant a question exactly as the chat widget would.

The question is matched against the knowledge base, the best entries are
sent to the configured model, and the reply is printed. With --offline, or
when MODEL_PROVIDER=none, the canned fallback answers instead.

Examples:
  kbchat ask "What does AI consulting cost?"
  kbchat ask --offline "How can I contact you?"
  kbchat ask --name Ann --service ai --json "Do you offer training?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := buildRuntime(ctx, runtimeOptions{offline: offline, transcripts: true})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = rt.Close() }()

			resp := rt.assistant.Answer(ctx, chat.Request{
				Query:    strings.Join(args, " "),
				Metadata: meta,
			})

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(askOutput{
					Text:      resp.Text,
					Succeeded: resp.Succeeded,
					SourceTag: string(resp.Source),
					Rule:      resp.Rule,
					Reason:    string(resp.Reason),
					Matches:   rag.IDs(resp.Matches),
				})
			}

			fmt.Fprintln(out, resp.Text)
			if resp.Source == chat.SourceFallback {
				fmt.Fprintf(cmd.ErrOrStderr(), "(fallback: rule=%s reason=%s)\n", resp.Rule, resp.Reason)
			}
			return nil
		},
	}

	metadataFlags(cmd, &meta)
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the model and answer from the fallback rules")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the reply as JSON")

	return cmd
}
