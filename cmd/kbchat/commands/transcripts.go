package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/kbchat-go/internal/config"
	"github.com/54b3r/kbchat-go/internal/store"
)

// NewTranscriptsCmd constructs the `kbchat transcripts` command, which prints
// the most recent recorded chat turns.
func NewTranscriptsCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "Show recently recorded chat turns",
		Long: `Print the most recent chat turns from the transcript log, oldest first.
The log lives at KBCHAT_TRANSCRIPT_DB (default: ~/.kbchat/transcripts.db).

Examples:
  kbchat transcripts
  kbchat transcripts --limit 50 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.SettingsFromEnv()
			if err != nil {
				return err
			}
			if !settings.TranscriptsEnabled() {
				return errors.New("transcripts: disabled via KBCHAT_TRANSCRIPT_DB=disabled")
			}
			path := settings.TranscriptDB
			if path == "" {
				if path, err = store.DefaultDBPath(); err != nil {
					return err
				}
			}

			db, err := store.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			turns, err := db.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(turns)
			}
			if len(turns) == 0 {
				fmt.Fprintln(out, "no transcripts recorded")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSOURCE\tRULE\tMATCHES\tQUERY")
			for _, t := range turns {
				rule := t.Rule
				if rule == "" {
					rule = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					t.CreatedAt.Local().Format(time.DateTime),
					t.Source, rule, strings.Join(t.Matches, ","), oneLine(t.Query, 60))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of turns to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print turns as JSON")

	return cmd
}

// oneLine flattens s and truncates it to width runes.
func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > width {
		return string(r[:width-1]) + "…"
	}
	return s
}
