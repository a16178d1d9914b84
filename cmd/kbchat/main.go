// Command kbchat is the entry point for the knowledge-base chat assistant.
// It provides a CLI interface (via Cobra) and an HTTP server for the
// embeddable chat widget.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/54b3r/kbchat-go/cmd/kbchat/commands"
)

func main() {
	if err := commands.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
