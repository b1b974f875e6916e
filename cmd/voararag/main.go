// Command voararag is the entry point for the Voara knowledge base
// retrieval engine. It provides a CLI (via Cobra) for ingesting and
// querying the knowledge base, and an HTTP server exposing the same
// capabilities to the voice agent platform.
package main

import (
	"fmt"
	"os"

	"github.com/voara-ai/voara-rag/cmd/voararag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
