// Command ragstore manages local RAG document databases: create and drop
// databases, ingest and remove documents, run searches, annotate chunks,
// and evaluate retrieval quality against a case file.
package main

import (
	"fmt"
	"os"

	"github.com/Xerophayze/ragstore/cmd/ragstore/commands"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.SetVersion(version, commit)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
