// Command docqa is the entry point for the document question-answering
// service. It provides a CLI interface (via Cobra) and an HTTP server
// exposing upload, embedding, search, and grounded answer endpoints.
package main

import (
	"fmt"
	"os"

	"github.com/docqa/docqa-go/cmd/docqa/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
