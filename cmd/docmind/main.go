// Command docmind serves document extraction, chunking, semantic search and
// summaries to MCP clients.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/docmind/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
