package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driving"
)

var (
	searchLimit int
	searchDoc   string
	searchFiles []string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed chunks",
	Long: `Ranks indexed chunks by cosine similarity to the query embedding.

Files given with --file are chunked and indexed first, which is how the
in-memory index is populated for a one-off search.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().StringVar(&searchDoc, "doc", "", "restrict results to one document ID")
	searchCmd.Flags().StringArrayVarP(&searchFiles, "file", "f", nil, "index this file before searching (repeatable)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if err := requireServices(cmd); err != nil {
		return err
	}

	ctx := cmd.Context()
	for _, path := range searchFiles {
		res, err := documentService.ChunkDocument(ctx, driving.ChunkRequest{Path: path, Index: true})
		if err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}
		if res.Failed > 0 {
			cmd.PrintErrf("warning: %d of %d chunks of %s failed to embed\n", res.Failed, len(res.Chunks), path)
		}
	}

	opts := domain.SearchOptions{
		DocumentID: searchDoc,
		TopK:       searchLimit,
	}

	results, err := searchService.Search(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		// Format: [N] chunk-id (score) page
		cmd.Printf("  [%d] %s (%.4f)", i+1, results[i].ChunkID, results[i].Score)
		if results[i].Page > 0 {
			cmd.Printf(" page %d", results[i].Page)
		}
		cmd.Println()
		cmd.Printf("      %s\n", snippet(results[i].Content, 120))
		cmd.Println()
	}

	return nil
}
