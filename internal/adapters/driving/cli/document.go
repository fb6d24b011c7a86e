package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driving"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Print the extracted text of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var metadataCmd = &cobra.Command{
	Use:   "metadata [file]",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetadata,
}

var chunkCmd = &cobra.Command{
	Use:   "chunk [file]",
	Short: "Split a document into chunks",
	Long: `Splits the document into overlapping chunks and prints them.

With --index the chunks are also embedded and stored in the configured
vector index. The in-memory index lives only as long as the process.`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarise a document",
	Long: `Summarises the document with the configured LLM provider.

Falls back to the first sentences of the document when no provider is
available. Detail levels: brief, standard, detailed.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

// Command flags.
var (
	outputJSON  bool
	chunkIndex  bool
	detailLevel string
)

func init() {
	for _, c := range []*cobra.Command{extractCmd, metadataCmd, chunkCmd, summarizeCmd} {
		c.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
		rootCmd.AddCommand(c)
	}
	chunkCmd.Flags().BoolVar(&chunkIndex, "index", false, "embed and index the chunks")
	summarizeCmd.Flags().StringVarP(&detailLevel, "level", "l", string(domain.DetailBrief), "detail level")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if err := requireServices(cmd); err != nil {
		return err
	}

	ext, err := documentService.ExtractText(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}

	if outputJSON {
		return printJSON(cmd, ext)
	}
	cmd.Println(ext.Text)
	return nil
}

func runMetadata(cmd *cobra.Command, args []string) error {
	if err := requireServices(cmd); err != nil {
		return err
	}

	meta, err := documentService.GetMetadata(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("metadata failed: %w", err)
	}

	if outputJSON {
		return printJSON(cmd, meta)
	}

	cmd.Printf("Document: %s\n\n", meta.DocumentID)
	cmd.Printf("  Title:  %s\n", meta.Title)
	if meta.Author != "" {
		cmd.Printf("  Author: %s\n", meta.Author)
	}
	cmd.Printf("  Type:   %s\n", meta.FileType)
	cmd.Printf("  Pages:  %d\n", meta.Pages)
	cmd.Printf("  Words:  %d\n", meta.WordCount)
	cmd.Printf("  Size:   %d bytes\n", meta.FileSizeBytes)
	cmd.Printf("  Path:   %s\n", meta.FilePath)
	return nil
}

func runChunk(cmd *cobra.Command, args []string) error {
	if err := requireServices(cmd); err != nil {
		return err
	}

	res, err := documentService.ChunkDocument(cmd.Context(), driving.ChunkRequest{
		Path:  args[0],
		Index: chunkIndex,
	})
	if err != nil {
		return fmt.Errorf("chunk failed: %w", err)
	}

	if outputJSON {
		return printJSON(cmd, res)
	}

	cmd.Printf("Document %s (generation %d, %s)\n\n", res.DocumentID, res.Generation, res.State)
	for i := range res.Chunks {
		c := res.Chunks[i].Chunk
		cmd.Printf("  [%s] %d-%d", c.ID, c.StartOffset, c.EndOffset)
		if c.Page > 0 {
			cmd.Printf(" page %d", c.Page)
		}
		if res.Chunks[i].Err != nil {
			cmd.Printf(" error: %v", res.Chunks[i].Err)
		}
		cmd.Println()
		cmd.Printf("      %s\n", snippet(c.Content, 80))
	}
	cmd.Printf("\nTotal: %d chunks", len(res.Chunks))
	if chunkIndex {
		cmd.Printf(", %d embedded, %d failed", res.Embedded, res.Failed)
	}
	cmd.Println()
	return nil
}

func runSummarize(cmd *cobra.Command, args []string) error {
	level, err := domain.ParseDetailLevel(detailLevel)
	if err != nil {
		return err
	}
	if err := requireServices(cmd); err != nil {
		return err
	}

	sum, err := documentService.Summarize(cmd.Context(), args[0], level)
	if err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}

	if outputJSON {
		return printJSON(cmd, sum)
	}
	cmd.Println(sum.Text)
	cmd.Printf("\n(%s %s summary of %d words)\n", sum.Level, sum.Method, sum.SourceWordCount)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// snippet returns the first n runes of s on a single line.
func snippet(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' || c == '\r' || c == '\t' {
			r[i] = ' '
		}
	}
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
