// Package cli implements the docmind command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docmind/internal/adapters/driven/config/env"
	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driving"
	"github.com/custodia-labs/docmind/internal/logger"
)

// version is set by Execute from the build.
var version = "dev"

// Persistent flag values.
var (
	verbose   bool
	configDir string
	chunkSize int
	overlap   int
	model     string
)

// Services used by the commands. They are built on first use unless a
// caller has already set them with SetServices.
var (
	searchService   driving.SearchService
	documentService driving.DocumentService
	app             *App
)

var rootCmd = &cobra.Command{
	Use:   "docmind",
	Short: "Document analysis server for AI assistants",
	Long: `docmind extracts text from local documents, splits it into chunks,
embeds the chunks and answers semantic search and summary requests.

Run "docmind mcp serve" to expose these operations as MCP tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if verbose {
			logger.SetVerbose(true)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.docmind)")
	flags.IntVar(&chunkSize, "chunk-size", 0, "default chunk size in characters")
	flags.IntVar(&overlap, "overlap", 0, "default chunk overlap in characters")
	flags.StringVar(&model, "model", "", "embedding model")
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	defer Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// SetServices injects the services used by the commands.
func SetServices(search driving.SearchService, docs driving.DocumentService) {
	searchService = search
	documentService = docs
}

// Shutdown releases everything built by the commands.
func Shutdown() {
	if app != nil {
		app.Close()
		app = nil
		searchService = nil
		documentService = nil
	}
	logger.Sync()
}

// loadConfig builds the configuration and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (domain.Config, error) {
	cfg, err := env.Load(configDir)
	if err != nil {
		return domain.Config{}, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("chunk-size") {
		cfg.Chunking.ChunkSize = chunkSize
	}
	if flags.Changed("overlap") {
		cfg.Chunking.Overlap = overlap
	}
	if flags.Changed("model") {
		cfg.Embedding.Model = model
		cfg.Embedding.Dimensions = 0
	}
	if err := cfg.Validate(); err != nil {
		return domain.Config{}, err
	}

	if !verbose {
		if err := logger.SetLevel(cfg.LogLevel); err != nil {
			return domain.Config{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	return cfg, nil
}

// requireServices builds the services if SetServices was not called.
func requireServices(cmd *cobra.Command) error {
	if searchService != nil && documentService != nil {
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := Bootstrap(cmd.Context(), cfg, os.Stderr)
	if err != nil {
		return err
	}
	app = a
	searchService = a.Search
	documentService = a.Document
	return nil
}
