package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docmind/internal/adapters/driven/ai"
	"github.com/custodia-labs/docmind/internal/adapters/driven/extractor"
	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/normalisers/pdf"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and check configuration",
	Long: `Shows the effective configuration after defaults, config.toml, .env,
environment variables and flags have been applied.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE:  runConfigShow,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check provider connectivity",
	Long:  `Creates the configured embedding and LLM providers and pings them.`,
	RunE:  runConfigCheck,
}

// errConfigCheck is returned when a provider fails its ping.
var errConfigCheck = errors.New("configuration check failed")

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cmd.Println("Embedding:")
	cmd.Printf("  Provider:    %s\n", cfg.Embedding.Provider)
	cmd.Printf("  Model:       %s\n", cfg.Embedding.Model)
	if cfg.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL:    %s\n", cfg.Embedding.BaseURL)
	}
	cmd.Printf("  Dimensions:  %d\n", cfg.EmbeddingDimensionsFor())
	cmd.Printf("  API key:     %s\n", keyStatus(cfg.Embedding.APIKey))
	cmd.Printf("  Concurrency: %d\n", cfg.Embedding.Concurrency)
	if cfg.Embedding.RateLimit > 0 {
		cmd.Printf("  Rate limit:  %.1f/s (burst %d)\n", cfg.Embedding.RateLimit, cfg.Embedding.RateBurst)
	}

	cmd.Println("\nLLM:")
	cmd.Printf("  Provider:    %s\n", cfg.LLM.Provider)
	if cfg.LLM.Provider != domain.AIProviderNone {
		cmd.Printf("  Model:       %s\n", cfg.LLM.Model)
		cmd.Printf("  API key:     %s\n", keyStatus(cfg.LLM.APIKey))
	}

	cmd.Println("\nChunking:")
	cmd.Printf("  Chunk size:  %d\n", cfg.Chunking.ChunkSize)
	cmd.Printf("  Overlap:     %d\n", cfg.Chunking.Overlap)

	cmd.Println("\nStorage:")
	cmd.Printf("  Cache size:  %d\n", cfg.Cache.Size)
	cmd.Printf("  Store:       %s\n", orDefault(string(cfg.Cache.Store), string(domain.EmbeddingStoreNone)))
	cmd.Printf("  Vector:      %s\n", orDefault(string(cfg.Vector.Backend), string(domain.VectorBackendMemory)))
	cmd.Printf("  Data dir:    %s\n", cfg.DataDir)

	cmd.Println("\nExtraction:")
	cmd.Printf("  Extensions:  %v\n", extractor.SupportedExtensions())
	if err := pdf.CheckAvailable(); err != nil {
		cmd.Println("  PDF:         built-in reader")
	} else {
		cmd.Println("  PDF:         pdftotext")
	}
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	failed := false

	if err := ai.ValidateEmbeddingConfig(ctx, &cfg.Embedding); err != nil {
		cmd.Printf("Embedding (%s): FAILED - %v\n", cfg.Embedding.Provider, err)
		failed = true
	} else {
		cmd.Printf("Embedding (%s): OK\n", cfg.Embedding.Provider)
	}

	if cfg.LLM.Provider == domain.AIProviderNone {
		cmd.Println("LLM: disabled, summaries are extractive")
	} else if err := ai.ValidateLLMConfig(ctx, &cfg.LLM); err != nil {
		cmd.Printf("LLM (%s): FAILED - %v\n", cfg.LLM.Provider, err)
		failed = true
	} else {
		cmd.Printf("LLM (%s): OK\n", cfg.LLM.Provider)
	}

	if err := pdf.CheckAvailable(); err != nil {
		cmd.Println()
		cmd.Println(pdf.InstallInstructions())
	}

	if failed {
		return errConfigCheck
	}
	return nil
}

func keyStatus(key string) string {
	if key == "" {
		return "not set"
	}
	return "set"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
