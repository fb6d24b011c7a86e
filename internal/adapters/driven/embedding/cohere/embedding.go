// Package cohere provides an embedding service adapter using the Cohere API.
package cohere

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docmind/internal/adapters/driven/apierr"
	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const providerName = "cohere"

const (
	DefaultBaseURL   = "https://api.cohere.com"
	DefaultModel     = "embed-english-v3.0"
	DefaultTimeout   = 60 * time.Second
	DefaultInputType = "search_document"
)

var modelDimensions = map[string]int{
	"embed-english-v3.0":            1024,
	"embed-multilingual-v3.0":       1024,
	"embed-english-light-v3.0":      384,
	"embed-multilingual-light-v3.0": 384,
}

// Config holds configuration for the Cohere embedding service.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	// InputType tells Cohere how the text will be used (default: search_document).
	InputType string

	Timeout time.Duration
}

// EmbeddingService generates embeddings using the Cohere v2 embed endpoint.
type EmbeddingService struct {
	api        *apierr.Client
	model      string
	inputType  string
	dimensions int
}

type embedRequest struct {
	Model          string   `json:"model"`
	Texts          []string `json:"texts"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

type embedResponse struct {
	Embeddings struct {
		Float [][]float64 `json:"float"`
	} `json:"embeddings"`
}

func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere: API key is required: %w", domain.ErrEmbeddingUnavailable)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.InputType == "" {
		cfg.InputType = DefaultInputType
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &EmbeddingService{
		api:        apierr.NewClient(providerName, cfg.BaseURL, cfg.Timeout, apierr.Bearer(cfg.APIKey)),
		model:      cfg.Model,
		inputType:  cfg.InputType,
		dimensions: modelDimensions[cfg.Model],
	}, nil
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	req := embedRequest{
		Model:          s.model,
		Texts:          []string{text},
		InputType:      s.inputType,
		EmbeddingTypes: []string{"float"},
	}

	var resp embedResponse
	if err := s.api.PostJSON(ctx, "/v2/embed", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings.Float) == 0 {
		return nil, apierr.Malformed(providerName, errors.New("no embedding returned"))
	}

	raw := resp.Embeddings.Float[0]
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = float32(v)
	}
	return out, nil
}

// Dimensions returns zero for models missing from the known table.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key against the models endpoint.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/v1/models?page_size=1")
}

func (s *EmbeddingService) Close() error {
	return nil
}
