// Package cohere provides an LLM service adapter using the Cohere v2 chat API.
package cohere

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docmind/internal/adapters/driven/apierr"
	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const providerName = "cohere"

const (
	DefaultBaseURL = "https://api.cohere.com"
	DefaultModel   = "command-r-plus"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Cohere LLM service.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService generates text with Cohere chat models.
type LLMService struct {
	api   *apierr.Client
	model string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model         string        `json:"model"`
	Messages      []chatMessage `json:"messages"`
	MaxTokens     int           `json:"max_tokens,omitempty"`
	Temperature   float64       `json:"temperature,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere: API key is required: %w", domain.ErrLLMUnavailable)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &LLMService{
		api:   apierr.NewClient(providerName, cfg.BaseURL, cfg.Timeout, apierr.Bearer(cfg.APIKey)),
		model: cfg.Model,
	}, nil
}

// Generate sends prompt as a single user turn and joins the text blocks of
// the reply.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := chatRequest{
		Model:         s.model,
		Messages:      []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:     opts.MaxTokens,
		Temperature:   opts.Temperature,
		StopSequences: opts.StopWords,
	}

	var resp chatResponse
	if err := s.api.PostJSON(ctx, "/v2/chat", req, &resp); err != nil {
		return "", err
	}

	var out strings.Builder
	for _, block := range resp.Message.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", apierr.Malformed(providerName, errors.New("no text content returned"))
	}
	return out.String(), nil
}

func (s *LLMService) ModelName() string {
	return s.model
}

func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/v1/models?page_size=1")
}

func (s *LLMService) Close() error {
	return nil
}
