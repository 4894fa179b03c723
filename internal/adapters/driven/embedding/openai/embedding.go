// Package openai provides an embedding provider adapter using the OpenAI API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/embedding"
	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingProvider = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	providerName = "openai"
)

// modelInfo describes a known embedding model.
type modelInfo struct {
	dimensions    int
	maxInputChars int

	// resizable models accept the dimensions request field.
	resizable bool
}

// Known OpenAI embedding models. Input ceilings are 8191 tokens, taken
// as roughly four characters per token.
var models = map[string]modelInfo{
	"text-embedding-3-small": {dimensions: 1536, maxInputChars: 32764, resizable: true},
	"text-embedding-3-large": {dimensions: 3072, maxInputChars: 32764, resizable: true},
	"text-embedding-ada-002": {dimensions: 1536, maxInputChars: 32764},
}

// fallbackModel is used for models missing from the table.
var fallbackModel = modelInfo{dimensions: 1536, maxInputChars: 32764}

// Config holds configuration for the OpenAI embedding provider.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only applicable to text-embedding-3-* models.
	Dimensions int
}

// EmbeddingService generates embeddings using the OpenAI API.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	info       modelInfo
	dimensions int
}

// embeddingRequest is the OpenAI API request format.
type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// embeddingResponse is the OpenAI API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// NewEmbeddingService creates a new OpenAI embedding provider.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
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

	info, ok := models[cfg.Model]
	if !ok {
		info = fallbackModel
	}

	dimensions := info.dimensions
	if cfg.Dimensions > 0 && info.resizable {
		dimensions = cfg.Dimensions
	}

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		info:       info,
		dimensions: dimensions,
	}, nil
}

// EmbedBatch generates embeddings for texts in a single request. The
// response is reordered by its index field.
func (s *EmbeddingService) EmbedBatch(
	ctx context.Context,
	texts []string,
	cfg domain.EmbeddingConfig,
) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := s.model
	if cfg.Model != "" {
		model = cfg.Model
	}
	reqBody := embeddingRequest{
		Model: model,
		Input: texts,
	}

	// Only text-embedding-3-* models accept a dimensions override
	dimensions := s.dimensions
	if cfg.Dimensions > 0 {
		dimensions = cfg.Dimensions
	}
	if info, ok := models[model]; ok && info.resizable && dimensions != info.dimensions {
		reqBody.Dimensions = dimensions
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, embedding.TransportError(providerName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, embedding.TransportError(providerName, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, embedding.StatusError(providerName, resp, body)
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, domain.NewProviderError(domain.ProviderTransient, resp.StatusCode,
			fmt.Errorf("openai: decode response: %w", err))
	}

	if len(embedResp.Data) != len(texts) {
		return nil, domain.NewProviderError(domain.ProviderValidation, resp.StatusCode,
			fmt.Errorf("openai: got %d embeddings for %d inputs", len(embedResp.Data), len(texts)))
	}

	// Convert float64 to float32 and order by index
	embeddings := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(texts) || embeddings[data.Index] != nil {
			return nil, domain.NewProviderError(domain.ProviderValidation, resp.StatusCode,
				fmt.Errorf("openai: invalid embedding index %d", data.Index))
		}
		vec := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vec[i] = float32(v)
		}
		embeddings[data.Index] = vec
	}

	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// MaxInputChars returns the model's per-input character ceiling.
func (s *EmbeddingService) MaxInputChars() int {
	return s.info.maxInputChars
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return embedding.TransportError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return embedding.StatusError(providerName, resp, body)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
