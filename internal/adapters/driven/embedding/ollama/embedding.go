// Package ollama provides an embedding provider adapter using Ollama.
package ollama

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
	DefaultBaseURL       = "http://localhost:11434"
	DefaultModel         = "nomic-embed-text"
	DefaultTimeout       = 30 * time.Second
	DefaultDimensions    = 768 // nomic-embed-text default
	DefaultMaxInputChars = 8192

	providerName = "ollama"
)

// Known local models. Context windows are in tokens, taken as roughly
// four characters per token.
var modelDimensions = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,
}

var modelMaxInputChars = map[string]int{
	"nomic-embed-text":  8192,
	"mxbai-embed-large": 2048,
	"all-minilm":        1024,
}

// Config holds configuration for the Ollama embedding provider.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int
}

// EmbeddingService generates embeddings using Ollama.
type EmbeddingService struct {
	client        *http.Client
	baseURL       string
	model         string
	dimensions    int
	maxInputChars int
}

// embedRequest is the /api/embed request format.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the /api/embed response format.
type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// NewEmbeddingService creates a new Ollama embedding provider.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = modelDimensions[baseModel(cfg.Model)]
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	maxChars := modelMaxInputChars[baseModel(cfg.Model)]
	if maxChars == 0 {
		maxChars = DefaultMaxInputChars
	}

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		model:         cfg.Model,
		dimensions:    cfg.Dimensions,
		maxInputChars: maxChars,
	}
}

// baseModel strips a ":tag" suffix.
func baseModel(model string) string {
	name, _, _ := strings.Cut(model, ":")
	return name
}

// EmbedBatch generates embeddings for texts using the batch endpoint.
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

	jsonBody, err := json.Marshal(embedRequest{Model: model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/embed",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, embedding.TransportError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, ollamaStatusError(resp, body)
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, domain.NewProviderError(domain.ProviderTransient, resp.StatusCode,
			fmt.Errorf("ollama: decode response: %w", err))
	}

	if len(embedResp.Embeddings) != len(texts) {
		return nil, domain.NewProviderError(domain.ProviderValidation, resp.StatusCode,
			fmt.Errorf("ollama: got %d embeddings for %d inputs", len(embedResp.Embeddings), len(texts)))
	}

	// Convert float64 to float32
	embeddings := make([][]float32, len(texts))
	for i, raw := range embedResp.Embeddings {
		vec := make([]float32, len(raw))
		for j, v := range raw {
			vec[j] = float32(v)
		}
		embeddings[i] = vec
	}

	return embeddings, nil
}

// ollamaStatusError maps Ollama errors. A missing model is reported as 404
// and is a configuration problem rather than a transient one.
func ollamaStatusError(resp *http.Response, body []byte) error {
	perr := embedding.StatusError(providerName, resp, body)
	if resp.StatusCode == http.StatusNotFound {
		perr.Kind = domain.ProviderValidation
	}
	return perr
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
	return s.maxInputChars
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return embedding.TransportError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return ollamaStatusError(resp, body)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
