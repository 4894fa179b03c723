package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dedup/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
}

// BuildPipeline creates a pipeline from configuration.
// Processors run in the order listed in cfg.Processors.
func BuildPipeline(r *Registry, cfg domain.PipelineConfig) (*Pipeline, error) {
	pipeline := NewPipeline()
	for _, name := range cfg.Processors {
		proc, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, err
		}
		pipeline.Add(proc)
	}
	return pipeline, nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - max_chunk_size (int): Character limit per chunk (default: 1000)
//   - overlap (int): Overlap budget in characters (default: 200)
//   - min_chunk_size (int): Shorter paragraphs are dropped (default: 50)
//   - respect_paragraphs (bool): Split on blank lines first (default: true)
//   - respect_sentences (bool): Pack whole sentences (default: true)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size, ok := getIntFromConfigOK(cfg, "max_chunk_size"); ok {
			opts = append(opts, chunker.WithMaxChunkSize(size))
		}
		if overlap, ok := getIntFromConfigOK(cfg, "overlap"); ok {
			opts = append(opts, chunker.WithOverlap(overlap))
		}
		if size, ok := getIntFromConfigOK(cfg, "min_chunk_size"); ok {
			opts = append(opts, chunker.WithMinChunkSize(size))
		}
		if respect, ok := cfg["respect_paragraphs"].(bool); ok {
			opts = append(opts, chunker.WithRespectParagraphs(respect))
		}
		if respect, ok := cfg["respect_sentences"].(bool); ok {
			opts = append(opts, chunker.WithRespectSentences(respect))
		}
	}

	p := chunker.New(opts...)
	if err := p.Config().Validate(); err != nil {
		return nil, fmt.Errorf("chunker config: %w", err)
	}
	return p, nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/YAML parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	v, _ := getIntFromConfigOK(cfg, key)
	return v
}

func getIntFromConfigOK(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
