package domain

// CheckStatus is the terminal outcome of a similarity check.
type CheckStatus string

const (
	// CheckExactMatch means an active document has identical bytes.
	CheckExactMatch CheckStatus = "exact_match"

	// CheckTextHashMatch means an active document has identical normalised text.
	CheckTextHashMatch CheckStatus = "text_hash_match"

	// CheckCandidates means one or more documents scored above the threshold.
	CheckCandidates CheckStatus = "candidates"

	// CheckNoMatch means nothing similar was found.
	CheckNoMatch CheckStatus = "no_match"

	// CheckRestored means a soft-deleted duplicate was restored.
	CheckRestored CheckStatus = "restored"
)

// String returns the string representation.
func (s CheckStatus) String() string {
	return string(s)
}

// CheckStage names a state in the similarity check state machine.
type CheckStage string

// Similarity check states, in traversal order.
const (
	StageStart           CheckStage = "START"
	StageCheckBinaryHash CheckStage = "CHECK_BINARY_HASH"
	StageCheckTextHash   CheckStage = "CHECK_TEXT_HASH"
	StageCheckSemantic   CheckStage = "CHECK_SEMANTIC"
	StageRestore         CheckStage = "RESTORE"
	StageDecision        CheckStage = "DECISION"
)

// Similarity check defaults.
const (
	DefaultSimilarityThreshold = 0.7
	DefaultMaxCandidates       = 10
	DefaultSearchLimit         = 10
	DefaultSearchConcurrency   = 4

	// MinRelaxedThreshold is the floor for per-chunk search acceptance.
	MinRelaxedThreshold = 0.3

	// ThresholdRelaxation is subtracted from the document threshold to get
	// the per-chunk search threshold.
	ThresholdRelaxation = 0.2
)

// CheckOptions configures a similarity check.
//
//	Field                Default  Effect
//	SkipEmbeddings       false    stop after the hash checks
//	SimilarityThreshold  0.7      minimum FinalScore for a candidate
//	MaxCandidates        10       length cap on the candidate list
//	AutoRestore          false    restore a soft-deleted hash match
//	SearchLimit          10       nearest neighbours per query chunk
//	SearchConcurrency    4        parallel per-chunk searches
type CheckOptions struct {
	SkipEmbeddings      bool
	SimilarityThreshold float64
	MaxCandidates       int
	AutoRestore         bool
	SearchLimit         int
	SearchConcurrency   int
}

// DefaultCheckOptions returns the documented defaults.
func DefaultCheckOptions() CheckOptions {
	return CheckOptions{
		SimilarityThreshold: DefaultSimilarityThreshold,
		MaxCandidates:       DefaultMaxCandidates,
		SearchLimit:         DefaultSearchLimit,
		SearchConcurrency:   DefaultSearchConcurrency,
	}
}

// WithDefaults fills zero-valued numeric fields with defaults.
func (o CheckOptions) WithDefaults() CheckOptions {
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if o.MaxCandidates == 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
	if o.SearchLimit == 0 {
		o.SearchLimit = DefaultSearchLimit
	}
	if o.SearchConcurrency == 0 {
		o.SearchConcurrency = DefaultSearchConcurrency
	}
	return o
}

// Validate checks option ranges.
func (o CheckOptions) Validate() error {
	if o.SimilarityThreshold <= 0 || o.SimilarityThreshold > 1 {
		return NewValidationError("similarity_threshold", "must be in (0, 1]")
	}
	if o.MaxCandidates < 1 {
		return NewValidationError("max_candidates", "must be at least 1")
	}
	if o.SearchLimit < 1 {
		return NewValidationError("search_limit", "must be at least 1")
	}
	if o.SearchConcurrency < 1 {
		return NewValidationError("search_concurrency", "must be at least 1")
	}
	return nil
}

// RelaxedThreshold returns the per-chunk search threshold for a document
// threshold: max(0.3, threshold-0.2).
func RelaxedThreshold(threshold float64) float64 {
	relaxed := threshold - ThresholdRelaxation
	if relaxed < MinRelaxedThreshold {
		return MinRelaxedThreshold
	}
	return relaxed
}

// SimilarityCandidate is a document whose aggregated chunk similarity
// was scored against the query. FinalScore = AvgSimilarity * Coverage.
type SimilarityCandidate struct {
	DocumentID    string  `json:"document_id"`
	Title         string  `json:"title,omitempty"`
	MatchedChunks int     `json:"matched_chunks"`
	TotalChunks   int     `json:"total_chunks"`
	AvgSimilarity float64 `json:"avg_similarity"`
	Coverage      float64 `json:"coverage"`
	FinalScore    float64 `json:"final_score"`
}

// ChunkHit is one nearest-neighbour hit for one query chunk.
type ChunkHit struct {
	// QueryIndex is the index of the query chunk that produced the hit.
	QueryIndex int

	// ChunkID is the matched target chunk.
	ChunkID string

	// DocumentID is the matched chunk's document.
	DocumentID string

	// Score is the similarity in [0, 1].
	Score float64
}

// EmbeddingSummary reports how many chunk embeddings succeeded.
type EmbeddingSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// CheckResult is the structured outcome of a similarity check.
// Narrow failures that did not stop the check are listed in Warnings.
type CheckResult struct {
	Status          CheckStatus           `json:"status"`
	MatchedDocument *Document             `json:"matched_document,omitempty"`
	Candidates      []SimilarityCandidate `json:"candidates,omitempty"`
	Fingerprint     DocumentFingerprint   `json:"fingerprint"`
	Stages          []CheckStage          `json:"stages"`
	Embedding       *EmbeddingSummary     `json:"embedding,omitempty"`
	Warnings        []string              `json:"warnings,omitempty"`
}
