package domain

import "time"

// DocumentStatus is the lifecycle state of a stored document.
type DocumentStatus string

const (
	// StatusActive documents take part in duplicate detection.
	StatusActive DocumentStatus = "active"

	// StatusDeleted documents are soft-deleted. Their bytes live in the
	// object store's deleted namespace and they can be restored.
	StatusDeleted DocumentStatus = "deleted"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	return s == StatusActive || s == StatusDeleted
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Document represents an ingested document with its fingerprints.
type Document struct {
	// ID is the unique identifier for the document.
	ID string `json:"id"`

	// Title is the human-readable title, taken from the extracted
	// metadata when available and the file name otherwise.
	Title string `json:"title"`

	// OriginalName is the file name the document was submitted under.
	OriginalName string `json:"original_name"`

	// MIMEType is the detected content type.
	MIMEType string `json:"mime_type"`

	// Size is the byte length of the original content.
	Size int64 `json:"size"`

	// ContentHash is the hex digest of the raw bytes.
	ContentHash string `json:"content_hash"`

	// TextHash is the hex digest of the normalised extracted text.
	// Empty when text extraction failed at ingest.
	TextHash string `json:"text_hash,omitempty"`

	// Status is the lifecycle state.
	Status DocumentStatus `json:"status"`

	// StorageKey locates the original bytes in the object store.
	StorageKey string `json:"storage_key"`

	// Content is the full extracted text before chunking.
	Content string `json:"-"`

	// PageCount is reported by the extractor (1 for flat text).
	PageCount int `json:"page_count,omitempty"`

	// Author and Language are optional extractor metadata.
	Author   string `json:"author,omitempty"`
	Language string `json:"language,omitempty"`

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the document was last modified.
	UpdatedAt time.Time `json:"updated_at"`

	// DeletedAt is set while the document is soft-deleted.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Fingerprint returns the document's fingerprints.
func (d *Document) Fingerprint() DocumentFingerprint {
	return DocumentFingerprint{FileHash: d.ContentHash, TextHash: d.TextHash}
}

// IsActive reports whether the document participates in duplicate checks.
func (d *Document) IsActive() bool {
	return d.Status == StatusActive
}

// DocumentFingerprint identifies a document by content.
// Values are derived once at ingestion and never mutated.
type DocumentFingerprint struct {
	// FileHash is the hex digest of the exact bytes.
	FileHash string `json:"file_hash"`

	// TextHash is the hex digest of the normalised text.
	TextHash string `json:"text_hash"`
}

// ExtractedText is the output of a text extractor.
type ExtractedText struct {
	Content   string
	PageCount int
	Title     string
	Author    string
	Language  string
}
