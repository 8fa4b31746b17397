package render

import (
	"encoding/hex"
	"time"

	"github.com/zeebo/blake3"
)

// ContentMetadata summarizes external content without parsing it.
type ContentMetadata struct {
	// Format is the format the content was analyzed as.
	Format Format `json:"format"`

	// ContentLength is the content size in bytes.
	ContentLength int `json:"contentLength"`

	// ContentHash is the BLAKE3 hash of the content.
	ContentHash string `json:"contentHash"`

	// AnalyzedAt is when the analysis ran.
	AnalyzedAt time.Time `json:"analyzedAt"`
}

// NewMetadata builds the default content metadata. Concrete renderers may
// enrich the result with format-specific fields of their own.
func NewMetadata(format Format, content []byte) *ContentMetadata {
	sum := blake3.Sum256(content)
	return &ContentMetadata{
		Format:        format,
		ContentLength: len(content),
		ContentHash:   hex.EncodeToString(sum[:]),
		AnalyzedAt:    time.Now().UTC(),
	}
}
