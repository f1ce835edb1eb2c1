package models

import (
	"fmt"
	"strings"
	"time"
)

// Job statuses, in pipeline order. Failed is terminal and sticky.
const (
	StatusPending   = "pending"
	StatusExtracted = "extracted"
	StatusLabeled   = "labeled"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type User struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Job struct {
	JobID        string    `json:"job_id"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	Filename     string    `json:"filename"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	ChromaCount  int       `json:"chroma_count"`
	ElasticCount int       `json:"elastic_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChunkMetadata is the AI-generated annotation for one chunk. Immutable once
// produced by the labeler.
type ChunkMetadata struct {
	Keywords       []string `json:"keywords"`
	SearchTerms    []string `json:"search_terms"`
	OneLineSummary string   `json:"one_line_summary"`
}

// JoinedKeywords flattens the keyword list for stores that only accept
// scalar metadata fields.
func (m ChunkMetadata) JoinedKeywords() string {
	return strings.Join(m.Keywords, ", ")
}

func (m ChunkMetadata) JoinedSearchTerms() string {
	return strings.Join(m.SearchTerms, ", ")
}

// LabeledChunk is the unit written to both storage backends.
type LabeledChunk struct {
	UserID   string        `json:"user_id"`
	JobID    string        `json:"job_id"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Summary  string        `json:"summary"`
}

// ChunkDocID derives the storage document id for the i-th labeled chunk of a
// job. Both backends key their upserts on this, which makes re-running a job
// idempotent.
func ChunkDocID(jobID string, i int) string {
	return fmt.Sprintf("%s_chunk_%d", jobID, i)
}
