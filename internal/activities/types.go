package activities

import (
	"coeus/internal/chunk"
	"coeus/internal/models"
)

type ExtractDocumentInput struct {
	JobID    string `json:"job_id"`
	UserID   string `json:"user_id"`
	PDFPath  string `json:"pdf_path"`
	Filename string `json:"filename"`
}

type ExtractDocumentOutput struct {
	Chunks  []chunk.Chunk `json:"chunks"`
	Visuals []string      `json:"visuals"`
	TextLen int           `json:"text_len"`
}

type LabelChunksInput struct {
	JobID  string        `json:"job_id"`
	UserID string        `json:"user_id"`
	Chunks []chunk.Chunk `json:"chunks"`
}

type LabelChunksOutput struct {
	Labeled       []models.LabeledChunk `json:"labeled"`
	Batches       int                   `json:"batches"`
	FailedBatches int                   `json:"failed_batches"`
}

type StoreChunksInput struct {
	JobID    string                `json:"job_id"`
	UserName string                `json:"user_name"`
	Labeled  []models.LabeledChunk `json:"labeled"`
}

type StoreChunksOutput struct {
	VectorsStored int `json:"vectors_stored"`
	DocsIndexed   int `json:"docs_indexed"`
}

type UpdateJobStatusInput struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason,omitempty"`
}
