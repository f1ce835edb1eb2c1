package workflows

import "coeus/internal/models"

type IngestJobInput struct {
	JobID    string `json:"job_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	PDFPath  string `json:"pdf_path"`
	Filename string `json:"filename"`
}

// JobState is the workflow's running record of a job. It is queryable while
// the workflow runs and returned as the final result.
type JobState struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	Stage         string `json:"stage"`
	Error         string `json:"error,omitempty"`
	ChunkCount    int    `json:"chunk_count"`
	VisualCount   int    `json:"visual_count"`
	ChromaCount   int    `json:"chroma_count"`
	ElasticCount  int    `json:"elastic_count"`
	FailedBatches int    `json:"failed_batches"`
}

// StagePatch is a partial state update. Count fields are pointers so a
// legitimate zero still overwrites.
type StagePatch struct {
	Status        string
	Stage         string
	Error         string
	ChunkCount    *int
	VisualCount   *int
	ChromaCount   *int
	ElasticCount  *int
	FailedBatches *int
}

// Apply merges a patch into the state. A failed status is terminal: later
// patches may still record counts and stages but can neither change the
// status nor clear the first recorded error.
func (s *JobState) Apply(p StagePatch) {
	if p.Stage != "" {
		s.Stage = p.Stage
	}
	if p.Status != "" && s.Status != models.StatusFailed {
		s.Status = p.Status
	}
	if p.Error != "" && s.Error == "" {
		s.Error = p.Error
	}
	if p.ChunkCount != nil {
		s.ChunkCount = *p.ChunkCount
	}
	if p.VisualCount != nil {
		s.VisualCount = *p.VisualCount
	}
	if p.ChromaCount != nil {
		s.ChromaCount = *p.ChromaCount
	}
	if p.ElasticCount != nil {
		s.ElasticCount = *p.ElasticCount
	}
	if p.FailedBatches != nil {
		s.FailedBatches = *p.FailedBatches
	}
}

func intPtr(v int) *int { return &v }
