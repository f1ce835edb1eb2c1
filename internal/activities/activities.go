// Package activities implements the worker-side steps of the ingestion
// pipeline. Each activity is a self-contained stage so Temporal can retry
// and report on them independently.
package activities

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"coeus/internal/chunk"
	"coeus/internal/config"
	"coeus/internal/dualstore"
	"coeus/internal/label"
	"coeus/internal/pdftext"
	"coeus/internal/providers"
	"coeus/internal/search"
	"coeus/internal/storage"
	"coeus/internal/vector"
)

type Activities struct {
	cfg          config.Config
	jobRepo      *storage.JobRepo
	userRepo     *storage.UserRepo
	llmAuditRepo *storage.LLMAuditRepo
	labeler      *label.Service
	writer       *dualstore.Writer
	providers    *providers.Manager
	log          *slog.Logger
}

func New(cfg config.Config, db *storage.DB, pm *providers.Manager, log *slog.Logger) (*Activities, error) {
	if log == nil {
		log = slog.Default()
	}
	llm := pm.FirstLLMProvider()
	if pinned, ref, ok := pm.FindLLMProviderByName(cfg.LabelProvider); ok {
		llm = pinned
		log.Info("labeling provider pinned", "provider", ref.Name)
	}
	labeler, err := label.NewService(llm, cfg.LabelBatchSize, cfg.LabelWorkers, log)
	if err != nil {
		return nil, err
	}
	index, err := search.NewIndex(cfg.ElasticURL, cfg.ElasticIndex, log)
	if err != nil {
		return nil, err
	}
	store := vector.NewStore(cfg.ChromaURL, pm.FirstEmbedProvider(), cfg.EmbedDim, log)
	return &Activities{
		cfg:          cfg,
		jobRepo:      storage.NewJobRepo(db),
		userRepo:     storage.NewUserRepo(db),
		llmAuditRepo: storage.NewLLMAuditRepo(db),
		labeler:      labeler,
		writer:       dualstore.NewWriter(store, index, log),
		providers:    pm,
		log:          log,
	}, nil
}

func (a *Activities) Close() {
	a.labeler.Close()
}

// ExtractDocumentActivity reads the uploaded PDF, pulls out its plain text,
// and splits it into chunks tagged with the job identifiers.
func (a *Activities) ExtractDocumentActivity(ctx context.Context, in ExtractDocumentInput) (ExtractDocumentOutput, error) {
	_ = ctx
	raw, err := os.ReadFile(in.PDFPath)
	if err != nil {
		return ExtractDocumentOutput{}, fmt.Errorf("read pdf %s: %w", in.PDFPath, err)
	}
	text, visuals, err := pdftext.Extract(raw)
	if err != nil {
		return ExtractDocumentOutput{}, fmt.Errorf("extract %s: %w", in.Filename, err)
	}
	chunks := chunk.Chunks(text, in.Filename, visuals, in.UserID, in.JobID, a.cfg.ChunkSize, a.cfg.ChunkOverlap)
	a.log.Info("extracted document", "job_id", in.JobID, "chars", len(text), "chunks", len(chunks), "visuals", len(visuals))
	return ExtractDocumentOutput{Chunks: chunks, Visuals: visuals, TextLen: len(text)}, nil
}

// LabelChunksActivity asks the LLM for metadata per chunk and records the
// call in the audit table. Audit failures do not fail the stage.
func (a *Activities) LabelChunksActivity(ctx context.Context, in LabelChunksInput) (LabelChunksOutput, error) {
	labeled, stats, err := a.labeler.Label(ctx, chunk.Texts(in.Chunks), in.UserID, in.JobID)
	if err != nil {
		return LabelChunksOutput{}, fmt.Errorf("label job %s: %w", in.JobID, err)
	}

	status := "success"
	if stats.FailedBatches > 0 {
		status = "degraded"
	}
	if auditErr := a.llmAuditRepo.Insert(ctx, storage.LLMCallRecord{
		Operation:    "chunk_labeling",
		JobID:        in.JobID,
		UserID:       in.UserID,
		ProviderName: stats.Provider.Name,
		Model:        stats.Provider.Model,
		Batches:      stats.Batches,
		FailedCount:  stats.FailedBatches,
		Status:       status,
	}); auditErr != nil {
		a.log.Warn("llm call audit insert failed", "job_id", in.JobID, "error", auditErr)
	}
	return LabelChunksOutput{Labeled: labeled, Batches: stats.Batches, FailedBatches: stats.FailedBatches}, nil
}

// StoreChunksActivity performs the dual write. Either store failing fails
// the whole stage; the deterministic ids make a retry safe.
func (a *Activities) StoreChunksActivity(ctx context.Context, in StoreChunksInput) (StoreChunksOutput, error) {
	res, err := a.writer.Write(ctx, in.UserName, in.Labeled)
	if err != nil {
		return StoreChunksOutput{}, fmt.Errorf("store job %s: %w", in.JobID, err)
	}
	if err := a.jobRepo.UpdateJobCounts(ctx, in.JobID, res.VectorsStored, res.DocsIndexed); err != nil {
		a.log.Warn("persist job counts failed", "job_id", in.JobID, "error", err)
	}
	return StoreChunksOutput{VectorsStored: res.VectorsStored, DocsIndexed: res.DocsIndexed}, nil
}

func (a *Activities) UpdateJobStatusActivity(ctx context.Context, in UpdateJobStatusInput) error {
	return a.jobRepo.UpdateJobStatus(ctx, in.JobID, in.Status, in.FailReason)
}
