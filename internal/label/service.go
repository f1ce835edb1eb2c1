// Package label turns raw text chunks into labeled chunks by asking an LLM
// for structured metadata in fixed-size batches.
package label

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/xeipuuv/gojsonschema"

	"coeus/internal/models"
	"coeus/internal/prompts"
	"coeus/internal/providers"
	"coeus/internal/util"
)

const (
	// Placeholder summaries distinguish a short response from a batch that
	// failed outright. Downstream stores index them as ordinary text.
	missingSummary = "Error: Missing generation"
	failedSummary  = "Processing Error"

	// One initial call plus two retries per batch.
	maxAttempts = 3
)

type Stats struct {
	Chunks        int
	Batches       int
	FailedBatches int
	Provider      providers.ProviderInfo
}

// Service labels chunks in batches over a bounded worker pool. A batch that
// keeps failing degrades to placeholder metadata instead of failing the run.
type Service struct {
	llm       providers.LLMProvider
	batchSize int
	pool      *ants.Pool
	schema    *gojsonschema.Schema
	system    string
	userTmpl  string
	log       *slog.Logger
}

func NewService(llm providers.LLMProvider, batchSize, workers int, log *slog.Logger) (*Service, error) {
	if batchSize <= 0 {
		batchSize = 5
	}
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = slog.Default()
	}
	system, err := prompts.Get("labeling.json", "system_prompt")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPromptMissing, err)
	}
	userTmpl, err := prompts.Get("labeling.json", "user_prompt_template")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPromptMissing, err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(batchMetadataSchema))
	if err != nil {
		return nil, fmt.Errorf("compile labeling schema: %w", err)
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create labeling pool: %w", err)
	}
	return &Service{
		llm:       llm,
		batchSize: batchSize,
		pool:      pool,
		schema:    schema,
		system:    system,
		userTmpl:  userTmpl,
		log:       log,
	}, nil
}

func (s *Service) Close() {
	s.pool.Release()
}

// Label batches chunks, labels each batch concurrently, and links the
// flattened metadata back to the chunks by position. The returned slice is
// always exactly as long as chunks.
func (s *Service) Label(ctx context.Context, chunks []string, userID, jobID string) ([]models.LabeledChunk, Stats, error) {
	stats := Stats{Chunks: len(chunks)}
	if len(chunks) == 0 {
		return nil, stats, nil
	}

	batches := make([][]string, 0, (len(chunks)+s.batchSize-1)/s.batchSize)
	for i := 0; i < len(chunks); i += s.batchSize {
		end := i + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[i:end])
	}
	stats.Batches = len(batches)
	s.log.Info("labeling chunks", "chunks", len(chunks), "batches", len(batches))

	results := make([][]models.ChunkMetadata, len(batches))
	var (
		wg       sync.WaitGroup
		statsMu  sync.Mutex
		provInfo providers.ProviderInfo
	)
	for bi, batch := range batches {
		bi, batch := bi, batch
		wg.Add(1)
		run := func() {
			defer wg.Done()
			metas, info, failed := s.labelBatch(ctx, batch)
			results[bi] = metas
			statsMu.Lock()
			if failed {
				stats.FailedBatches++
			}
			if info.Name != "" {
				provInfo = info
			}
			statsMu.Unlock()
		}
		if err := s.pool.Submit(run); err != nil {
			run()
		}
	}
	wg.Wait()
	stats.Provider = provInfo

	flat := make([]models.ChunkMetadata, 0, len(chunks))
	for _, metas := range results {
		flat = append(flat, metas...)
	}
	if len(flat) != len(chunks) {
		return nil, stats, fmt.Errorf("%w: %d chunks, %d metadata entries", util.ErrMetadataMismatch, len(chunks), len(flat))
	}

	out := make([]models.LabeledChunk, 0, len(chunks))
	for i, content := range chunks {
		out = append(out, models.LabeledChunk{
			UserID:   userID,
			JobID:    jobID,
			Content:  content,
			Metadata: flat[i],
			Summary:  flat[i].OneLineSummary,
		})
	}
	return out, stats, nil
}

// labelBatch returns exactly len(batch) metadata entries. Short responses
// are padded, long ones truncated, and a batch whose attempts all fail comes
// back as placeholders with failed=true.
func (s *Service) labelBatch(ctx context.Context, batch []string) ([]models.ChunkMetadata, providers.ProviderInfo, bool) {
	prompt := prompts.Format(s.userTmpl, map[string]string{"Count": strconv.Itoa(len(batch))})
	req := providers.GenerateRequest{
		Operation: "chunk_labeling",
		System:    s.system,
		Prompt:    prompt,
		Context:   batch,
		JSONMode:  true,
	}

	var info providers.ProviderInfo
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		resp, pi, err := s.llm.Generate(ctx, req)
		info = pi
		if err != nil {
			lastErr = err
			s.log.Warn("labeling call failed", "attempt", attempt, "kind", providers.ClassifyError(err), "error", err)
			continue
		}
		metas, err := parseBatch(resp.Text, s.schema)
		if err != nil {
			lastErr = err
			s.log.Warn("labeling response rejected", "attempt", attempt, "error", err)
			continue
		}
		if len(metas) > len(batch) {
			metas = metas[:len(batch)]
		}
		for len(metas) < len(batch) {
			metas = append(metas, models.ChunkMetadata{
				Keywords:       []string{},
				SearchTerms:    []string{},
				OneLineSummary: missingSummary,
			})
		}
		return metas, info, false
	}

	s.log.Warn("labeling batch degraded to placeholders", "size", len(batch), "error", lastErr)
	metas := make([]models.ChunkMetadata, 0, len(batch))
	for range batch {
		metas = append(metas, models.ChunkMetadata{
			Keywords:       []string{},
			SearchTerms:    []string{},
			OneLineSummary: failedSummary,
		})
	}
	return metas, info, true
}
