// Package dualstore fans labeled chunks out to the vector store and the
// keyword index in one operation.
package dualstore

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"coeus/internal/models"
)

// VectorStore is the embedding side of the dual write.
type VectorStore interface {
	StoreLabeled(ctx context.Context, userName string, labeled []models.LabeledChunk) (int, error)
}

// KeywordIndex is the full-text side of the dual write.
type KeywordIndex interface {
	IndexLabeled(ctx context.Context, labeled []models.LabeledChunk) (int, error)
}

type Result struct {
	VectorsStored int `json:"vectors_stored"`
	DocsIndexed   int `json:"docs_indexed"`
}

// Writer runs both writes concurrently. If either side fails the whole
// write fails; both sides use deterministic ids so a retry overwrites
// whatever the first attempt managed to land.
type Writer struct {
	vectors VectorStore
	index   KeywordIndex
	log     *slog.Logger
}

func NewWriter(vectors VectorStore, index KeywordIndex, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{vectors: vectors, index: index, log: log}
}

func (w *Writer) Write(ctx context.Context, userName string, labeled []models.LabeledChunk) (Result, error) {
	if len(labeled) == 0 {
		return Result{}, nil
	}

	var res Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := w.vectors.StoreLabeled(gctx, userName, labeled)
		if err != nil {
			return fmt.Errorf("vector store: %w", err)
		}
		res.VectorsStored = n
		return nil
	})
	g.Go(func() error {
		n, err := w.index.IndexLabeled(gctx, labeled)
		if err != nil {
			return fmt.Errorf("keyword index: %w", err)
		}
		res.DocsIndexed = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	w.log.Info("dual write complete", "user", userName, "vectors", res.VectorsStored, "docs", res.DocsIndexed)
	return res, nil
}
