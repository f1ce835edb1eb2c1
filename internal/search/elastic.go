// Package search maintains the keyword index half of the dual store, backed
// by Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"coeus/internal/models"
)

// chunkMapping keeps identifiers exact-match and everything searchable as
// analyzed text.
const chunkMapping = `{
  "mappings": {
    "properties": {
      "user_id": {"type": "keyword"},
      "job_id": {"type": "keyword"},
      "content": {"type": "text"},
      "summary": {"type": "text"},
      "keywords": {"type": "text"},
      "search_terms": {"type": "text"},
      "created_at": {"type": "date"}
    }
  }
}`

type chunkDoc struct {
	UserID      string    `json:"user_id"`
	JobID       string    `json:"job_id"`
	Content     string    `json:"content"`
	Summary     string    `json:"summary"`
	Keywords    string    `json:"keywords"`
	SearchTerms string    `json:"search_terms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Index wraps an Elasticsearch client bound to a single index name.
type Index struct {
	es   *elasticsearch.Client
	name string
	log  *slog.Logger
}

func NewIndex(addr, name string, log *slog.Logger) (*Index, error) {
	if log == nil {
		log = slog.Default()
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Index{es: es, name: name, log: log}, nil
}

func (ix *Index) ensureIndex(ctx context.Context) error {
	res, err := ix.es.Indices.Exists([]string{ix.name}, ix.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", ix.name, err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}
	if res.StatusCode != 404 {
		return fmt.Errorf("check index %s: unexpected status %d", ix.name, res.StatusCode)
	}

	ix.log.Info("creating index", "index", ix.name)
	created, err := ix.es.Indices.Create(
		ix.name,
		ix.es.Indices.Create.WithContext(ctx),
		ix.es.Indices.Create.WithBody(strings.NewReader(chunkMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", ix.name, err)
	}
	defer created.Body.Close()
	if created.IsError() {
		// A concurrent worker may have created it between the exists check
		// and now.
		if strings.Contains(created.String(), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("create index %s: %s", ix.name, created.String())
	}
	return nil
}

// IndexLabeled bulk-indexes labeled chunks under deterministic document ids.
// Individual document failures are logged and excluded from the returned
// count; the write errors out only when nothing was indexed at all.
func (ix *Index) IndexLabeled(ctx context.Context, labeled []models.LabeledChunk) (int, error) {
	if len(labeled) == 0 {
		return 0, nil
	}
	if err := ix.ensureIndex(ctx); err != nil {
		return 0, err
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: ix.es,
		Index:  ix.name,
	})
	if err != nil {
		return 0, fmt.Errorf("create bulk indexer: %w", err)
	}

	now := time.Now().UTC()
	for i, lc := range labeled {
		doc := chunkDoc{
			UserID:      lc.UserID,
			JobID:       lc.JobID,
			Content:     lc.Content,
			Summary:     lc.Summary,
			Keywords:    lc.Metadata.JoinedKeywords(),
			SearchTerms: lc.Metadata.JoinedSearchTerms(),
			CreatedAt:   now,
		}
		body, err := json.Marshal(doc)
		if err != nil {
			_ = bi.Close(ctx)
			return 0, fmt.Errorf("encode chunk %d: %w", i, err)
		}
		item := esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: models.ChunkDocID(lc.JobID, i),
			Body:       bytes.NewReader(body),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					ix.log.Warn("index chunk failed", "id", item.DocumentID, "error", err)
					return
				}
				ix.log.Warn("index chunk rejected", "id", item.DocumentID, "type", res.Error.Type, "reason", res.Error.Reason)
			},
		}
		if err := bi.Add(ctx, item); err != nil {
			_ = bi.Close(ctx)
			return 0, fmt.Errorf("enqueue chunk %d: %w", i, err)
		}
	}
	if err := bi.Close(ctx); err != nil {
		return 0, fmt.Errorf("flush bulk indexer: %w", err)
	}

	stats := bi.Stats()
	if stats.NumFlushed == 0 && stats.NumFailed > 0 {
		return 0, fmt.Errorf("bulk indexing failed for all %d chunks", stats.NumFailed)
	}
	if stats.NumFailed > 0 {
		ix.log.Warn("bulk indexing completed with failures", "indexed", stats.NumFlushed, "failed", stats.NumFailed)
	} else {
		ix.log.Info("indexed chunks", "index", ix.name, "count", stats.NumFlushed)
	}
	return int(stats.NumFlushed), nil
}
