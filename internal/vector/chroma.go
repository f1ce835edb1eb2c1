// Package vector stores labeled chunks in a Chroma collection, embedding
// them client-side through a configured embedding provider.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"coeus/internal/models"
	"coeus/internal/providers"
)

// Store talks to Chroma's REST API. One collection per user.
type Store struct {
	baseURL string
	embed   providers.EmbeddingProvider
	dim     int
	client  *http.Client
	log     *slog.Logger
}

func NewStore(baseURL string, embed providers.EmbeddingProvider, dim int, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		embed:   embed,
		dim:     dim,
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

// SanitizeCollectionName maps an arbitrary user name onto Chroma's
// collection naming rules: alphanumerics kept, everything else replaced
// with underscores, fixed prefix, at most 63 characters.
func SanitizeCollectionName(userName string) string {
	var b strings.Builder
	for _, r := range userName {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	name := "user_collection_" + b.String()
	runes := []rune(name)
	if len(runes) > 63 {
		runes = runes[:63]
	}
	return string(runes)
}

// StoreLabeled embeds the chunk contents and upserts them into the user's
// collection under deterministic ids, so re-running a job overwrites rather
// than duplicates. Returns the number of vectors written.
func (s *Store) StoreLabeled(ctx context.Context, userName string, labeled []models.LabeledChunk) (int, error) {
	if len(labeled) == 0 {
		s.log.Info("no chunks to embed", "user", userName)
		return 0, nil
	}

	docs := make([]string, 0, len(labeled))
	for _, lc := range labeled {
		docs = append(docs, lc.Content)
	}
	vectors, info, err := s.embed.Embed(ctx, providers.EmbedRequest{
		Operation: "chunk_embedding",
		Inputs:    docs,
		Dimension: s.dim,
	})
	if err != nil {
		return 0, fmt.Errorf("embed %d chunks: %w", len(labeled), err)
	}
	if len(vectors) != len(labeled) {
		return 0, fmt.Errorf("embedding provider %s returned %d vectors for %d chunks", info.Name, len(vectors), len(labeled))
	}

	collID, err := s.getOrCreateCollection(ctx, SanitizeCollectionName(userName))
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(labeled))
	metadatas := make([]map[string]string, 0, len(labeled))
	for i, lc := range labeled {
		ids = append(ids, models.ChunkDocID(lc.JobID, i))
		metadatas = append(metadatas, map[string]string{
			"user_id":      lc.UserID,
			"job_id":       lc.JobID,
			"summary":      lc.Summary,
			"keywords":     lc.Metadata.JoinedKeywords(),
			"search_terms": lc.Metadata.JoinedSearchTerms(),
		})
	}
	if err := s.upsert(ctx, collID, ids, vectors, metadatas, docs); err != nil {
		return 0, err
	}
	s.log.Info("embedded chunks", "user", userName, "count", len(ids), "provider", info.Name, "model", info.Model)
	return len(ids), nil
}

func (s *Store) getOrCreateCollection(ctx context.Context, name string) (string, error) {
	payload, _ := json.Marshal(map[string]any{
		"name":          name,
		"metadata":      map[string]string{"hnsw:space": "cosine"},
		"get_or_create": true,
	})
	body, err := s.post(ctx, "/api/v1/collections", payload)
	if err != nil {
		return "", fmt.Errorf("get or create collection %s: %w", name, err)
	}
	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode collection response: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("chroma returned no collection id for %s", name)
	}
	return parsed.ID, nil
}

func (s *Store) upsert(ctx context.Context, collID string, ids []string, embeddings [][]float32, metadatas []map[string]string, documents []string) error {
	payload, _ := json.Marshal(map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"metadatas":  metadatas,
		"documents":  documents,
	})
	if _, err := s.post(ctx, "/api/v1/collections/"+collID+"/upsert", payload); err != nil {
		return fmt.Errorf("upsert %d vectors: %w", len(ids), err)
	}
	return nil
}

func (s *Store) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chroma request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("chroma error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
