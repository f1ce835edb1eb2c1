package vector

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coeus/internal/models"
	"coeus/internal/providers"
)

func TestSanitizeCollectionName(t *testing.T) {
	cases := map[string]string{
		"alice":          "user_collection_alice",
		"alice smith":    "user_collection_alice_smith",
		"a.b-c@d":        "user_collection_a_b_c_d",
		"Ünïcode Name 7": "user_collection_Ünïcode_Name_7",
	}
	for in, want := range cases {
		if got := SanitizeCollectionName(in); got != want {
			t.Fatalf("sanitize %q: got %q want %q", in, got, want)
		}
	}
	long := SanitizeCollectionName(strings.Repeat("x", 100))
	if len([]rune(long)) != 63 {
		t.Fatalf("expected 63 rune cap, got %d", len([]rune(long)))
	}
}

func TestStoreLabeledUpsertsDeterministicIDs(t *testing.T) {
	var gotUpsert struct {
		IDs        []string            `json:"ids"`
		Embeddings [][]float32         `json:"embeddings"`
		Metadatas  []map[string]string `json:"metadatas"`
		Documents  []string            `json:"documents"`
	}
	var gotCreate map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/collections":
			_ = json.NewDecoder(r.Body).Decode(&gotCreate)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "coll-123"})
		case strings.HasSuffix(r.URL.Path, "/upsert"):
			if !strings.Contains(r.URL.Path, "coll-123") {
				t.Errorf("upsert hit wrong collection: %s", r.URL.Path)
			}
			_ = json.NewDecoder(r.Body).Decode(&gotUpsert)
			_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	store := NewStore(srv.URL, providers.NewMockProvider(8), 8, slog.New(slog.NewTextHandler(io.Discard, nil)))
	labeled := []models.LabeledChunk{
		{UserID: "u1", JobID: "j1", Content: "first", Metadata: models.ChunkMetadata{Keywords: []string{"a", "b"}, SearchTerms: []string{"q"}, OneLineSummary: "s1"}, Summary: "s1"},
		{UserID: "u1", JobID: "j1", Content: "second", Metadata: models.ChunkMetadata{OneLineSummary: "s2"}, Summary: "s2"},
	}
	n, err := store.StoreLabeled(context.Background(), "alice", labeled)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 vectors stored, got %d", n)
	}
	if gotCreate["name"] != "user_collection_alice" {
		t.Fatalf("wrong collection name: %v", gotCreate["name"])
	}
	meta, _ := gotCreate["metadata"].(map[string]any)
	if meta["hnsw:space"] != "cosine" {
		t.Fatalf("collection should use cosine space: %v", gotCreate["metadata"])
	}
	if gotUpsert.IDs[0] != "j1_chunk_0" || gotUpsert.IDs[1] != "j1_chunk_1" {
		t.Fatalf("unexpected ids: %v", gotUpsert.IDs)
	}
	if len(gotUpsert.Embeddings) != 2 || len(gotUpsert.Embeddings[0]) != 8 {
		t.Fatalf("unexpected embedding shape")
	}
	if gotUpsert.Metadatas[0]["keywords"] != "a, b" {
		t.Fatalf("keywords not flattened: %v", gotUpsert.Metadatas[0])
	}
	if gotUpsert.Documents[1] != "second" {
		t.Fatalf("documents out of order: %v", gotUpsert.Documents)
	}
}

func TestStoreLabeledEmptyInput(t *testing.T) {
	store := NewStore("http://unused:1", providers.NewMockProvider(8), 8, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n, err := store.StoreLabeled(context.Background(), "alice", nil)
	if err != nil || n != 0 {
		t.Fatalf("expected (0, nil), got (%d, %v)", n, err)
	}
}
