package providers

import (
	"context"
	"encoding/json"
	"math"
	"testing"
)

func TestMockGenerateLabelOperationEmitsMetadataList(t *testing.T) {
	p := NewMockProvider(8)
	resp, info, err := p.Generate(context.Background(), GenerateRequest{
		Operation: "chunk_labeling",
		Context:   []string{"first chunk", "second chunk", "third chunk"},
		JSONMode:  true,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if info.Name != "mock" {
		t.Fatalf("unexpected provider info: %+v", info)
	}
	var parsed struct {
		MetadataList []struct {
			Keywords       []string `json:"keywords"`
			SearchTerms    []string `json:"search_terms"`
			OneLineSummary string   `json:"one_line_summary"`
		} `json:"metadata_list"`
	}
	if err := json.Unmarshal([]byte(resp.Text), &parsed); err != nil {
		t.Fatalf("mock output is not valid JSON: %v", err)
	}
	if len(parsed.MetadataList) != 3 {
		t.Fatalf("expected 3 metadata entries, got %d", len(parsed.MetadataList))
	}
	for i, m := range parsed.MetadataList {
		if len(m.Keywords) == 0 || len(m.SearchTerms) == 0 || m.OneLineSummary == "" {
			t.Fatalf("entry %d incomplete: %+v", i, m)
		}
	}
}

func TestMockEmbedIsDeterministic(t *testing.T) {
	p := NewMockProvider(16)
	a, _, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"same text"}, Dimension: 16})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, _, _ := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"same text"}, Dimension: 16})
	if len(a) != 1 || len(a[0]) != 16 {
		t.Fatalf("unexpected vector shape: %d", len(a))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
}

func TestMockEmbedVectorsAreUnitLength(t *testing.T) {
	p := NewMockProvider(32)
	vecs, _, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"alpha", "beta", ""}})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for i, v := range vecs {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if math.Abs(math.Sqrt(sum)-1.0) > 1e-4 {
			t.Fatalf("vector %d has norm %f, want 1", i, math.Sqrt(sum))
		}
	}
}
