package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1536
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}
	if strings.Contains(strings.ToLower(req.Operation), "label") {
		return GenerateResponse{Text: mockMetadataList(req.Context)}, info, nil
	}
	return GenerateResponse{Text: "Mock response."}, info, nil
}

// mockMetadataList emits one metadata object per context chunk so labeling
// pipelines downstream see the exact shape real providers are asked for.
func mockMetadataList(chunks []string) string {
	type entry struct {
		Keywords       []string `json:"keywords"`
		SearchTerms    []string `json:"search_terms"`
		OneLineSummary string   `json:"one_line_summary"`
	}
	entries := make([]entry, 0, len(chunks))
	for i, c := range chunks {
		first := c
		if len(first) > 40 {
			first = first[:40]
		}
		entries = append(entries, entry{
			Keywords:       []string{fmt.Sprintf("mock-topic-%d", i), "deterministic"},
			SearchTerms:    []string{fmt.Sprintf("mock search %d", i)},
			OneLineSummary: "Mock summary of: " + strings.TrimSpace(first),
		})
	}
	out, _ := json.Marshal(map[string]any{"metadata_list": entries})
	return string(out)
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		v := float32(u%2000)/1000.0 - 1.0
		vec[i] = v
	}
	return normalize(vec)
}

// normalize scales v to unit length so cosine distance behaves the same as
// with real embedding providers.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}
