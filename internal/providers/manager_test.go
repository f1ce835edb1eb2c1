package providers

import (
	"testing"

	"coeus/internal/config"
)

func managerConfig(llm, embed string) config.Config {
	return config.Config{LLMProviders: llm, EmbedProviders: embed, EmbedDim: 8}
}

func TestManagerCountsAndRefs(t *testing.T) {
	m, err := NewManager(managerConfig("mock|groq:primary", "mock"))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if m.LLMCount() != 2 {
		t.Fatalf("expected 2 llm providers, got %d", m.LLMCount())
	}
	if m.EmbedCount() != 1 {
		t.Fatalf("expected 1 embed provider, got %d", m.EmbedCount())
	}
	llmRefs := m.LLMProviderRefs()
	if len(llmRefs) != 2 || llmRefs[0].Name != "mock" || llmRefs[1].Name != "groq" {
		t.Fatalf("unexpected llm refs: %+v", llmRefs)
	}
	if llmRefs[1].KeyAlias != "primary" {
		t.Fatalf("key alias not carried through: %+v", llmRefs[1])
	}
	embedRefs := m.EmbedProviderRefs()
	if len(embedRefs) != 1 || embedRefs[0].Name != "mock" {
		t.Fatalf("unexpected embed refs: %+v", embedRefs)
	}
	if m.FirstLLMProvider() == nil || m.FirstEmbedProvider() == nil {
		t.Fatal("first providers must be set")
	}
}

func TestManagerFindLLMProviderByName(t *testing.T) {
	m, err := NewManager(managerConfig("mock|groq:primary", "mock"))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	p, ref, ok := m.FindLLMProviderByName("GROQ")
	if !ok || p == nil || ref.Name != "groq" {
		t.Fatalf("expected to find groq, got ok=%v ref=%+v", ok, ref)
	}
	if _, _, ok := m.FindLLMProviderByName("ollama"); ok {
		t.Fatal("found a provider that was never configured")
	}
	if _, _, ok := m.FindLLMProviderByName(""); ok {
		t.Fatal("empty name must not match")
	}
}

func TestManagerDefaultsToMock(t *testing.T) {
	m, err := NewManager(managerConfig("", ""))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if m.LLMCount() != 1 || m.EmbedCount() != 1 {
		t.Fatalf("expected mock fallbacks, got llm=%d embed=%d", m.LLMCount(), m.EmbedCount())
	}
	if refs := m.LLMProviderRefs(); refs[0].Name != "mock" {
		t.Fatalf("fallback ref is not mock: %+v", refs[0])
	}
}

func TestManagerRejectsUnknownProvider(t *testing.T) {
	if _, err := NewManager(managerConfig("mystery", "mock")); err == nil {
		t.Fatal("expected an error for an unsupported provider name")
	}
}
