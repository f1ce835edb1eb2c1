package prompts

import (
	"strings"
	"testing"
)

func TestGetLabelingPrompts(t *testing.T) {
	system, err := Get("labeling.json", "system_prompt")
	if err != nil {
		t.Fatalf("system prompt: %v", err)
	}
	if !strings.Contains(system, "metadata_list") {
		t.Fatal("system prompt does not describe the expected output shape")
	}
	if _, err := Get("labeling.json", "user_prompt_template"); err != nil {
		t.Fatalf("user prompt: %v", err)
	}
}

func TestGetUnknownKey(t *testing.T) {
	if _, err := Get("labeling.json", "nope"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestFormat(t *testing.T) {
	got := Format("Label {{.Count}} chunks, exactly {{.Count}}.", map[string]string{"Count": "5"})
	if got != "Label 5 chunks, exactly 5." {
		t.Fatalf("unexpected format result: %q", got)
	}
}
