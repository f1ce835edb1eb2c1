// Package prompts loads externalized LLM prompt templates. Templates live in
// JSON files embedded at compile time, keyed by prompt name.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

var (
	cache   = make(map[string]map[string]string)
	cacheMu sync.RWMutex
)

// Get retrieves a prompt by filename (without path, e.g. "labeling.json")
// and key.
func Get(filename, key string) (string, error) {
	set, err := loadFile(filename)
	if err != nil {
		return "", err
	}
	prompt, ok := set[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// Format replaces {{.Key}} placeholders with values from data.
func Format(template string, data map[string]string) string {
	out := template
	for key, value := range data {
		out = strings.ReplaceAll(out, fmt.Sprintf("{{.%s}}", key), value)
	}
	return out
}

func loadFile(filename string) (map[string]string, error) {
	cacheMu.RLock()
	if set, ok := cache[filename]; ok {
		cacheMu.RUnlock()
		return set, nil
	}
	cacheMu.RUnlock()

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read prompt file %s: %w", filename, err)
	}
	var set map[string]string
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse prompt file %s: %w", filename, err)
	}

	cacheMu.Lock()
	cache[filename] = set
	cacheMu.Unlock()
	return set, nil
}
