package label

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"coeus/internal/models"
)

// parseBatch validates raw LLM output against the batch schema and decodes
// the metadata entries it carries.
func parseBatch(raw string, schema *gojsonschema.Schema) ([]models.ChunkMetadata, error) {
	raw = stripCodeFence(strings.TrimSpace(raw))
	if raw == "" {
		return nil, fmt.Errorf("empty labeling response")
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("labeling response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("labeling response failed schema validation: %s", strings.Join(msgs, "; "))
	}
	var payload struct {
		MetadataList []models.ChunkMetadata `json:"metadata_list"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode labeling response: %w", err)
	}
	return payload.MetadataList, nil
}

func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
