package label

// batchMetadataSchema constrains LLM labeling output. Every response must be
// a single object with a metadata_list array whose entries carry all three
// metadata fields.
const batchMetadataSchema = `{
  "type": "object",
  "required": ["metadata_list"],
  "properties": {
    "metadata_list": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["keywords", "search_terms", "one_line_summary"],
        "properties": {
          "keywords": {"type": "array", "items": {"type": "string"}},
          "search_terms": {"type": "array", "items": {"type": "string"}},
          "one_line_summary": {"type": "string"}
        }
      }
    }
  }
}`
