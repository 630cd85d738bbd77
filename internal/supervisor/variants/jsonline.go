package variants

import "encoding/json"

// extractText pulls a human-readable message out of one line of
// line-delimited JSON agent output. Agent CLIs emit heterogeneous event
// shapes (tool-use, thinking, assistant-text, system); this extracts the
// first field that looks like prose and ignores the rest. Lines that are
// not valid JSON, or JSON with no displayable text, yield ok=false.
func extractText(line []byte) (message string, ok bool) {
	var generic map[string]any
	if err := json.Unmarshal(line, &generic); err != nil {
		return "", false
	}

	// {"type": "...", "message": {"content": [{"type":"text","text":"..."}]}}
	if msg, exists := generic["message"]; exists {
		if m, ok := msg.(map[string]any); ok {
			if text, ok := textFromContent(m["content"]); ok {
				return text, true
			}
		}
	}

	// {"type":"text","text":"..."} or {"type":"assistant","text":"..."}
	if text, ok := generic["text"].(string); ok && text != "" {
		return text, true
	}

	// {"type":"content_block_delta","delta":{"text":"..."}}
	if delta, ok := generic["delta"].(map[string]any); ok {
		if text, ok := delta["text"].(string); ok && text != "" {
			return text, true
		}
	}

	// {"event":"progress","summary":"..."}
	if summary, ok := generic["summary"].(string); ok && summary != "" {
		return summary, true
	}

	return "", false
}

func textFromContent(content any) (string, bool) {
	blocks, ok := content.([]any)
	if !ok {
		return "", false
	}
	for _, b := range blocks {
		block, ok := b.(map[string]any)
		if !ok {
			continue
		}
		if block["type"] == "text" {
			if text, ok := block["text"].(string); ok && text != "" {
				return text, true
			}
		}
	}
	return "", false
}
