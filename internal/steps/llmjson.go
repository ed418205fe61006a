package steps

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeModelJSON unmarshals a model response into out, tolerating code
// fences and leading prose. Malformed output is a step failure for the
// caller to default conservatively, never a silent success.
func decodeModelJSON(content string, out interface{}) error {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	if !strings.HasPrefix(s, "{") {
		if idx := strings.Index(s, "{"); idx >= 0 {
			s = s[idx:]
		}
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return fmt.Errorf("unparseable model output: %w", err)
	}
	return nil
}
