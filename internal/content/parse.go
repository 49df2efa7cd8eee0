package content

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var jsonFence = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSON pulls the JSON object out of a completion that may wrap it in
// a code fence or surround it with prose.
func extractJSON(content string) (string, error) {
	if m := jsonFence.FindStringSubmatch(content); m != nil {
		return m[1], nil
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1], nil
	}
	return "", fmt.Errorf("no JSON object in response")
}

func decodeJSON(content string, v any) error {
	raw, err := extractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("unmarshal generator response: %w", err)
	}
	return nil
}
