package llm

import (
	"fmt"
	"strings"
)

// ExtractJSON returns the outermost {...} block of a model response. Models
// routinely wrap their JSON in prose or markdown fences.
func ExtractJSON(content string) (string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return content[start : end+1], nil
}
