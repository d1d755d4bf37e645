package utils

import (
	"encoding/json"
	"strings"
)

// ParseJSON parses a JSON string into result, tolerating markdown code fences
// around the payload (common in LLM responses)
func ParseJSON(jsonStr string, result any) error {
	jsonStr = strings.TrimSpace(jsonStr)

	if strings.HasPrefix(jsonStr, "```json") {
		endIndex := strings.LastIndex(jsonStr, "```")
		if endIndex > 7 {
			jsonStr = strings.TrimSpace(jsonStr[7:endIndex])
		} else {
			jsonStr = strings.TrimSpace(jsonStr[7:])
		}
	} else if strings.HasPrefix(jsonStr, "```") {
		endIndex := strings.LastIndex(jsonStr, "```")
		if endIndex > 3 {
			jsonStr = strings.TrimSpace(jsonStr[3:endIndex])
		} else {
			jsonStr = strings.TrimSpace(jsonStr[3:])
		}
	}

	return json.Unmarshal([]byte(jsonStr), result)
}
