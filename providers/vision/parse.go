package vision

import (
	"encoding/json"
	"errors"
	"strings"

	"impact-agent/models"
)

// ExtractJSON pulls a JSON object out of a model response that may be
// wrapped in markdown code fences or surrounding prose.
func ExtractJSON(response string) string {
	const marker = "```"

	startIdx := strings.Index(response, marker)
	if startIdx == -1 {
		startIdx = strings.Index(response, "{")
		if startIdx == -1 {
			return response
		}
		endIdx := strings.LastIndex(response, "}")
		if endIdx == -1 {
			return response
		}
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	endIdx := strings.Index(response[startIdx+len(marker):], marker)
	if endIdx == -1 {
		return response
	}
	endIdx += startIdx + len(marker)

	content := response[startIdx+len(marker) : endIdx]
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > 0 && (strings.TrimSpace(lines[0]) == "json" || strings.TrimSpace(lines[0]) == "") {
		content = strings.Join(lines[1:], "\n")
	}
	return strings.TrimSpace(content)
}

// ParseAnalysis parses the model response into a VisionAnalysis.
func ParseAnalysis(response string) (*models.VisionAnalysis, error) {
	jsonContent := ExtractJSON(strings.TrimSpace(response))

	var result models.VisionAnalysis
	if err := json.Unmarshal([]byte(jsonContent), &result); err != nil {
		return nil, errors.New("failed to parse JSON response: " + err.Error())
	}

	if result.Description == "" {
		return nil, errors.New("description is required")
	}
	if result.Confidence < 0 || result.Confidence > 100 {
		return nil, errors.New("confidence must be between 0 and 100")
	}
	if result.ImpactScore < 0 || result.ImpactScore > 100 {
		return nil, errors.New("impact_score must be between 0 and 100")
	}
	return &result, nil
}
