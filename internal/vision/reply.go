package vision

import (
	"encoding/json"
	"fmt"
	"strings"
)

type reply struct {
	Acts []AnalyzedAct `json:"acts"`
}

var fenceStripper = strings.NewReplacer("```json", "", "```", "")

// ParseReply decodes the model answer, tolerating markdown code fences.
// A reply without an acts key yields an empty list.
func ParseReply(text string) ([]AnalyzedAct, error) {
	cleaned := strings.TrimSpace(fenceStripper.Replace(text))
	if cleaned == "" {
		return nil, ErrEmptyReply
	}
	var r reply
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return nil, fmt.Errorf("vision: reply is not valid json: %w", err)
	}
	if r.Acts == nil {
		return []AnalyzedAct{}, nil
	}
	return r.Acts, nil
}
