package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/garyjia/club-expenses/internal/application/port"
)

// SchemaError reports a model answer that does not match the ranking shape
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("ranking response schema mismatch: %s", e.Reason)
	}
	return fmt.Sprintf("ranking response schema mismatch at %s: %s", e.Path, e.Reason)
}

func (e *SchemaError) Is(target error) bool {
	return target == port.ErrInvalidRanking
}

// ParseRankings validates a model answer and returns the rankings in
// answer order. The answer is either a JSON array of rankings or an object
// whose "rankings" field is that array. Any mismatch rejects the whole answer.
func ParseRankings(content string) ([]port.Ranking, error) {
	raw := bytes.TrimSpace([]byte(stripCodeFence(content)))
	if len(raw) == 0 {
		return nil, &SchemaError{Reason: "empty response"}
	}

	var items []json.RawMessage
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &SchemaError{Reason: err.Error()}
		}
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, &SchemaError{Reason: err.Error()}
		}
		list, ok := wrapper["rankings"]
		if !ok {
			return nil, &SchemaError{Path: "rankings", Reason: "missing"}
		}
		if err := json.Unmarshal(list, &items); err != nil || items == nil {
			return nil, &SchemaError{Path: "rankings", Reason: "not an array"}
		}
	default:
		return nil, &SchemaError{Reason: "not a JSON array or object"}
	}

	rankings := make([]port.Ranking, 0, len(items))
	for i, item := range items {
		r, err := parseRanking(item)
		if err != nil {
			path := fmt.Sprintf("[%d]", i)
			if err.Path != "" {
				path += "." + err.Path
			}
			err.Path = path
			return nil, err
		}
		rankings = append(rankings, r)
	}
	return rankings, nil
}

func parseRanking(item json.RawMessage) (port.Ranking, *SchemaError) {
	var fields map[string]interface{}
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return port.Ranking{}, &SchemaError{Reason: "not an object"}
	}

	id, ok := fields["expenseId"].(string)
	if !ok {
		return port.Ranking{}, &SchemaError{Path: "expenseId", Reason: "must be a string"}
	}
	score, ok := fields["priorityScore"].(float64)
	if !ok {
		return port.Ranking{}, &SchemaError{Path: "priorityScore", Reason: "must be a number"}
	}
	reason, ok := fields["reason"].(string)
	if !ok {
		return port.Ranking{}, &SchemaError{Path: "reason", Reason: "must be a string"}
	}

	return port.Ranking{ExpenseID: id, PriorityScore: score, Reason: reason}, nil
}

// stripCodeFence removes a surrounding ```json ... ``` block if present
func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return s
}
