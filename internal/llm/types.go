package llm

import (
	"strings"
	"time"
)

// ExtractedTask is a task as proposed by the model.
type ExtractedTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	// DueDate is an ISO date (YYYY-MM-DD) or empty.
	DueDate  string `json:"dueDate"`
	Priority string `json:"priority"`
	Category string `json:"category"`
}

type taskList struct {
	Tasks []ExtractedTask `json:"tasks"`
}

// Due parses DueDate. Full RFC 3339 timestamps are accepted too.
// Unparseable or empty values yield nil.
func (t ExtractedTask) Due() *time.Time {
	s := strings.TrimSpace(t.DueDate)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if v, err := time.Parse(layout, s); err == nil {
			return &v
		}
	}
	return nil
}

// NormalizePriority maps free-form priorities onto low, medium or high.
func NormalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "low":
		return "low"
	case "high", "urgent":
		return "high"
	default:
		return "medium"
	}
}
