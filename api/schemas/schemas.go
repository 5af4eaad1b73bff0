// File: api/schemas/schemas.go
package schemas

import "time"

// ToolStatus classifies the outcome of a single tool invocation.
type ToolStatus string

const (
	StatusSuccess  ToolStatus = "success"
	StatusPartial  ToolStatus = "partial"
	StatusNotFound ToolStatus = "not_found"
	StatusError    ToolStatus = "error"
)

// ToolOutcome is the uniform envelope returned by every tool call. Exactly one
// of the following holds per status: full Data (success), Data plus a
// non-empty MissingFields list (partial), or no Data with a non-empty Error
// (error / not_found).
type ToolOutcome struct {
	Status        ToolStatus     `json:"status"`
	Data          map[string]any `json:"data,omitempty"`
	Error         string         `json:"error,omitempty"`
	MissingFields []string       `json:"missing_fields,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// IsSuccessful reports whether the call returned complete data.
func (o ToolOutcome) IsSuccessful() bool { return o.Status == StatusSuccess }

// IsPartial reports whether the call returned incomplete data.
func (o ToolOutcome) IsPartial() bool { return o.Status == StatusPartial }

// HasError reports whether the call failed outright.
func (o ToolOutcome) HasError() bool { return o.Status == StatusError }

// SuccessOutcome builds a success envelope around complete data.
func SuccessOutcome(data map[string]any) ToolOutcome {
	return ToolOutcome{Status: StatusSuccess, Data: data, Timestamp: time.Now()}
}

// PartialOutcome builds a partial envelope; missing names the redacted fields.
func PartialOutcome(data map[string]any, missing []string) ToolOutcome {
	return ToolOutcome{Status: StatusPartial, Data: data, MissingFields: missing, Timestamp: time.Now()}
}

// NotFoundOutcome builds a not_found envelope with the given message.
func NotFoundOutcome(msg string) ToolOutcome {
	return ToolOutcome{Status: StatusNotFound, Error: msg, Timestamp: time.Now()}
}

// ErrorOutcome builds an error envelope with the given message.
func ErrorOutcome(msg string) ToolOutcome {
	return ToolOutcome{Status: StatusError, Error: msg, Timestamp: time.Now()}
}

// PolicySnippet is one ranked chunk of policy text returned by the retriever.
type PolicySnippet struct {
	Content        string  `json:"content"`
	Source         string  `json:"source"`
	PolicyType     string  `json:"policy_type"`
	RelevanceScore float64 `json:"relevance_score"`
	ChunkID        int     `json:"chunk_id"`
}
