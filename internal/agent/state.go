// File: internal/agent/state.go
// Description: The working memory of one orchestration run. State flows
// through every node of the loop and is checkpointed per conversation thread
// so that a later run under the same thread resumes with accumulated history.

package agent

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message roles mirror the turn log entries the loop produces.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the append-only turn log.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// State carries everything the loop reads and writes for a single query.
// Messages and RecentActionKeys only ever grow; ToolResults is keyed by
// "{action}_{input}" so re-invoking the same pair overwrites its entry.
type State struct {
	// Input.
	Query  string `json:"query"`
	UserID string `json:"user_id"`

	// Planning outputs.
	IdentifiedIntents     []string `json:"identified_intents"`
	MissingInformation    []string `json:"missing_information"`
	PlannedSteps          []string `json:"planned_steps"`
	RequiresClarification bool     `json:"requires_clarification"`

	// Execution.
	CurrentStep     int       `json:"current_step"`
	IterationCount  int       `json:"iteration_count"`
	Messages        []Message `json:"messages"`
	LastAction      string    `json:"last_action"`
	LastActionInput string    `json:"last_action_input"`

	// Tool results, keyed by "{action}_{input}".
	ToolResults map[string]string `json:"tool_results"`

	// LastObservation holds the most recent observe-step output verbatim.
	// The reflect and continue decisions read its tag prefix.
	LastObservation string `json:"last_observation"`

	// RecentActionKeys records every tool invocation key in order, including
	// repeats that the ToolResults map collapses. The repeated-call detector
	// reads this log, not the map.
	RecentActionKeys []string `json:"recent_action_keys"`

	// Reflection outputs.
	ContradictionsFound []string `json:"contradictions_found"`
	Assumptions         []string `json:"assumptions"`
	ConfidenceScore     float64  `json:"confidence_score"`

	// Output.
	FinalAnswer    string `json:"final_answer"`
	ShouldContinue bool   `json:"should_continue"`
}

// newState seeds a run. Prior messages from the same conversation thread are
// carried forward; everything else starts empty and is populated by planning.
func newState(query, userID string, prior []Message) *State {
	return &State{
		Query:          query,
		UserID:         userID,
		Messages:       append([]Message{}, prior...),
		ToolResults:    make(map[string]string),
		ShouldContinue: true,
	}
}

// appendMessage grows the turn log.
func (s *State) appendMessage(role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// lastMessage returns the most recent log entry's content, or "".
func (s *State) lastMessage() string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[len(s.Messages)-1].Content
}

// recordToolResult caches an observation under its invocation key and appends
// the key to the ordered invocation log.
func (s *State) recordToolResult(action, input, observation string) {
	key := fmt.Sprintf("%s_%s", action, input)
	s.ToolResults[key] = observation
	s.RecentActionKeys = append(s.RecentActionKeys, key)
}

// repeatedCallCycle reports whether the last three tool invocations used an
// identical action+input key.
func (s *State) repeatedCallCycle() bool {
	n := len(s.RecentActionKeys)
	if n < 3 {
		return false
	}
	last := s.RecentActionKeys[n-3:]
	return last[0] == last[1] && last[1] == last[2]
}

// marshal serializes the state for checkpointing.
func (s *State) marshal() ([]byte, error) {
	return json.Marshal(s)
}

// unmarshalState restores a checkpointed state.
func unmarshalState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding checkpointed state: %w", err)
	}
	if s.ToolResults == nil {
		s.ToolResults = make(map[string]string)
	}
	return &s, nil
}
