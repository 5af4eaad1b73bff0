// File: internal/agent/action.go
// Description: Extracts the next action from a free-text reasoning utterance.
// The grammar is deliberately tiny: FINISH | identifier '(' argument? ')'.
// Anything unparseable collapses to FINISH so the loop can never stall on
// malformed text.

package agent

import "strings"

// ActionFinish is the sentinel action that routes the loop to the answer step.
const ActionFinish = "FINISH"

// Action is the parsed result of one think-step utterance.
type Action struct {
	Name  string
	Input string
	// Malformed is set when no well-formed action could be extracted and the
	// parser substituted FINISH. Callers use it to stop the loop.
	Malformed bool
}

// IsFinish reports whether this action terminates the gather phase.
func (a Action) IsFinish() bool { return a.Name == ActionFinish }

// parseAction scans a reasoning utterance for an "ACTION:" line and parses
// the call on it. The contract: a missing marker, an empty action name, or an
// unsplittable call all yield FINISH with Malformed set.
func parseAction(thought string) Action {
	_, rest, found := strings.Cut(thought, "ACTION:")
	if !found {
		return Action{Name: ActionFinish, Malformed: true}
	}

	line := rest
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)

	if strings.Contains(line, ActionFinish) {
		return Action{Name: ActionFinish}
	}

	open := strings.IndexByte(line, '(')
	closing := strings.IndexByte(line, ')')
	if open < 0 || closing < 0 || closing < open {
		return Action{Name: ActionFinish, Malformed: true}
	}

	name := strings.TrimSpace(line[:open])
	if name == "" {
		return Action{Name: ActionFinish, Malformed: true}
	}

	arg := strings.TrimSpace(line[open+1 : closing])
	arg = strings.Trim(arg, `"'`)

	return Action{Name: name, Input: arg}
}
