// File: internal/agent/prompts.go
// Description: System prompts and context builders for each reasoning step.
// The oracle is asked for three shapes: JSON (plan, reflect), a
// THOUGHT:/ACTION: pair (think), and prose (answer). Parsing of all three is
// defensive; these prompts only make the happy path likely, not guaranteed.

package agent

import (
	"fmt"
	"strings"
)

const planSystemPrompt = `You are an expert planning assistant for e-commerce customer service.
Analyze the query and create a structured plan.

Respond ONLY with valid JSON:
{
  "identified_intents": ["intent1", "intent2"],
  "missing_information": ["field1", "field2"],
  "planned_steps": ["step1", "step2"],
  "requires_clarification": false,
  "confidence": 0.9
}

Available intents: order_status, refund_status, delivery_delay, inventory_check, extra_charges, return_policy, cancellation
Available tools: get_order_status, get_refund_status, get_inventory, get_user_orders`

const thinkSystemPrompt = `You are a ReAct agent. Think step-by-step about what to do next.

Based on the current state:
1. What information do we have?
2. What information is missing?
3. What's the next logical action?

Respond with your thought process and the next action in this format:
THOUGHT: [Your reasoning]
ACTION: [tool_name]([arguments])

Available actions:
- get_order_status(order_id): Get order details
- get_refund_status(order_id): Check refund status
- get_inventory(product_id): Check inventory
- get_user_orders(user_id): Get recent orders
- retrieve_policy(query): Get relevant policies
- FINISH: Generate final answer

Example:
THOUGHT: The user asked about order #98762 status. I need to fetch the order details first.
ACTION: get_order_status("98762")`

const reflectSystemPrompt = `You are a critical thinking assistant. Analyze the agent's progress.

Check for:
1. Contradictions between tool outputs
2. Weak assumptions
3. Missing critical information
4. Policy conflicts

Respond with JSON:
{
  "contradictions": ["contradiction1", "contradiction2"],
  "assumptions": ["assumption1"],
  "confidence": 0.8,
  "should_revise_plan": false,
  "reasoning": "explanation",
  "next_steps": ["step1", "step2"]
}`

const answerSystemPrompt = `You are a customer service AI assistant. Generate a concise response in 3-4 sentences maximum.

Format: [What we found] + [Why/Policy explanation] + [What to do next]

RULES:
- Be direct and brief, no lengthy sections
- Ground response in tool data and policies
- State uncertainty briefly if present
- Provide one clear action

Example: "Your order #98762 is out for delivery, delayed 3 days beyond the Dec 24 expected date. Under our delivery delay policy (Section 3), delays exceeding 48 hours qualify for 5% compensation. You can claim this through your account dashboard, or wait for delivery which tracking shows arriving within 24 hours."`

// buildPlanContext is the user-side prompt for the planning step.
func buildPlanContext(s *State) string {
	return fmt.Sprintf("Query: %q\nUser ID: %s\n\nCreate execution plan.", s.Query, s.UserID)
}

// buildThinkContext summarizes the run so far for the think step.
func buildThinkContext(s *State, maxIterations int) string {
	results := "None yet"
	if len(s.ToolResults) > 0 {
		if encoded, err := json.MarshalIndent(s.ToolResults, "", "  "); err == nil {
			results = string(encoded)
		}
	}
	return fmt.Sprintf(`Original Query: %s
User ID: %s

Current Plan:
- Intents: %s
- Steps: %s

Iteration: %d/%d

Tool Results:
%s

What should we do next?`,
		s.Query, s.UserID,
		strings.Join(s.IdentifiedIntents, ", "),
		strings.Join(s.PlannedSteps, ", "),
		s.IterationCount, maxIterations,
		results)
}

// buildReflectionContext covers the last few turns plus all tool results.
func buildReflectionContext(s *State) string {
	recent := s.Messages
	if len(recent) > 4 {
		recent = recent[len(recent)-4:]
	}
	var lines []string
	for _, m := range recent {
		lines = append(lines, m.Content)
	}

	results := "{}"
	if encoded, err := json.MarshalIndent(s.ToolResults, "", "  "); err == nil {
		results = string(encoded)
	}

	return fmt.Sprintf(`Query: %s
Intents: %v

Recent Activity:
%s

Tool Results:
%s

Analyze for contradictions and confidence.`,
		s.Query, s.IdentifiedIntents, strings.Join(lines, "\n"), results)
}

// buildAnswerContext bundles everything the final response should be
// grounded in.
func buildAnswerContext(s *State, policyContext string) string {
	results := "{}"
	if encoded, err := json.MarshalIndent(s.ToolResults, "", "  "); err == nil {
		results = string(encoded)
	}
	return fmt.Sprintf(`Original Query: %s

Identified Intents: %s

Tool Results:
%s

Relevant Policies:
%s

Contradictions Found: %v
Confidence: %.2f

Generate final response.`,
		s.Query,
		strings.Join(s.IdentifiedIntents, ", "),
		results,
		policyContext,
		s.ContradictionsFound,
		s.ConfidenceScore)
}

// buildClarification renders the fixed template listing each missing field.
// No oracle or tool call is spent on this path.
func buildClarification(s *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I'd be happy to help with your request: %q\n\n", s.Query)
	b.WriteString("To assist you better, I need some additional information:\n")
	for _, item := range s.MissingInformation {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	b.WriteString("\nCould you please provide these details?")
	return b.String()
}
