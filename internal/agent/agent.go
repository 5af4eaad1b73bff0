// File: internal/agent/agent.go
// Description: The orchestration loop that drives one query to a grounded
// answer. It is injected with its collaborators via interfaces, making it
// decoupled and testable; the loop itself is synchronous per run.

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/q0rren/attendant/api/schemas"
	"github.com/q0rren/attendant/internal/checkpoint"
	"github.com/q0rren/attendant/internal/config"
	"github.com/q0rren/attendant/internal/retrieval"
)

// DefaultThreadID scopes callers that do not manage conversation threads.
const DefaultThreadID = "default"

// apologyAnswer is the only externally visible failure mode. It should be
// unreachable under the loop's transition rules.
const apologyAnswer = "I apologize, but I encountered an issue processing your request."

// Observation tag prefixes. The reflect and continue decisions match on
// these, so they are part of the loop's internal contract.
const (
	obsTagSuccess = "Success:"
	obsTagPartial = "Partial data:"
	obsTagError   = "Error:"
)

// Agent runs the plan/think/act/observe/reflect/answer loop.
type Agent struct {
	cfg         config.AgentConfig
	logger      *zap.Logger
	llm         schemas.LLMClient
	tools       schemas.ToolGateway
	retriever   schemas.Retriever
	checkpoints checkpoint.Store
}

// New wires an Agent from its collaborators. All dependencies are required.
func New(
	cfg config.AgentConfig,
	logger *zap.Logger,
	llm schemas.LLMClient,
	tools schemas.ToolGateway,
	retriever schemas.Retriever,
	checkpoints checkpoint.Store,
) (*Agent, error) {
	if logger == nil || llm == nil || tools == nil || retriever == nil || checkpoints == nil {
		return nil, fmt.Errorf("cannot initialize agent with nil dependencies")
	}
	return &Agent{
		cfg:         cfg,
		logger:      logger.Named("agent"),
		llm:         llm,
		tools:       tools,
		retriever:   retriever,
		checkpoints: checkpoints,
	}, nil
}

// Run executes one query to completion and returns the final answer text.
// Passing the same threadID across calls resumes the conversation: the new
// run sees the prior runs' message history. Run never returns an error for
// oracle-format or tool failures; those degrade inside the loop.
func (a *Agent) Run(ctx context.Context, query, userID, threadID string) (string, error) {
	if userID == "" {
		userID = a.cfg.DefaultUserID
	}
	if threadID == "" {
		threadID = DefaultThreadID
	}
	runID := uuid.NewString()
	logger := a.logger.With(zap.String("runID", runID), zap.String("threadID", threadID))
	logger.Info("Starting orchestration run", zap.String("query", query))

	prior, err := a.loadPriorMessages(ctx, threadID)
	if err != nil {
		return "", err
	}
	state := newState(query, userID, prior)

	a.plan(ctx, state, logger)

	if state.RequiresClarification && len(state.MissingInformation) > 0 {
		logger.Info("Routing directly to clarification", zap.Strings("missing", state.MissingInformation))
	} else {
		a.gatherLoop(ctx, state, logger)
	}

	a.answer(ctx, state, logger)

	if err := a.saveCheckpoint(ctx, threadID, state); err != nil {
		// Memory loss is not worth failing an otherwise complete run.
		logger.Warn("Failed to checkpoint conversation state", zap.Error(err))
	}

	if state.FinalAnswer == "" {
		logger.Error("Run completed without a final answer")
		return apologyAnswer, nil
	}
	logger.Info("Run complete",
		zap.Int("iterations", state.IterationCount),
		zap.Int("toolResults", len(state.ToolResults)),
		zap.Float64("confidence", state.ConfidenceScore))
	return state.FinalAnswer, nil
}

// ResetThread discards a conversation's accumulated memory.
func (a *Agent) ResetThread(ctx context.Context, threadID string) error {
	if threadID == "" {
		threadID = DefaultThreadID
	}
	return a.checkpoints.Delete(ctx, threadID)
}

// gatherLoop runs think/act/observe/reflect until a termination rule fires.
// The step ceiling is a structural backstop independent of the iteration cap.
func (a *Agent) gatherLoop(ctx context.Context, s *State, logger *zap.Logger) {
	for step := 0; ; step++ {
		if step >= a.cfg.StepLimit {
			logger.Warn("Step ceiling reached, forcing answer", zap.Int("steps", step))
			return
		}

		a.think(ctx, s, logger)
		a.act(s, logger)
		a.observe(ctx, s, logger)

		if a.shouldReflect(s) {
			a.reflect(ctx, s, logger)
			if a.shouldFinish(s, logger) {
				return
			}
			continue
		}
		// Without reflection the loop returns straight to think; only the
		// step ceiling bounds this edge.
	}
}

// ========== Nodes ==========

// planPayload is the structured shape expected from the planning step.
// Confidence is a pointer so an absent key can fall back to a default.
type planPayload struct {
	IdentifiedIntents     []string `json:"identified_intents"`
	MissingInformation    []string `json:"missing_information"`
	PlannedSteps          []string `json:"planned_steps"`
	RequiresClarification bool     `json:"requires_clarification"`
	Confidence            *float64 `json:"confidence"`
}

func (a *Agent) plan(ctx context.Context, s *State, logger *zap.Logger) {
	// Planning always resets the execution and reflection fields, even when
	// resuming a thread; only the message log carries over.
	s.CurrentStep = 0
	s.IterationCount = 0
	s.ToolResults = make(map[string]string)
	s.ContradictionsFound = nil
	s.Assumptions = nil
	s.ShouldContinue = true

	raw, err := a.generate(ctx, planSystemPrompt, buildPlanContext(s), true)
	var payload planPayload
	if err == nil {
		err = unmarshalOraclePayload(raw, &payload)
	}
	if err != nil {
		logger.Warn("Plan parsing failed, using fallback plan", zap.Error(err))
		s.IdentifiedIntents = []string{"general_inquiry"}
		s.MissingInformation = nil
		s.PlannedSteps = []string{"Analyze query", "Retrieve policies", "Respond"}
		s.RequiresClarification = false
		s.ConfidenceScore = 0.3
		s.appendMessage(RoleUser, fmt.Sprintf("Planning error: %v", err))
		return
	}

	s.IdentifiedIntents = payload.IdentifiedIntents
	s.MissingInformation = payload.MissingInformation
	s.PlannedSteps = payload.PlannedSteps
	s.RequiresClarification = payload.RequiresClarification
	s.ConfidenceScore = 0.5
	if payload.Confidence != nil {
		s.ConfidenceScore = *payload.Confidence
	}

	rendered, _ := json.MarshalIndent(payload, "", "  ")
	s.appendMessage(RoleUser, fmt.Sprintf("PLAN:\n%s", rendered))
	logger.Debug("Plan ready",
		zap.Strings("intents", s.IdentifiedIntents),
		zap.Bool("requiresClarification", s.RequiresClarification),
		zap.Float64("confidence", s.ConfidenceScore))
}

func (a *Agent) think(ctx context.Context, s *State, logger *zap.Logger) {
	thought, err := a.generate(ctx, thinkSystemPrompt, buildThinkContext(s, a.cfg.MaxIterations), false)
	if err != nil {
		// An empty thought parses to FINISH downstream, ending the run cleanly.
		logger.Warn("Think step failed", zap.Error(err))
		thought = ""
	}
	s.appendMessage(RoleAssistant, thought)
	s.IterationCount++
}

func (a *Agent) act(s *State, logger *zap.Logger) {
	action := parseAction(s.lastMessage())
	if action.Malformed {
		s.ShouldContinue = false
		logger.Debug("Unparseable action, forcing FINISH")
	}
	s.LastAction = action.Name
	s.LastActionInput = action.Input
	s.appendMessage(RoleAssistant, fmt.Sprintf("%s(%s)", action.Name, action.Input))
}

func (a *Agent) observe(ctx context.Context, s *State, logger *zap.Logger) {
	var observation string
	if s.LastAction == ActionFinish {
		s.ShouldContinue = false
		observation = "Ready to generate final answer"
	} else {
		observation = a.executeTool(ctx, s.LastAction, s.LastActionInput)
		s.recordToolResult(s.LastAction, s.LastActionInput, observation)
		logger.Debug("Tool executed",
			zap.String("action", s.LastAction),
			zap.String("input", s.LastActionInput))
	}
	s.LastObservation = observation
	s.appendMessage(RoleAssistant, observation)
}

// reflectionPayload is the structured shape expected from the reflection step.
type reflectionPayload struct {
	Contradictions   []string `json:"contradictions"`
	Assumptions      []string `json:"assumptions"`
	Confidence       *float64 `json:"confidence"`
	ShouldRevisePlan bool     `json:"should_revise_plan"`
	Reasoning        string   `json:"reasoning"`
	NextSteps        []string `json:"next_steps"`
}

func (a *Agent) reflect(ctx context.Context, s *State, logger *zap.Logger) {
	raw, err := a.generate(ctx, reflectSystemPrompt, buildReflectionContext(s), true)
	var payload reflectionPayload
	if err == nil {
		err = unmarshalOraclePayload(raw, &payload)
	}
	if err != nil {
		// State stays as-is apart from the error note.
		logger.Warn("Reflection parsing failed", zap.Error(err))
		s.appendMessage(RoleAssistant, fmt.Sprintf("Reflection error: %v", err))
		return
	}

	s.ContradictionsFound = payload.Contradictions
	s.Assumptions = payload.Assumptions
	if payload.Confidence != nil {
		s.ConfidenceScore = *payload.Confidence
	}
	if payload.ShouldRevisePlan && len(payload.NextSteps) > 0 {
		s.PlannedSteps = payload.NextSteps
		logger.Debug("Plan revised", zap.Strings("steps", s.PlannedSteps))
	}
	s.appendMessage(RoleAssistant, fmt.Sprintf("REFLECTION:\n%s", payload.Reasoning))

	if s.IterationCount >= a.cfg.MaxIterations {
		s.ShouldContinue = false
	} else if s.ConfidenceScore > 0.85 && len(s.ContradictionsFound) == 0 {
		s.ShouldContinue = false
	}
}

func (a *Agent) answer(ctx context.Context, s *State, logger *zap.Logger) {
	if s.RequiresClarification && len(s.MissingInformation) > 0 {
		s.FinalAnswer = buildClarification(s)
		return
	}

	snippets := a.retriever.Retrieve(s.Query, a.cfg.TopKPolicies)
	policyContext := retrieval.FormatContext(snippets)

	text, err := a.generate(ctx, answerSystemPrompt, buildAnswerContext(s, policyContext), false)
	if err != nil {
		logger.Error("Answer generation failed", zap.Error(err))
		s.FinalAnswer = apologyAnswer
		return
	}
	s.FinalAnswer = strings.TrimSpace(text)
}

// ========== Decisions ==========

// shouldReflect gates the reflection step. Reflection trades oracle cost for
// answer quality, so it is skipped by default. Rules evaluate in order.
func (a *Agent) shouldReflect(s *State) bool {
	obs := s.LastObservation
	// Fresh successful data needs no second-guessing.
	if strings.Contains(obs, obsTagSuccess) && s.LastAction != ActionFinish {
		return false
	}
	if s.LastAction == ActionFinish {
		return true
	}
	if s.IterationCount > 0 && s.IterationCount%3 == 0 {
		lower := strings.ToLower(obs)
		if strings.Contains(lower, "error") || strings.Contains(lower, "partial") {
			return true
		}
	}
	// One forced check before the cap cuts the run off.
	if s.IterationCount >= a.cfg.MaxIterations-1 {
		return true
	}
	return false
}

// shouldFinish is the post-reflection termination decision. The repeated-call
// cycle check and the evidence-sufficiency cutoff are distinct rules: the
// first catches true repetition via the ordered invocation log, the second
// caps how much evidence a run gathers at all.
func (a *Agent) shouldFinish(s *State, logger *zap.Logger) bool {
	if s.LastAction == ActionFinish {
		return true
	}
	if !s.ShouldContinue {
		return true
	}
	limit := a.cfg.MaxIterations
	if limit > 10 {
		limit = 10
	}
	if s.IterationCount >= limit {
		logger.Debug("Iteration cap reached")
		return true
	}
	if s.ConfidenceScore > 0.7 && len(s.ToolResults) > 0 && strings.Contains(s.LastObservation, obsTagSuccess) {
		logger.Debug("High confidence with successful evidence, finishing early")
		return true
	}
	if s.repeatedCallCycle() {
		logger.Debug("Repeated call cycle detected, forcing termination")
		return true
	}
	if len(s.ToolResults) >= 3 {
		logger.Debug("Sufficient evidence gathered, finishing")
		return true
	}
	return false
}

// ========== Helpers ==========

// executeTool dispatches a parsed action to the gateway or retriever and
// renders the outcome as a tagged observation string.
func (a *Agent) executeTool(ctx context.Context, name, input string) string {
	var outcome schemas.ToolOutcome
	switch name {
	case "get_order_status":
		outcome = a.tools.GetOrderStatus(ctx, input)
	case "get_refund_status":
		outcome = a.tools.GetRefundStatus(ctx, input)
	case "get_inventory":
		outcome = a.tools.GetInventory(ctx, input)
	case "get_user_orders":
		outcome = a.tools.GetUserOrders(ctx, input, 5)
	case "retrieve_policy":
		snippets := a.retriever.Retrieve(input, 2)
		return fmt.Sprintf("Retrieved policies:\n%s", retrieval.FormatContext(snippets))
	default:
		return fmt.Sprintf("Unknown tool: %s", name)
	}
	return formatObservation(outcome)
}

// formatObservation renders a ToolOutcome into one of the tagged textual
// forms the decision functions match on.
func formatObservation(outcome schemas.ToolOutcome) string {
	switch {
	case outcome.IsSuccessful():
		data, _ := json.MarshalIndent(outcome.Data, "", "  ")
		return fmt.Sprintf("%s\n%s", obsTagSuccess, data)
	case outcome.IsPartial():
		data, _ := json.MarshalIndent(outcome.Data, "", "  ")
		return fmt.Sprintf("%s\n%s\nNote: missing fields: %s",
			obsTagPartial, data, strings.Join(outcome.MissingFields, ", "))
	default:
		return fmt.Sprintf("%s %s", obsTagError, outcome.Error)
	}
}

// generate wraps the oracle call with the loop's fixed sampling options.
func (a *Agent) generate(ctx context.Context, system, user string, forceJSON bool) (string, error) {
	return a.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		Options: schemas.GenerationOptions{
			Temperature:     0.3,
			MaxTokens:       2000,
			ForceJSONFormat: forceJSON,
		},
	})
}

// loadPriorMessages restores a thread's message history, if any.
func (a *Agent) loadPriorMessages(ctx context.Context, threadID string) ([]Message, error) {
	data, err := a.checkpoints.Load(ctx, threadID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation state: %w", err)
	}
	prev, err := unmarshalState(data)
	if err != nil {
		return nil, err
	}
	return prev.Messages, nil
}

func (a *Agent) saveCheckpoint(ctx context.Context, threadID string, s *State) error {
	data, err := s.marshal()
	if err != nil {
		return err
	}
	return a.checkpoints.Save(ctx, threadID, data)
}

// unmarshalOraclePayload applies the strict-then-fallback parse for JSON
// payloads: strip an optional fenced code block, then decode.
func unmarshalOraclePayload(raw string, out any) error {
	text := extractJSONBlock(raw)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decoding oracle payload: %w", err)
	}
	return nil
}

// extractJSONBlock unwraps ```json fenced blocks the oracle sometimes emits.
func extractJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	for _, fence := range []string{"```json", "```"} {
		if _, rest, found := strings.Cut(text, fence); found {
			if body, _, closed := strings.Cut(rest, "```"); closed {
				return strings.TrimSpace(body)
			}
		}
	}
	return text
}
