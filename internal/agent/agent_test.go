package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/q0rren/attendant/api/schemas"
	"github.com/q0rren/attendant/internal/checkpoint"
	"github.com/q0rren/attendant/internal/config"
)

// -- Test Doubles --

// scriptedOracle replays canned responses per reasoning step, distinguished
// by the system prompt the loop sends.
type scriptedOracle struct {
	mu          sync.Mutex
	plans       []string
	thoughts    []string
	reflections []string
	answers     []string

	thinkContexts []string
}

func (o *scriptedOracle) Generate(_ context.Context, req schemas.GenerationRequest) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case strings.Contains(req.SystemPrompt, "planning assistant"):
		return pop(&o.plans, `{"identified_intents":["general_inquiry"],"planned_steps":["Respond"],"requires_clarification":false,"confidence":0.5}`), nil
	case strings.Contains(req.SystemPrompt, "THOUGHT:"):
		o.thinkContexts = append(o.thinkContexts, req.UserPrompt)
		return pop(&o.thoughts, "ACTION: FINISH"), nil
	case strings.Contains(req.SystemPrompt, "critical thinking"):
		return pop(&o.reflections, `{"contradictions":[],"assumptions":[],"confidence":0.6,"should_revise_plan":false,"reasoning":"continuing"}`), nil
	default:
		return pop(&o.answers, "Here is your answer."), nil
	}
}

func (o *scriptedOracle) Close() error { return nil }

// pop shifts the next scripted response off the queue, falling back to a
// default once the script is exhausted.
func pop(queue *[]string, fallback string) string {
	if len(*queue) == 0 {
		return fallback
	}
	head := (*queue)[0]
	*queue = (*queue)[1:]
	return head
}

// stubGateway returns a fixed outcome per tool name and records every call.
type stubGateway struct {
	mu       sync.Mutex
	outcomes map[string]schemas.ToolOutcome
	calls    []string
}

func (g *stubGateway) outcome(tool, input string) schemas.ToolOutcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, fmt.Sprintf("%s(%s)", tool, input))
	if out, ok := g.outcomes[tool]; ok {
		return out
	}
	return schemas.SuccessOutcome(map[string]any{"tool": tool, "input": input})
}

func (g *stubGateway) GetOrderStatus(_ context.Context, id string) schemas.ToolOutcome {
	return g.outcome("get_order_status", id)
}
func (g *stubGateway) GetRefundStatus(_ context.Context, id string) schemas.ToolOutcome {
	return g.outcome("get_refund_status", id)
}
func (g *stubGateway) GetInventory(_ context.Context, id string) schemas.ToolOutcome {
	return g.outcome("get_inventory", id)
}
func (g *stubGateway) GetUserOrders(_ context.Context, id string, _ int) schemas.ToolOutcome {
	return g.outcome("get_user_orders", id)
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// stubRetriever returns one fixed snippet for any query.
type stubRetriever struct{}

func (stubRetriever) Retrieve(string, int) []schemas.PolicySnippet {
	return []schemas.PolicySnippet{{
		Content:        "Refunds are processed within 5-7 business days.",
		Source:         "refund_policy.txt",
		PolicyType:     "refund policy",
		RelevanceScore: 0.9,
	}}
}

// -- Setup --

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		MaxIterations: 10,
		StepLimit:     15,
		TopKPolicies:  3,
		DefaultUserID: "user_12345",
	}
}

func setupAgent(t *testing.T, oracle *scriptedOracle, gateway *stubGateway) (*Agent, checkpoint.Store) {
	t.Helper()
	if gateway == nil {
		gateway = &stubGateway{}
	}
	store := checkpoint.NewMemoryStore()
	a, err := New(testAgentConfig(), zaptest.NewLogger(t), oracle, gateway, stubRetriever{}, store)
	require.NoError(t, err)
	return a, store
}

// -- Constructor --

func TestNew_RejectsNilDependencies(t *testing.T) {
	_, err := New(testAgentConfig(), zaptest.NewLogger(t), nil, nil, nil, nil)
	require.Error(t, err)
}

// -- Decision Tables --

func TestShouldReflect(t *testing.T) {
	a, _ := setupAgent(t, &scriptedOracle{}, nil)

	testCases := []struct {
		name        string
		iteration   int
		lastAction  string
		observation string
		want        bool
	}{
		{"successful data skips reflection", 2, "get_order_status", "Success:\n{}", false},
		{"finish always reflects", 5, ActionFinish, "Ready to generate final answer", true},
		{"error on third iteration reflects", 3, "get_order_status", "Error: upstream timeout", true},
		{"partial on sixth iteration reflects", 6, "get_order_status", "Partial data:\n{}", true},
		{"error off the multiple-of-three cadence skips", 2, "get_order_status", "Error: upstream timeout", false},
		{"near iteration cap forces reflection", 9, "get_order_status", "no tag at all", true},
		{"quiet observation mid-run skips", 4, "get_order_status", "no tag at all", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newState("q", "u", nil)
			s.IterationCount = tc.iteration
			s.LastAction = tc.lastAction
			s.LastObservation = tc.observation
			assert.Equal(t, tc.want, a.shouldReflect(s))
		})
	}
}

func TestShouldFinish(t *testing.T) {
	a, _ := setupAgent(t, &scriptedOracle{}, nil)
	logger := zaptest.NewLogger(t)

	t.Run("finish action terminates", func(t *testing.T) {
		s := newState("q", "u", nil)
		s.LastAction = ActionFinish
		assert.True(t, a.shouldFinish(s, logger))
	})

	t.Run("cleared continue flag terminates", func(t *testing.T) {
		s := newState("q", "u", nil)
		s.LastAction = "get_order_status"
		s.ShouldContinue = false
		assert.True(t, a.shouldFinish(s, logger))
	})

	t.Run("iteration cap terminates", func(t *testing.T) {
		s := newState("q", "u", nil)
		s.LastAction = "get_order_status"
		s.IterationCount = 10
		assert.True(t, a.shouldFinish(s, logger))
	})

	t.Run("high confidence with successful evidence exits early", func(t *testing.T) {
		s := newState("q", "u", nil)
		s.LastAction = "get_order_status"
		s.IterationCount = 2
		s.ConfidenceScore = 0.8
		s.recordToolResult("get_order_status", "1", "Success:\n{}")
		s.LastObservation = "Success:\n{}"
		assert.True(t, a.shouldFinish(s, logger))
	})

	t.Run("high confidence without evidence continues", func(t *testing.T) {
		s := newState("q", "u", nil)
		s.LastAction = "get_order_status"
		s.IterationCount = 2
		s.ConfidenceScore = 0.8
		s.LastObservation = "Error: nope"
		assert.False(t, a.shouldFinish(s, logger))
	})

	t.Run("repeated call cycle terminates", func(t *testing.T) {
		s := newState("q", "u", nil)
		s.LastAction = "get_order_status"
		s.IterationCount = 4
		for i := 0; i < 3; i++ {
			s.recordToolResult("get_order_status", "1", "Error: nope")
		}
		s.LastObservation = "Error: nope"
		assert.True(t, a.shouldFinish(s, logger))
	})

	t.Run("three distinct results is sufficient evidence", func(t *testing.T) {
		s := newState("q", "u", nil)
		s.LastAction = "get_inventory"
		s.IterationCount = 3
		s.recordToolResult("get_order_status", "1", "Error: nope")
		s.recordToolResult("get_refund_status", "1", "Error: nope")
		s.recordToolResult("get_inventory", "P1", "Error: nope")
		s.LastObservation = "Error: nope"
		assert.True(t, a.shouldFinish(s, logger))
	})

	t.Run("thin evidence continues", func(t *testing.T) {
		s := newState("q", "u", nil)
		s.LastAction = "get_order_status"
		s.IterationCount = 2
		s.ConfidenceScore = 0.5
		s.recordToolResult("get_order_status", "1", "Error: nope")
		s.LastObservation = "Error: nope"
		assert.False(t, a.shouldFinish(s, logger))
	})
}

// -- End-to-End Runs --

func TestRun_ClarificationShortCircuit(t *testing.T) {
	oracle := &scriptedOracle{
		plans: []string{`{"identified_intents":["extra_charges"],"missing_information":["order_id"],"planned_steps":["Ask for the order"],"requires_clarification":true,"confidence":0.9}`},
	}
	gateway := &stubGateway{}
	a, _ := setupAgent(t, oracle, gateway)

	answer, err := a.Run(context.Background(), "Why was I charged extra on my last purchase?", "", "t1")
	require.NoError(t, err)

	assert.Contains(t, answer, "order_id")
	assert.Contains(t, answer, "additional information")
	assert.Zero(t, gateway.callCount(), "clarification must bypass all tool use")
	assert.Empty(t, oracle.thinkContexts, "clarification must bypass the gather loop")
}

func TestRun_SuccessfulLookup(t *testing.T) {
	oracle := &scriptedOracle{
		plans: []string{`{"identified_intents":["order_status"],"planned_steps":["Fetch the order","Answer"],"requires_clarification":false,"confidence":0.9}`},
		thoughts: []string{
			"THOUGHT: Fetch the order first.\nACTION: get_order_status(\"98762\")",
			"THOUGHT: We have what we need.\nACTION: FINISH",
		},
		reflections: []string{`{"contradictions":[],"assumptions":[],"confidence":0.9,"should_revise_plan":false,"reasoning":"evidence is solid"}`},
		answers:     []string{"Your order #98762 is in transit."},
	}
	gateway := &stubGateway{}
	a, _ := setupAgent(t, oracle, gateway)

	answer, err := a.Run(context.Background(), "Where is order #98762?", "", "t1")
	require.NoError(t, err)

	assert.Equal(t, "Your order #98762 is in transit.", answer)
	assert.Equal(t, []string{"get_order_status(98762)"}, gateway.calls)
	require.Len(t, oracle.thinkContexts, 2)
	assert.Contains(t, oracle.thinkContexts[0], "None yet", "first think sees no tool results")
	assert.Contains(t, oracle.thinkContexts[1], "get_order_status_98762", "second think sees the cached result")
}

func TestRun_NotFoundBecomesErrorObservation(t *testing.T) {
	oracle := &scriptedOracle{
		thoughts: []string{
			"ACTION: get_order_status(\"99999\")",
			"ACTION: FINISH",
		},
		answers: []string{"I could not find order 99999."},
	}
	gateway := &stubGateway{outcomes: map[string]schemas.ToolOutcome{
		"get_order_status": schemas.NotFoundOutcome("Order 99999 not found"),
	}}
	a, _ := setupAgent(t, oracle, gateway)

	answer, err := a.Run(context.Background(), "Where is order 99999?", "", "t1")
	require.NoError(t, err)
	assert.Equal(t, "I could not find order 99999.", answer)

	require.Contains(t, oracle.thinkContexts[1], "Error: Order 99999 not found")
}

func TestRun_MalformedThoughtForcesFinish(t *testing.T) {
	oracle := &scriptedOracle{
		thoughts: []string{"I am not sure what to do here, let me ponder."},
		answers:  []string{"Sorry, could you rephrase that?"},
	}
	gateway := &stubGateway{}
	a, _ := setupAgent(t, oracle, gateway)

	answer, err := a.Run(context.Background(), "gibberish", "", "t1")
	require.NoError(t, err)

	assert.Equal(t, "Sorry, could you rephrase that?", answer)
	assert.Zero(t, gateway.callCount())
	assert.Len(t, oracle.thinkContexts, 1, "unparseable thought ends the loop on the spot")
}

func TestRun_StepCeilingBoundsSuccessLoop(t *testing.T) {
	// A gateway that always succeeds keeps reflection (and with it the
	// termination decision) from ever running; only the step ceiling stops
	// the loop.
	oracle := &scriptedOracle{}
	for i := 0; i < 20; i++ {
		oracle.thoughts = append(oracle.thoughts, fmt.Sprintf("ACTION: get_order_status(\"%d\")", i))
	}
	gateway := &stubGateway{}
	store := checkpoint.NewMemoryStore()

	cfg := testAgentConfig()
	cfg.StepLimit = 4
	a, err := New(cfg, zaptest.NewLogger(t), oracle, gateway, stubRetriever{}, store)
	require.NoError(t, err)

	answer, err := a.Run(context.Background(), "keep going", "", "t1")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	assert.Equal(t, 4, gateway.callCount())
}

func TestRun_UnknownToolIsObservedNotFatal(t *testing.T) {
	oracle := &scriptedOracle{
		thoughts: []string{
			"ACTION: summon_manager(\"now\")",
			"ACTION: FINISH",
		},
	}
	a, _ := setupAgent(t, oracle, &stubGateway{})

	_, err := a.Run(context.Background(), "escalate", "", "t1")
	require.NoError(t, err)
	assert.Contains(t, oracle.thinkContexts[1], "Unknown tool: summon_manager")
}

func TestRun_MemoryContinuityAcrossRuns(t *testing.T) {
	ctx := context.Background()
	oracle := &scriptedOracle{}
	a, store := setupAgent(t, oracle, nil)

	_, err := a.Run(ctx, "I ordered a laptop skin and it's dispatched", "", "thread_a")
	require.NoError(t, err)

	data, err := store.Load(ctx, "thread_a")
	require.NoError(t, err)
	first, err := unmarshalState(data)
	require.NoError(t, err)
	firstLen := len(first.Messages)
	require.Greater(t, firstLen, 0)

	_, err = a.Run(ctx, "What all have I ordered?", "", "thread_a")
	require.NoError(t, err)

	data, err = store.Load(ctx, "thread_a")
	require.NoError(t, err)
	second, err := unmarshalState(data)
	require.NoError(t, err)

	assert.Greater(t, len(second.Messages), firstLen, "second run must accumulate onto the first run's history")
	assert.Equal(t, first.Messages, second.Messages[:firstLen], "prior history survives verbatim")

	// A different thread never sees thread_a's history.
	_, err = a.Run(ctx, "Is product P123 in stock?", "", "thread_b")
	require.NoError(t, err)

	data, err = store.Load(ctx, "thread_b")
	require.NoError(t, err)
	other, err := unmarshalState(data)
	require.NoError(t, err)
	for _, m := range other.Messages {
		assert.NotContains(t, m.Content, "laptop skin")
	}
}

func TestRun_RetrievePolicyAction(t *testing.T) {
	oracle := &scriptedOracle{
		thoughts: []string{
			"ACTION: retrieve_policy(\"refund window\")",
			"ACTION: FINISH",
		},
	}
	a, _ := setupAgent(t, oracle, &stubGateway{})

	_, err := a.Run(context.Background(), "what is the refund window?", "", "t1")
	require.NoError(t, err)
	assert.Contains(t, oracle.thinkContexts[1], "Retrieved policies")
	assert.Contains(t, oracle.thinkContexts[1], "5-7 business days")
}

func TestRun_PlanParseFailureFallsBack(t *testing.T) {
	oracle := &scriptedOracle{
		plans:    []string{"this is not json at all"},
		thoughts: []string{"ACTION: FINISH"},
		answers:  []string{"fallback-driven answer"},
	}
	a, _ := setupAgent(t, oracle, &stubGateway{})

	answer, err := a.Run(context.Background(), "anything", "", "t1")
	require.NoError(t, err)
	assert.Equal(t, "fallback-driven answer", answer)
	// The generic fallback plan still reaches the gather loop.
	require.Len(t, oracle.thinkContexts, 1)
	assert.Contains(t, oracle.thinkContexts[0], "general_inquiry")
}

func TestRun_FencedPlanPayloadIsAccepted(t *testing.T) {
	oracle := &scriptedOracle{
		plans: []string{"```json\n{\"identified_intents\":[\"inventory_check\"],\"requires_clarification\":false,\"confidence\":0.8}\n```"},
		thoughts: []string{
			"ACTION: get_inventory(\"P123\")",
			"ACTION: FINISH",
		},
	}
	a, _ := setupAgent(t, oracle, &stubGateway{})

	_, err := a.Run(context.Background(), "Is P123 in stock?", "", "t1")
	require.NoError(t, err)
	assert.Contains(t, oracle.thinkContexts[0], "inventory_check")
}
