// File: api/schemas/interfaces.go
// Description: Boundary interfaces shared across packages. Keeping them here
// breaks import cycles between the agent, its collaborators, and the cmd layer.

package schemas

import "context"

// GenerationOptions control the text generation process of the reasoning model.
type GenerationOptions struct {
	Temperature     float64 `json:"temperature"`       // Controls randomness. Lower is more deterministic.
	ForceJSONFormat bool    `json:"force_json_format"` // If true, asks the model to emit valid JSON.
	MaxTokens       int     `json:"max_tokens"`        // Upper bound on the completion length.
}

// GenerationRequest encapsulates a complete request to the reasoning model:
// a system prompt describing the task, the user/context prompt, and options.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient is the reasoning oracle boundary. It converts a prompt into free
// text; the caller owns all parsing and must never assume well-formed output.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Close() error
}

// Retriever is the semantic-search collaborator. Implementations return up to
// topK ranked snippets, or an empty slice when nothing matches.
type Retriever interface {
	Retrieve(query string, topK int) []PolicySnippet
}

// ToolGateway exposes the order/inventory/refund query surface consumed by the
// agent. Every operation returns a uniform ToolOutcome and never an error:
// upstream failures are encoded in the envelope itself.
type ToolGateway interface {
	GetOrderStatus(ctx context.Context, orderID string) ToolOutcome
	GetRefundStatus(ctx context.Context, orderID string) ToolOutcome
	GetInventory(ctx context.Context, productID string) ToolOutcome
	GetUserOrders(ctx context.Context, userID string, limit int) ToolOutcome
}
