// File: cmd/components.go
// Description: Dependency injection for the command layer. Builds the
// simulator, tool gateway, retriever, reasoning client, checkpoint store and
// agent from the resolved configuration, and tears them down in order.

package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/q0rren/attendant/internal/agent"
	"github.com/q0rren/attendant/internal/checkpoint"
	"github.com/q0rren/attendant/internal/config"
	"github.com/q0rren/attendant/internal/llmclient"
	"github.com/q0rren/attendant/internal/observability"
	"github.com/q0rren/attendant/internal/retrieval"
	"github.com/q0rren/attendant/internal/simulator"
	"github.com/q0rren/attendant/internal/tools"
)

// components holds initialized services.
type components struct {
	Simulator   *simulator.Simulator
	Checkpoints checkpoint.Store
	LLM         interface{ Close() error }
	Agent       *agent.Agent
}

// Shutdown gracefully closes all components.
func (c *components) Shutdown() {
	logger := observability.GetLogger()
	if c.Simulator != nil {
		c.Simulator.Stop()
	}
	if c.LLM != nil {
		if err := c.LLM.Close(); err != nil {
			logger.Warn("Error closing reasoning client", zap.Error(err))
		}
	}
	if c.Checkpoints != nil {
		if err := c.Checkpoints.Close(); err != nil {
			logger.Warn("Error closing checkpoint store", zap.Error(err))
		}
	}
}

// initializeComponents handles dependency injection. The simulator is started
// before the agent so tool calls see a live, evolving order book.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	c := &components{}

	sim, err := simulator.New(cfg.Simulator, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize order simulator: %w", err)
	}
	c.Simulator = sim
	sim.Start()

	gateway := tools.New(cfg.Tools, sim, logger)

	retriever, err := retrieval.New(cfg.Retrieval, logger)
	if err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("failed to initialize policy retriever: %w", err)
	}

	llm, err := llmclient.NewClient(cfg.LLM, logger)
	if err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("failed to initialize reasoning client: %w", err)
	}
	c.LLM = llm

	store, err := checkpoint.NewStore(cfg.Memory, logger)
	if err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("failed to initialize checkpoint store: %w", err)
	}
	c.Checkpoints = store

	ag, err := agent.New(cfg.Agent, logger, llm, gateway, retriever, store)
	if err != nil {
		c.Shutdown()
		return nil, err
	}
	c.Agent = ag

	return c, nil
}
