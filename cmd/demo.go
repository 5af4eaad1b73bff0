// File: cmd/demo.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/q0rren/attendant/internal/observability"
)

// demoQueries exercise the main resolution paths: concrete lookups,
// clarification, multi-intent, policy-only and contradiction handling.
var demoQueries = []struct {
	description string
	query       string
}{
	{"Order delay with specific ID", "My order #98762 says 'Out for delivery' for 3 days. What's happening?"},
	{"Inventory check", "Is product P123 available in stock?"},
	{"Refund status query", "I want to check refund status for order 54321."},
	{"Missing order ID, should ask for clarification", "Why was I charged extra on my last purchase?"},
	{"Multi-intent: delay plus refund eligibility", "My delivery is late and I want a refund. Am I eligible?"},
	{"Policy-only query", "What is the return window for electronics?"},
	{"Contradiction detection", "My order is late but refund shows processed. Explain."},
}

// newDemoCmd creates the `demo` command, running the scripted query set.
func newDemoCmd() *cobra.Command {
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted set of queries exercising every resolution path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			c, err := initializeComponents(appCfg, logger)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			for i, tc := range demoQueries {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fmt.Printf("\n[%d/%d] %s\n", i+1, len(demoQueries), tc.description)
				fmt.Printf("Query: %s\n", tc.query)

				answer, err := c.Agent.Run(ctx, tc.query, "", fmt.Sprintf("demo_%d", i+1))
				if err != nil {
					logger.Error("Demo query failed", zap.Int("index", i+1), zap.Error(err))
					fmt.Printf("Error: %v\n", err)
					continue
				}
				fmt.Printf("Answer: %s\n", answer)
			}
			return nil
		},
	}
	return demoCmd
}
