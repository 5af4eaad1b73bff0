// File: cmd/ask.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/q0rren/attendant/internal/agent"
	"github.com/q0rren/attendant/internal/observability"
)

// newAskCmd creates and configures the `ask` command: one query, one answer.
func newAskCmd() *cobra.Command {
	askCmd := &cobra.Command{
		Use:   "ask [query...]",
		Short: "Resolve a single customer query and print the answer",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			query := strings.Join(args, " ")
			userID, _ := cmd.Flags().GetString("user")
			threadID, _ := cmd.Flags().GetString("thread")
			if threadID == "" {
				threadID = agent.DefaultThreadID
			}

			c, err := initializeComponents(appCfg, logger)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			answer, err := c.Agent.Run(ctx, query, userID, threadID)
			if err != nil {
				return fmt.Errorf("query resolution failed: %w", err)
			}

			fmt.Println(answer)
			return nil
		},
	}

	askCmd.Flags().StringP("user", "u", "", "User identifier for account-scoped queries.")
	askCmd.Flags().StringP("thread", "t", "", "Conversation thread ID. Reuse the same ID to continue a conversation.")

	return askCmd
}
