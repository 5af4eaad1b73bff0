// File: cmd/chat.go
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/q0rren/attendant/internal/observability"
)

// newChatCmd creates the interactive `chat` command. All turns share one
// conversation thread so the agent remembers context within the session;
// typing "new" rotates to a fresh thread.
func newChatCmd() *cobra.Command {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session with conversation memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			c, err := initializeComponents(appCfg, logger)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			threadID := "interactive_session"
			fmt.Println("Interactive mode. Type 'exit' to quit, 'new' for a fresh conversation thread.")
			fmt.Println("Conversation memory is enabled within the session.")

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("\nYou> ")
				if !scanner.Scan() {
					break
				}
				input := strings.TrimSpace(scanner.Text())

				switch strings.ToLower(input) {
				case "":
					continue
				case "exit", "quit", "q":
					fmt.Println("Goodbye.")
					return nil
				case "new":
					threadID = fmt.Sprintf("session_%s", time.Now().Format("20060102_150405"))
					fmt.Printf("Started new conversation thread: %s\n", threadID)
					continue
				}

				answer, err := c.Agent.Run(ctx, input, "", threadID)
				if err != nil {
					logger.Error("Turn failed", zap.Error(err))
					fmt.Printf("Error: %v\n", err)
					continue
				}
				fmt.Printf("\nAgent> %s\n", answer)

				if ctx.Err() != nil {
					return nil
				}
			}
			return scanner.Err()
		},
	}
	return chatCmd
}
