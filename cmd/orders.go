// File: cmd/orders.go
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/q0rren/attendant/internal/observability"
	"github.com/q0rren/attendant/internal/simulator"
)

// newOrdersCmd groups operator actions on the order simulator.
func newOrdersCmd() *cobra.Command {
	ordersCmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and control the order lifecycle simulator",
	}
	ordersCmd.AddCommand(newOrdersListCmd())
	ordersCmd.AddCommand(newOrdersWatchCmd())
	ordersCmd.AddCommand(newOrdersResetCmd())
	return ordersCmd
}

func newOrdersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the current order book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := simulator.New(appCfg.Simulator, observability.GetLogger())
			if err != nil {
				return err
			}
			printOrders(sim.Snapshot())
			return nil
		},
	}
}

func newOrdersWatchCmd() *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the simulator and print the order book as it evolves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			interval, _ := cmd.Flags().GetDuration("interval")

			sim, err := simulator.New(appCfg.Simulator, observability.GetLogger())
			if err != nil {
				return err
			}
			sim.Start()
			defer sim.Stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			printOrders(sim.Snapshot())
			for {
				select {
				case <-ctx.Done():
					fmt.Println("\nStopping simulator...")
					return nil
				case <-ticker.C:
					fmt.Printf("\n--- %s ---\n", time.Now().Format(time.TimeOnly))
					printOrders(sim.Snapshot())
				}
			}
		},
	}
	watchCmd.Flags().DurationP("interval", "i", 10*time.Second, "How often to print the order book.")
	return watchCmd
}

func newOrdersResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard all orders and regenerate the sample set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := simulator.New(appCfg.Simulator, observability.GetLogger())
			if err != nil {
				return err
			}
			if err := sim.Reset(); err != nil {
				return err
			}
			fmt.Println("Order database reset.")
			printOrders(sim.Snapshot())
			return nil
		},
	}
}

func printOrders(orders []simulator.Order) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tPRODUCT\tPRICE\tSTATE\tSTUCK\tDELAY REASON\tLAST UPDATE")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t$%.2f\t%s\t%t\t%s\t%s\n",
			o.OrderID, o.ProductName, o.Price, o.CurrentState, o.Stuck, o.DelayReason,
			o.LastUpdate.Format(time.DateTime))
	}
	w.Flush()
}
