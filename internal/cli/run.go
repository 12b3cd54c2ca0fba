package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"intent-trader/internal/guard"
	"intent-trader/internal/models"
	"intent-trader/internal/workflow"
	"intent-trader/pkg/utils"
)

// addRunCommands adds the pipeline commands.
func addRunCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newValidateCmd(app))
}

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <prompt>",
		Short: "Run a prompt through the full pipeline",
		Long: `Run a natural-language trading instruction through parse, validate,
encrypt, monitor, risk re-check and simulated execution.

The condition check is a single yes/no gate that answers yes unless --expire
is set, in which case it answers no and produces an expired receipt with the
sealed intent still attached.`,
		Example: `  intent-trader run "buy 100 USDC of ETH if price drops below 3000"
  intent-trader run --expire "sell 50 USDC of ETH above 4000"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Handler == nil {
				output.Error("Pipeline not configured. Set a parser endpoint or OpenAI key.")
				return fmt.Errorf("pipeline not configured")
			}

			timeoutSec, _ := cmd.Flags().GetInt("timeout")
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
			defer cancel()

			expire, _ := cmd.Flags().GetBool("expire")
			checker := workflow.CheckerFunc(func(ctx context.Context, s *models.Strategy, signals *workflow.SignalSession) (bool, error) {
				return !expire, nil
			})

			prompt := strings.Join(args, " ")
			trade, result, err := app.Handler.RunMonitored(ctx, prompt, checker, app.Registry)
			if err != nil {
				output.Error("Run failed: %v", err)
				return err
			}

			if app.Store != nil {
				if _, err := app.Store.SaveReceipt(ctx, result.Receipt); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to persist receipt")
				}
				if err := app.Store.SaveTrade(ctx, &trade); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to persist trade")
				}
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"trade":   trade,
					"receipt": result.Receipt,
					"intent":  result.Intent,
				})
			}

			printReceipt(output, result.Receipt)
			if result.Intent != nil {
				output.Dim("Intent %s expires at %s", result.Intent.IntentID, utils.FormatTimestamp(result.Intent.PublicMetadata.ExpiresAt))
			}
			return nil
		},
	}

	cmd.Flags().Bool("expire", false, "treat conditions as not met")
	cmd.Flags().Int("timeout", 120, "overall run timeout in seconds")
	return cmd
}

func newValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <strategy-json>",
		Short: "Validate a raw strategy document against the hard limits",
		Example: `  intent-trader validate '{"pair":"ETH/USDC","conditions":[{"type":"price_below","value":3000}],"actions":[{"type":"swap","amount_usdc":100,"direction":"buy"}],"controls":{"max_slippage_bps":50,"approval_mode":"auto","expires_in_minutes":60}}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			enforcer := guard.NewEnforcer(app.Config.Limits)
			result := enforcer.ValidateJSON([]byte(args[0]))

			if output.IsJSON() {
				return output.JSON(result)
			}

			if result.Valid {
				output.Success("Strategy is valid")
			} else {
				output.Error("Strategy rejected")
				for _, e := range result.Errors {
					output.Printf("  - %s\n", e)
				}
			}
			for _, c := range result.Clamped {
				output.Warning("  clamp: %s", c)
			}
			return nil
		},
	}
}

func printReceipt(output *Output, r *models.ExecutionReceipt) {
	switch r.Status {
	case models.ReceiptExecuted:
		output.Success("Status: %s", r.Status)
	case models.ReceiptExpired:
		output.Warning("Status: %s", r.Status)
	default:
		output.Error("Status: %s", r.Status)
	}
	if r.Strategy != nil {
		output.Printf("  Pair:           %s\n", r.Strategy.Pair)
	}
	output.Printf("  Conditions met: %v\n", r.ConditionsMet)
	output.Printf("  Total spend:    %s\n", utils.FormatUSDC(r.TotalSpendUSDC))
	if r.ExecutionTxRef != "" {
		output.Printf("  Tx reference:   %s\n", r.ExecutionTxRef)
	}
	for _, e := range r.ValidationErrors {
		output.Printf("  error: %s\n", e)
	}
	for _, v := range r.RiskViolations {
		output.Printf("  violation: %s\n", v)
	}
}
