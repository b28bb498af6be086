package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Dev72112/xlamaexchange/internal/engine"
	"github.com/Dev72112/xlamaexchange/internal/model"
)

var swapFlags struct {
	chain        string
	fromToken    string
	toToken      string
	amount       string
	slippage     float64
	approval     string
	customAmount string
}

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Execute a same-chain token swap",
	Example: `  xlx swap --chain ethereum \
    --from 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48:USDC:6 \
    --to 0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2:WETH:18 \
    --amount 250`,
	RunE: runSwap,
}

func init() {
	f := swapCmd.Flags()
	f.StringVar(&swapFlags.chain, "chain", "ethereum", "chain slug or numeric id")
	f.StringVar(&swapFlags.fromToken, "from", "", "token to sell (ADDRESS:SYMBOL:DECIMALS)")
	f.StringVar(&swapFlags.toToken, "to", "", "token to buy (ADDRESS:SYMBOL:DECIMALS)")
	f.StringVar(&swapFlags.amount, "amount", "", "human-readable amount to sell")
	f.Float64Var(&swapFlags.slippage, "slippage", 0, "max slippage percent (default from config)")
	f.StringVar(&swapFlags.approval, "approval", "", "approval sizing: exact, unlimited or custom")
	f.StringVar(&swapFlags.customAmount, "approval-amount", "", "approval amount for --approval custom")
	_ = swapCmd.MarkFlagRequired("from")
	_ = swapCmd.MarkFlagRequired("to")
	_ = swapCmd.MarkFlagRequired("amount")
}

func runSwap(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	chainID, err := resolveChainID(swapFlags.chain)
	if err != nil {
		return err
	}
	fromToken, err := parseToken(swapFlags.fromToken)
	if err != nil {
		return err
	}
	toToken, err := parseToken(swapFlags.toToken)
	if err != nil {
		return err
	}
	approvalRaw := swapFlags.approval
	if approvalRaw == "" {
		approvalRaw = settings.ApprovalType
	}
	approval, err := parseApprovalType(approvalRaw)
	if err != nil {
		return err
	}
	slippage := swapFlags.slippage
	if slippage <= 0 {
		slippage = settings.SlippagePct
	}

	env, err := buildExecutionEnv(settings)
	if err != nil {
		return err
	}
	defer env.Close()

	req := model.SwapRequest{
		RequestID:   uuid.NewString(),
		ChainID:     chainID,
		FromToken:   fromToken,
		ToToken:     toToken,
		Amount:      swapFlags.amount,
		SlippagePct: slippage,
	}

	exec := engine.NewSwapExecutor(env.swapDeps())
	updates := make(chan model.SwapState, 8)
	sp := newStepSpinner(!settings.JSONOutput)
	go func() {
		for st := range updates {
			sp.show(swapStepLabel(st.Step))
		}
	}()

	final, err := exec.Execute(cmd.Context(), req, approval, swapFlags.customAmount, updates)
	sp.stop()
	if err != nil {
		return err
	}

	if settings.JSONOutput {
		return json.NewEncoder(os.Stdout).Encode(final)
	}
	printSwapResult(chainID, req, final)
	return nil
}

func swapStepLabel(step model.SwapStep) string {
	switch step {
	case model.SwapStepCheckingAllowance:
		return "Checking allowance..."
	case model.SwapStepApproving:
		return "Waiting for approval confirmation..."
	case model.SwapStepSwapping:
		return "Submitting swap..."
	case model.SwapStepConfirming:
		return "Waiting for confirmation..."
	default:
		return string(step)
	}
}

func printSwapResult(chainID int64, req model.SwapRequest, final model.SwapState) {
	switch final.Step {
	case model.SwapStepComplete:
		color.Green("Swap complete: %s %s -> %s", req.Amount, req.FromToken.Symbol, req.ToToken.Symbol)
		fmt.Printf("  Tx: %s\n", color.CyanString(explorerLink(chainID, final.TxHash)))
	default:
		if final.ErrorCategory == "user-declined" {
			fmt.Println("Swap cancelled in wallet.")
			return
		}
		printTerminalError(final.ErrorCategory, final.Error)
		if final.TxHash != "" {
			fmt.Printf("  Last tx: %s\n", color.CyanString(explorerLink(chainID, final.TxHash)))
		}
	}
}
