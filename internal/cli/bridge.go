package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Dev72112/xlamaexchange/internal/engine"
	"github.com/Dev72112/xlamaexchange/internal/model"
)

var bridgeFlags struct {
	fromChain    string
	toChain      string
	fromToken    string
	toToken      string
	amount       string
	slippage     float64
	recipient    string
	approval     string
	customAmount string
	yes          bool
}

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Execute a cross-chain token transfer",
	Example: `  xlx bridge --from-chain ethereum --to-chain arbitrum \
    --from 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48:USDC:6 \
    --to 0xaf88d065e77c8cC2239327C5EDb3A432268e5831:USDC:6 \
    --amount 500`,
	RunE: runBridge,
}

func init() {
	f := bridgeCmd.Flags()
	f.StringVar(&bridgeFlags.fromChain, "from-chain", "", "source chain slug or id")
	f.StringVar(&bridgeFlags.toChain, "to-chain", "", "destination chain slug or id")
	f.StringVar(&bridgeFlags.fromToken, "from", "", "token to send (ADDRESS:SYMBOL:DECIMALS)")
	f.StringVar(&bridgeFlags.toToken, "to", "", "token to receive (ADDRESS:SYMBOL:DECIMALS)")
	f.StringVar(&bridgeFlags.amount, "amount", "", "human-readable amount to bridge")
	f.Float64Var(&bridgeFlags.slippage, "slippage", 0, "max slippage percent (default from config)")
	f.StringVar(&bridgeFlags.recipient, "recipient", "", "destination address (defaults to the sender)")
	f.StringVar(&bridgeFlags.approval, "approval", "", "approval sizing: exact, unlimited or custom")
	f.StringVar(&bridgeFlags.customAmount, "approval-amount", "", "approval amount for --approval custom")
	f.BoolVarP(&bridgeFlags.yes, "yes", "y", false, "skip the approval confirmation prompt")
	_ = bridgeCmd.MarkFlagRequired("from-chain")
	_ = bridgeCmd.MarkFlagRequired("to-chain")
	_ = bridgeCmd.MarkFlagRequired("from")
	_ = bridgeCmd.MarkFlagRequired("to")
	_ = bridgeCmd.MarkFlagRequired("amount")
}

func runBridge(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	fromChainID, err := resolveChainID(bridgeFlags.fromChain)
	if err != nil {
		return err
	}
	toChainID, err := resolveChainID(bridgeFlags.toChain)
	if err != nil {
		return err
	}
	fromToken, err := parseToken(bridgeFlags.fromToken)
	if err != nil {
		return err
	}
	toToken, err := parseToken(bridgeFlags.toToken)
	if err != nil {
		return err
	}
	approvalRaw := bridgeFlags.approval
	if approvalRaw == "" {
		approvalRaw = settings.ApprovalType
	}
	approval, err := parseApprovalType(approvalRaw)
	if err != nil {
		return err
	}
	slippage := bridgeFlags.slippage
	if slippage <= 0 {
		slippage = settings.SlippagePct
	}

	env, err := buildExecutionEnv(settings)
	if err != nil {
		return err
	}
	defer env.Close()

	req := engine.BridgeRequest{
		RequestID:    uuid.NewString(),
		FromChainID:  fromChainID,
		ToChainID:    toChainID,
		FromToken:    fromToken,
		ToToken:      toToken,
		Amount:       bridgeFlags.amount,
		SlippagePct:  slippage,
		Recipient:    bridgeFlags.recipient,
		ApprovalType: approval,
		CustomAmount: bridgeFlags.customAmount,
	}

	sp := newStepSpinner(!settings.JSONOutput)
	exec := engine.NewBridgeExecutor(env.bridgeDeps(func(_ context.Context, info model.ApprovalInfo) bool {
		sp.stop()
		return confirmApproval(info, bridgeFlags.yes || settings.JSONOutput)
	}))

	updates := make(chan model.BridgeTransaction, 8)
	go func() {
		for tx := range updates {
			sp.show(bridgeStatusLabel(tx.Status))
		}
	}()

	final, err := exec.Execute(cmd.Context(), req, updates)
	sp.stop()
	if err != nil {
		return err
	}

	if settings.JSONOutput {
		return json.NewEncoder(os.Stdout).Encode(final)
	}
	printBridgeResult(final)
	return nil
}

func confirmApproval(info model.ApprovalInfo, skip bool) bool {
	if skip {
		return true
	}
	fmt.Printf("\nApproval needed: allow %s to spend %s %s\n",
		color.CyanString(info.Spender), info.Amount, info.Token.Symbol)
	fmt.Print("Proceed? [y/N]: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func bridgeStatusLabel(status model.BridgeStatus) string {
	switch status {
	case model.BridgeStatusCheckingApproval:
		return "Checking approval..."
	case model.BridgeStatusAwaitingApproval:
		return "Approval needed..."
	case model.BridgeStatusApproving:
		return "Waiting for approval confirmation..."
	case model.BridgeStatusPendingSource:
		return "Submitting source transaction..."
	case model.BridgeStatusBridging:
		return "Bridging (this can take a few minutes)..."
	default:
		return string(status)
	}
}

func printBridgeResult(final model.BridgeTransaction) {
	switch final.Status {
	case model.BridgeStatusCompleted:
		color.Green("Bridge complete via %s", final.BridgeName)
		fmt.Printf("  Source tx: %s\n", color.CyanString(explorerLink(final.FromChainID, final.SourceTxHash)))
		if final.DestTxHash != "" {
			fmt.Printf("  Dest tx:   %s\n", color.CyanString(explorerLink(final.ToChainID, final.DestTxHash)))
		}
		if final.ToAmount != "" {
			fmt.Printf("  Received:  %s (base units)\n", final.ToAmount)
		}
	default:
		if final.ErrorCategory == "user-declined" {
			fmt.Println("Bridge cancelled.")
			return
		}
		printTerminalError(final.ErrorCategory, final.Error)
		if final.SourceTxHash != "" {
			fmt.Printf("  Source tx: %s\n", color.CyanString(explorerLink(final.FromChainID, final.SourceTxHash)))
		}
	}
}
