package model

import "time"

// Token identifies an ERC-20 token on a specific chain.
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// TxPayload is a signable transaction request handed to the wallet signer.
// Value is a base-10 wei string; Data is 0x-prefixed calldata.
type TxPayload struct {
	ChainID  int64  `json:"chain_id"`
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	GasLimit string `json:"gas_limit,omitempty"`
}

// SwapRequest describes one same-chain swap. Immutable once submitted to an
// executor.
type SwapRequest struct {
	RequestID   string  `json:"request_id"`
	ChainID     int64   `json:"chain_id"`
	FromToken   Token   `json:"from_token"`
	ToToken     Token   `json:"to_token"`
	Amount      string  `json:"amount"`
	SlippagePct float64 `json:"slippage_pct"`
}

type SwapStep string

const (
	SwapStepIdle              SwapStep = "idle"
	SwapStepCheckingAllowance SwapStep = "checking-allowance"
	SwapStepApproving         SwapStep = "approving"
	SwapStepSwapping          SwapStep = "swapping"
	SwapStepConfirming        SwapStep = "confirming"
	SwapStepComplete          SwapStep = "complete"
	SwapStepError             SwapStep = "error"
)

func (s SwapStep) Terminal() bool {
	return s == SwapStepComplete || s == SwapStepError
}

// swapStepRank orders the forward path. Error is reachable from any
// non-terminal step and is not part of the forward ordering.
var swapStepRank = map[SwapStep]int{
	SwapStepIdle:              0,
	SwapStepCheckingAllowance: 1,
	SwapStepApproving:         2,
	SwapStepSwapping:          3,
	SwapStepConfirming:        4,
	SwapStepComplete:          5,
}

// CanTransition reports whether moving from s to next respects the
// monotonic-forward-or-fail rule.
func (s SwapStep) CanTransition(next SwapStep) bool {
	if s.Terminal() {
		return false
	}
	if next == SwapStepError {
		return true
	}
	from, ok := swapStepRank[s]
	if !ok {
		return false
	}
	to, ok := swapStepRank[next]
	if !ok {
		return false
	}
	return to > from
}

// SwapState is the caller-visible snapshot of a swap execution.
type SwapState struct {
	Step          SwapStep `json:"step"`
	TxHash        string   `json:"tx_hash,omitempty"`
	Error         string   `json:"error,omitempty"`
	ErrorCategory string   `json:"error_category,omitempty"`
}

type BridgeStatus string

const (
	BridgeStatusCheckingApproval BridgeStatus = "checking-approval"
	BridgeStatusAwaitingApproval BridgeStatus = "awaiting-approval"
	BridgeStatusApproving        BridgeStatus = "approving"
	BridgeStatusPendingSource    BridgeStatus = "pending-source"
	BridgeStatusBridging         BridgeStatus = "bridging"
	BridgeStatusCompleted        BridgeStatus = "completed"
	BridgeStatusFailed           BridgeStatus = "failed"
)

func (s BridgeStatus) Terminal() bool {
	return s == BridgeStatusCompleted || s == BridgeStatusFailed
}

var bridgeStatusRank = map[BridgeStatus]int{
	BridgeStatusCheckingApproval: 0,
	BridgeStatusAwaitingApproval: 1,
	BridgeStatusApproving:        2,
	BridgeStatusPendingSource:    3,
	BridgeStatusBridging:         4,
	BridgeStatusCompleted:        5,
}

func (s BridgeStatus) CanTransition(next BridgeStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == BridgeStatusFailed {
		return true
	}
	from, ok := bridgeStatusRank[s]
	if !ok {
		return false
	}
	to, ok := bridgeStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// ApprovalInfo is present on a bridge transaction only while an approval
// step is required; the UI uses it to render "approval needed" before the
// wallet is prompted.
type ApprovalInfo struct {
	Token   Token  `json:"token"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// BridgeTransaction is the caller-visible record of one cross-chain
// transfer, owned by the executor instance that created it.
type BridgeTransaction struct {
	Status               BridgeStatus  `json:"status"`
	FromChainID          int64         `json:"from_chain_id"`
	ToChainID            int64         `json:"to_chain_id"`
	FromToken            Token         `json:"from_token"`
	ToToken              Token         `json:"to_token"`
	FromAmount           string        `json:"from_amount"`
	ToAmount             string        `json:"to_amount,omitempty"`
	SourceTxHash         string        `json:"source_tx_hash,omitempty"`
	DestTxHash           string        `json:"dest_tx_hash,omitempty"`
	BridgeName           string        `json:"bridge_name,omitempty"`
	EstimatedTimeSeconds int64         `json:"estimated_time_seconds,omitempty"`
	StartTime            time.Time     `json:"start_time"`
	ApprovalInfo         *ApprovalInfo `json:"approval_info,omitempty"`
	Error                string        `json:"error,omitempty"`
	ErrorCategory        string        `json:"error_category,omitempty"`
}

// Elapsed is display-only; it never participates in timeout decisions.
func (b BridgeTransaction) Elapsed(now time.Time) time.Duration {
	if b.StartTime.IsZero() {
		return 0
	}
	return now.Sub(b.StartTime)
}

type ApprovalType string

const (
	ApprovalExact     ApprovalType = "exact"
	ApprovalUnlimited ApprovalType = "unlimited"
	ApprovalCustom    ApprovalType = "custom"
)

// AllowanceRequest sizes the approval transaction for a swap or bridge.
// CustomAmount is consulted only when Type is ApprovalCustom.
type AllowanceRequest struct {
	Token          Token        `json:"token"`
	RequiredAmount string       `json:"required_amount"`
	Type           ApprovalType `json:"type"`
	CustomAmount   string       `json:"custom_amount,omitempty"`
}

// Route is a priced, executable path returned by the quote aggregator.
type Route struct {
	RouteID              string  `json:"route_id"`
	Provider             string  `json:"provider"`
	FromChainID          int64   `json:"from_chain_id"`
	ToChainID            int64   `json:"to_chain_id"`
	InputAmount          string  `json:"input_amount"`
	OutputAmount         string  `json:"output_amount"`
	OutputAmountMin      string  `json:"output_amount_min,omitempty"`
	FeeUSD               float64 `json:"fee_usd,omitempty"`
	EstimatedTimeSeconds int64   `json:"estimated_time_seconds,omitempty"`
	ApprovalSpender      string  `json:"approval_spender,omitempty"`
	// NeedsApprovalConfirmation is reported by the route provider when the
	// caller should surface an explicit "approval needed" confirmation
	// before any wallet prompt.
	NeedsApprovalConfirmation bool      `json:"needs_approval_confirmation,omitempty"`
	Tx                        TxPayload `json:"tx"`
	FetchedAt                 time.Time `json:"fetched_at"`
}

// Stale reports whether the route's quote has outlived maxAge and must be
// refreshed before submission.
func (r Route) Stale(now time.Time, maxAge time.Duration) bool {
	if r.FetchedAt.IsZero() {
		return true
	}
	return now.Sub(r.FetchedAt) > maxAge
}

type RouteState string

const (
	RouteStatePending   RouteState = "pending"
	RouteStateCompleted RouteState = "completed"
	RouteStateFailed    RouteState = "failed"
)

// RouteStatus is the provider-side settlement view of an in-flight route.
type RouteStatus struct {
	State      RouteState `json:"state"`
	DestTxHash string     `json:"dest_tx_hash,omitempty"`
	ToAmount   string     `json:"to_amount,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

type TxState string

const (
	TxStatePending   TxState = "pending"
	TxStateConfirmed TxState = "confirmed"
	TxStateReverted  TxState = "reverted"
)

// TxStatus is the chain-level view of a submitted transaction.
type TxStatus struct {
	State  TxState `json:"state"`
	Reason string  `json:"reason,omitempty"`
}
