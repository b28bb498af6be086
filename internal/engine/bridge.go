package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dev72112/xlamaexchange/internal/allowance"
	"github.com/Dev72112/xlamaexchange/internal/amount"
	"github.com/Dev72112/xlamaexchange/internal/chainstatus"
	"github.com/Dev72112/xlamaexchange/internal/metrics"
	"github.com/Dev72112/xlamaexchange/internal/model"
	"github.com/Dev72112/xlamaexchange/internal/poller"
	"github.com/Dev72112/xlamaexchange/internal/quote"
	"github.com/Dev72112/xlamaexchange/internal/wallet"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

// BridgeRequest describes one cross-chain transfer. Immutable once handed
// to the executor.
type BridgeRequest struct {
	RequestID    string
	FromChainID  int64
	ToChainID    int64
	FromToken    model.Token
	ToToken      model.Token
	Amount       string
	SlippagePct  float64
	Recipient    string
	ApprovalType model.ApprovalType
	CustomAmount string
}

// ConfirmApprovalFunc lets the caller surface "approval needed" before the
// wallet is prompted. Returning false declines the execution. It is only
// consulted when the route reports that explicit confirmation is expected.
type ConfirmApprovalFunc func(ctx context.Context, info model.ApprovalInfo) bool

// BridgeDeps collects the collaborators a BridgeExecutor suspends on.
type BridgeDeps struct {
	Allowance *allowance.Manager
	Provider  quote.Provider
	Signer    wallet.Signer
	Chain     chainstatus.Source
	Funds     FundsChecker
	Inflight  *Inflight
	Journal   *Journal
	Logger    *slog.Logger

	ConfirmApproval ConfirmApprovalFunc

	// SourcePoll bounds the source-chain confirmation wait; BridgePoll
	// bounds the provider settlement wait. The route's estimated time is
	// advisory display data and never feeds either budget.
	SourcePoll poller.Options
	BridgePoll poller.Options

	MaxQuoteAge time.Duration
}

// BridgeExecutor drives one cross-chain transfer through
// checking-approval → (awaiting-approval → approving) → pending-source →
// bridging → completed.
type BridgeExecutor struct {
	deps BridgeDeps
	now  func() time.Time
}

func NewBridgeExecutor(deps BridgeDeps) *BridgeExecutor {
	if deps.Inflight == nil {
		deps.Inflight = NewInflight()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxQuoteAge <= 0 {
		deps.MaxQuoteAge = quote.MaxQuoteAge
	}
	return &BridgeExecutor{deps: deps, now: time.Now}
}

// Execute runs the transfer to a terminal status. A non-nil error is
// returned only when the execution was rejected before starting. Updates
// may be nil; when set it receives every status change and is closed on
// return.
func (e *BridgeExecutor) Execute(ctx context.Context, req BridgeRequest, updates chan<- model.BridgeTransaction) (model.BridgeTransaction, error) {
	key := executionKey(req.FromChainID, req.RequestID)
	if err := e.deps.Inflight.acquire(key); err != nil {
		return model.BridgeTransaction{}, err
	}
	defer e.deps.Inflight.release(key)
	if updates != nil {
		defer close(updates)
	}

	tx := model.BridgeTransaction{
		Status:      model.BridgeStatusCheckingApproval,
		FromChainID: req.FromChainID,
		ToChainID:   req.ToChainID,
		FromToken:   req.FromToken,
		ToToken:     req.ToToken,
		FromAmount:  req.Amount,
		StartTime:   e.now(),
	}
	metrics.ExecutorTransitions.WithLabelValues("bridge", string(tx.Status)).Inc()
	emitBridge(updates, tx)

	final := e.run(ctx, req, &tx, updates)
	e.journal(req, final)
	return final, nil
}

func (e *BridgeExecutor) run(ctx context.Context, req BridgeRequest, tx *model.BridgeTransaction, updates chan<- model.BridgeTransaction) model.BridgeTransaction {
	log := e.deps.Logger.With("request_id", req.RequestID,
		"from_chain", req.FromChainID, "to_chain", req.ToChainID)

	baseUnits, err := amount.ToSmallestUnit(req.Amount, req.FromToken.Decimals)
	if err != nil {
		return e.fail(tx, updates, err)
	}

	if failed := e.preflight(ctx, req, baseUnits); failed != nil {
		return e.fail(tx, updates, failed)
	}

	routeReq := quote.Request{
		FromChainID:     req.FromChainID,
		ToChainID:       req.ToChainID,
		FromToken:       req.FromToken,
		ToToken:         req.ToToken,
		AmountBaseUnits: baseUnits,
		SlippagePct:     req.SlippagePct,
		Sender:          e.deps.Signer.Address(),
		Recipient:       req.Recipient,
	}
	route, err := e.deps.Provider.GetRoute(ctx, routeReq)
	if err != nil {
		return e.fail(tx, updates, err)
	}
	tx.BridgeName = route.Provider
	tx.EstimatedTimeSeconds = route.EstimatedTimeSeconds
	log.Info("bridge route fetched", "provider", route.Provider, "eta_seconds", route.EstimatedTimeSeconds)

	needsApproval := false
	if route.ApprovalSpender != "" {
		needsApproval, err = e.deps.Allowance.NeedsApproval(ctx, req.FromChainID, req.FromToken,
			e.deps.Signer.Address(), route.ApprovalSpender, baseUnits)
		if err != nil {
			return e.fail(tx, updates, err)
		}
	}

	if needsApproval {
		tx.ApprovalInfo = &model.ApprovalInfo{
			Token:   req.FromToken,
			Spender: route.ApprovalSpender,
			Amount:  req.Amount,
		}
		// awaiting-approval is entered only when the provider asks for an
		// explicit confirmation before the wallet prompt.
		if route.NeedsApprovalConfirmation && e.deps.ConfirmApproval != nil {
			e.step(tx, model.BridgeStatusAwaitingApproval, updates)
			if !e.deps.ConfirmApproval(ctx, *tx.ApprovalInfo) {
				return e.fail(tx, updates, wallet.ErrUserRejected())
			}
		}
		e.step(tx, model.BridgeStatusApproving, updates)
		if err := e.approve(ctx, req, route.ApprovalSpender); err != nil {
			return e.fail(tx, updates, err)
		}
		tx.ApprovalInfo = nil
		log.Info("bridge approval confirmed", "spender", route.ApprovalSpender)
	}

	e.step(tx, model.BridgeStatusPendingSource, updates)
	if route.Stale(e.now(), e.deps.MaxQuoteAge) {
		log.Info("bridge route stale, re-quoting")
		route, err = e.deps.Provider.GetRoute(ctx, routeReq)
		if err != nil {
			return e.fail(tx, updates, err)
		}
	}
	sourceHash, err := e.submit(ctx, route.Tx)
	if err != nil {
		return e.fail(tx, updates, err)
	}
	tx.SourceTxHash = sourceHash
	log.Info("source transaction submitted", "tx_hash", sourceHash)

	if err := e.confirmSource(ctx, req.FromChainID, sourceHash); err != nil {
		return e.fail(tx, updates, err)
	}

	e.step(tx, model.BridgeStatusBridging, updates)
	status, err := e.awaitSettlement(ctx, route.RouteID)
	if err != nil {
		return e.fail(tx, updates, err)
	}
	tx.DestTxHash = status.DestTxHash
	if status.ToAmount != "" {
		tx.ToAmount = status.ToAmount
	}

	e.step(tx, model.BridgeStatusCompleted, updates)
	log.Info("bridge completed", "dest_tx_hash", tx.DestTxHash, "to_amount", tx.ToAmount)
	return *tx
}

func (e *BridgeExecutor) preflight(ctx context.Context, req BridgeRequest, baseUnits string) error {
	if e.deps.Funds == nil {
		return nil
	}
	balance, err := e.deps.Funds.Balance(ctx, req.FromChainID, req.FromToken.Address, e.deps.Signer.Address())
	if err != nil {
		e.deps.Logger.Warn("balance pre-flight failed", "error", err)
		return nil
	}
	required, err := amount.ParseBaseUnits(baseUnits)
	if err != nil {
		return err
	}
	if balance.Cmp(required) < 0 {
		return xerr.New(xerr.CodeInsufficientFunds,
			fmt.Sprintf("balance %s %s is below the requested %s", balance, req.FromToken.Symbol, req.Amount))
	}
	return nil
}

func (e *BridgeExecutor) approve(ctx context.Context, req BridgeRequest, spender string) error {
	payload, err := allowance.BuildApproval(req.FromChainID, spender, model.AllowanceRequest{
		Token:          req.FromToken,
		RequiredAmount: req.Amount,
		Type:           req.ApprovalType,
		CustomAmount:   req.CustomAmount,
	})
	if err != nil {
		return err
	}
	hash, err := e.submit(ctx, payload)
	if err != nil {
		return err
	}
	return e.confirmSource(ctx, req.FromChainID, hash)
}

func (e *BridgeExecutor) submit(ctx context.Context, tx model.TxPayload) (string, error) {
	hash, err := e.deps.Signer.SendTransaction(ctx, tx)
	if err != nil {
		if wallet.IsUserRejection(err) {
			return "", wallet.ErrUserRejected()
		}
		return "", err
	}
	if hash == "" {
		return "", wallet.ErrUserRejected()
	}
	return hash, nil
}

func (e *BridgeExecutor) confirmSource(ctx context.Context, chainID int64, txHash string) error {
	result := poller.Poll(ctx, func(ctx context.Context) (model.TxStatus, error) {
		return e.deps.Chain.TransactionStatus(ctx, chainID, txHash)
	}, func(s model.TxStatus) bool {
		return s.State != model.TxStatePending
	}, e.deps.SourcePoll)
	metrics.PollAttempts.WithLabelValues("chain", string(result.Outcome)).Observe(float64(result.Attempts))

	switch result.Outcome {
	case poller.OutcomeCancelled:
		return xerr.New(xerr.CodeTimeoutUnknown, "confirmation cancelled; check the explorer for final status")
	case poller.OutcomeTimeout:
		return xerr.New(xerr.CodeTimeoutUnknown, "source transaction status unknown; check the explorer")
	}
	if result.Status.State == model.TxStateReverted {
		reason := result.Status.Reason
		if reason == "" {
			reason = "source transaction failed on-chain"
		}
		return xerr.New(xerr.CodeOnChainRevert, reason)
	}
	return nil
}

// awaitSettlement polls the provider's status endpoint for the route until
// it reports completion or failure. Settlement is always asked of the
// provider, never destination-chain RPC: the destination chain and its
// timing are provider-specific.
func (e *BridgeExecutor) awaitSettlement(ctx context.Context, routeID string) (model.RouteStatus, error) {
	result := poller.Poll(ctx, func(ctx context.Context) (model.RouteStatus, error) {
		return e.deps.Provider.RouteStatus(ctx, routeID)
	}, func(s model.RouteStatus) bool {
		return s.State != model.RouteStatePending
	}, e.deps.BridgePoll)
	metrics.PollAttempts.WithLabelValues("bridge", string(result.Outcome)).Observe(float64(result.Attempts))

	switch result.Outcome {
	case poller.OutcomeCancelled:
		return model.RouteStatus{}, xerr.New(xerr.CodeTimeoutUnknown, "bridging wait cancelled; the transfer may still settle")
	case poller.OutcomeTimeout:
		return model.RouteStatus{}, xerr.New(xerr.CodeTimeoutUnknown, "bridge status unknown; check the explorer")
	}
	if result.Status.State == model.RouteStateFailed {
		reason := result.Status.Reason
		if reason == "" {
			reason = "bridge provider reported failure"
		}
		return model.RouteStatus{}, xerr.New(xerr.CodeOnChainRevert, reason)
	}
	return result.Status, nil
}

func (e *BridgeExecutor) step(tx *model.BridgeTransaction, next model.BridgeStatus, updates chan<- model.BridgeTransaction) {
	if !tx.Status.CanTransition(next) {
		e.deps.Logger.Error("illegal bridge transition", "from", tx.Status, "to", next)
		return
	}
	tx.Status = next
	metrics.ExecutorTransitions.WithLabelValues("bridge", string(next)).Inc()
	emitBridge(updates, *tx)
}

func (e *BridgeExecutor) fail(tx *model.BridgeTransaction, updates chan<- model.BridgeTransaction, err error) model.BridgeTransaction {
	tx.Status = model.BridgeStatusFailed
	tx.Error = err.Error()
	tx.ErrorCategory = xerr.CodeOf(err).Category()
	if xerr.CodeOf(err) == xerr.CodeUserDeclined {
		tx.Error = ""
	}
	metrics.ExecutorTransitions.WithLabelValues("bridge", string(model.BridgeStatusFailed)).Inc()
	metrics.ExecutorFailures.WithLabelValues("bridge", tx.ErrorCategory).Inc()
	e.deps.Logger.Warn("bridge failed", "category", tx.ErrorCategory, "error", err)
	emitBridge(updates, *tx)
	return *tx
}

func (e *BridgeExecutor) journal(req BridgeRequest, final model.BridgeTransaction) {
	if e.deps.Journal == nil {
		return
	}
	if err := e.deps.Journal.RecordBridge(req, final); err != nil {
		e.deps.Logger.Warn("journal write failed", "error", err)
	}
}

func emitBridge(updates chan<- model.BridgeTransaction, tx model.BridgeTransaction) {
	if updates == nil {
		return
	}
	updates <- tx
}
