package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
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

// FundsChecker reads an owner's token balance in base units. Executors use
// it for the insufficient-funds pre-flight; a nil checker skips the check.
type FundsChecker interface {
	Balance(ctx context.Context, chainID int64, token, owner string) (*big.Int, error)
}

// SwapDeps collects the collaborators a SwapExecutor suspends on.
type SwapDeps struct {
	Allowance *allowance.Manager
	Provider  quote.Provider
	Signer    wallet.Signer
	Chain     chainstatus.Source
	Funds     FundsChecker
	Inflight  *Inflight
	Journal   *Journal
	Logger    *slog.Logger

	// Poll bounds the confirmation wait per submitted transaction.
	Poll poller.Options
	// MaxQuoteAge defaults to quote.MaxQuoteAge.
	MaxQuoteAge time.Duration
}

// SwapExecutor drives one same-chain swap through
// checking-allowance → (approving) → swapping → confirming. Each state
// change is pushed on the updates channel before the next step starts; the
// caller is a passive subscriber.
type SwapExecutor struct {
	deps SwapDeps
	now  func() time.Time
}

func NewSwapExecutor(deps SwapDeps) *SwapExecutor {
	if deps.Inflight == nil {
		deps.Inflight = NewInflight()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxQuoteAge <= 0 {
		deps.MaxQuoteAge = quote.MaxQuoteAge
	}
	return &SwapExecutor{deps: deps, now: time.Now}
}

// Execute runs the swap to a terminal state. The returned state is always
// terminal (complete or error); a non-nil error is returned only when the
// execution was rejected before starting (duplicate in-flight key).
// Updates may be nil; when set it receives every state change and is closed
// on return.
func (e *SwapExecutor) Execute(ctx context.Context, req model.SwapRequest, approval model.ApprovalType, customAmount string, updates chan<- model.SwapState) (model.SwapState, error) {
	key := executionKey(req.ChainID, req.RequestID)
	if err := e.deps.Inflight.acquire(key); err != nil {
		return model.SwapState{}, err
	}
	defer e.deps.Inflight.release(key)
	if updates != nil {
		defer close(updates)
	}

	st := model.SwapState{Step: model.SwapStepIdle}
	final := e.run(ctx, req, approval, customAmount, &st, updates)
	e.journal(req, final)
	return final, nil
}

func (e *SwapExecutor) run(ctx context.Context, req model.SwapRequest, approval model.ApprovalType, customAmount string, st *model.SwapState, updates chan<- model.SwapState) model.SwapState {
	log := e.deps.Logger.With("request_id", req.RequestID, "chain_id", req.ChainID)

	e.step(st, model.SwapStepCheckingAllowance, updates)

	baseUnits, err := amount.ToSmallestUnit(req.Amount, req.FromToken.Decimals)
	if err != nil {
		return e.fail(st, updates, err)
	}

	if failed := e.preflight(ctx, req, baseUnits); failed != nil {
		return e.fail(st, updates, failed)
	}

	route, err := e.deps.Provider.GetRoute(ctx, quote.Request{
		FromChainID:     req.ChainID,
		ToChainID:       req.ChainID,
		FromToken:       req.FromToken,
		ToToken:         req.ToToken,
		AmountBaseUnits: baseUnits,
		SlippagePct:     req.SlippagePct,
		Sender:          e.deps.Signer.Address(),
	})
	if err != nil {
		return e.fail(st, updates, err)
	}
	log.Info("route fetched", "provider", route.Provider, "output", route.OutputAmount)

	needsApproval := false
	if route.ApprovalSpender != "" {
		needsApproval, err = e.deps.Allowance.NeedsApproval(ctx, req.ChainID, req.FromToken,
			e.deps.Signer.Address(), route.ApprovalSpender, baseUnits)
		if err != nil {
			return e.fail(st, updates, err)
		}
	}

	if needsApproval {
		e.step(st, model.SwapStepApproving, updates)
		if err := e.approve(ctx, req, route.ApprovalSpender, approval, customAmount); err != nil {
			return e.fail(st, updates, err)
		}
		log.Info("approval confirmed", "spender", route.ApprovalSpender)
	}

	e.step(st, model.SwapStepSwapping, updates)
	if route.Stale(e.now(), e.deps.MaxQuoteAge) {
		log.Info("route stale, re-quoting")
		checkedSpender := route.ApprovalSpender
		route, err = e.deps.Provider.GetRoute(ctx, quote.Request{
			FromChainID:     req.ChainID,
			ToChainID:       req.ChainID,
			FromToken:       req.FromToken,
			ToToken:         req.ToToken,
			AmountBaseUnits: baseUnits,
			SlippagePct:     req.SlippagePct,
			Sender:          e.deps.Signer.Address(),
		})
		if err != nil {
			return e.fail(st, updates, err)
		}
		// The fresh route may settle through a different spender than the
		// one the allowance was verified (or granted) for.
		if route.ApprovalSpender != "" && !strings.EqualFold(route.ApprovalSpender, checkedSpender) {
			needed, err := e.deps.Allowance.NeedsApproval(ctx, req.ChainID, req.FromToken,
				e.deps.Signer.Address(), route.ApprovalSpender, baseUnits)
			if err != nil {
				return e.fail(st, updates, err)
			}
			if needed {
				log.Info("re-quoted route changed spender, approving", "spender", route.ApprovalSpender)
				if err := e.approve(ctx, req, route.ApprovalSpender, approval, customAmount); err != nil {
					return e.fail(st, updates, err)
				}
			}
		}
	}

	txHash, err := e.submit(ctx, route.Tx)
	if err != nil {
		return e.fail(st, updates, err)
	}
	st.TxHash = txHash
	log.Info("swap submitted", "tx_hash", txHash)

	e.step(st, model.SwapStepConfirming, updates)
	if err := e.confirm(ctx, req.ChainID, txHash); err != nil {
		return e.fail(st, updates, err)
	}

	e.step(st, model.SwapStepComplete, updates)
	log.Info("swap complete", "tx_hash", txHash)
	return *st
}

// preflight surfaces insufficient balances before anything is submitted.
func (e *SwapExecutor) preflight(ctx context.Context, req model.SwapRequest, baseUnits string) error {
	if e.deps.Funds == nil {
		return nil
	}
	balance, err := e.deps.Funds.Balance(ctx, req.ChainID, req.FromToken.Address, e.deps.Signer.Address())
	if err != nil {
		// Treat an unreadable balance as non-blocking; the chain will
		// reject an underfunded transaction anyway.
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

// approve submits the approval transaction and waits for one confirmation.
func (e *SwapExecutor) approve(ctx context.Context, req model.SwapRequest, spender string, approvalType model.ApprovalType, customAmount string) error {
	payload, err := allowance.BuildApproval(req.ChainID, spender, model.AllowanceRequest{
		Token:          req.FromToken,
		RequiredAmount: req.Amount,
		Type:           approvalType,
		CustomAmount:   customAmount,
	})
	if err != nil {
		return err
	}
	hash, err := e.submit(ctx, payload)
	if err != nil {
		return err
	}
	return e.confirm(ctx, req.ChainID, hash)
}

// submit sends one transaction through the wallet. A decline, or a nil
// error without a hash, is the typed user-declined outcome.
func (e *SwapExecutor) submit(ctx context.Context, tx model.TxPayload) (string, error) {
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

// confirm polls the chain until the transaction is mined or the budget runs
// out. Timeout is reported distinctly from revert: the transaction may
// still land.
func (e *SwapExecutor) confirm(ctx context.Context, chainID int64, txHash string) error {
	result := poller.Poll(ctx, func(ctx context.Context) (model.TxStatus, error) {
		return e.deps.Chain.TransactionStatus(ctx, chainID, txHash)
	}, func(s model.TxStatus) bool {
		return s.State != model.TxStatePending
	}, e.deps.Poll)
	metrics.PollAttempts.WithLabelValues("chain", string(result.Outcome)).Observe(float64(result.Attempts))

	switch result.Outcome {
	case poller.OutcomeCancelled:
		return xerr.New(xerr.CodeTimeoutUnknown, "confirmation cancelled; check the explorer for final status")
	case poller.OutcomeTimeout:
		return xerr.New(xerr.CodeTimeoutUnknown, "transaction status unknown; check the explorer")
	}
	if result.Status.State == model.TxStateReverted {
		reason := result.Status.Reason
		if reason == "" {
			reason = "transaction failed on-chain"
		}
		return xerr.New(xerr.CodeOnChainRevert, reason)
	}
	return nil
}

func (e *SwapExecutor) step(st *model.SwapState, next model.SwapStep, updates chan<- model.SwapState) {
	if !st.Step.CanTransition(next) {
		e.deps.Logger.Error("illegal swap transition", "from", st.Step, "to", next)
		return
	}
	st.Step = next
	metrics.ExecutorTransitions.WithLabelValues("swap", string(next)).Inc()
	emitSwap(updates, *st)
}

func (e *SwapExecutor) fail(st *model.SwapState, updates chan<- model.SwapState, err error) model.SwapState {
	st.Step = model.SwapStepError
	st.Error = err.Error()
	st.ErrorCategory = xerr.CodeOf(err).Category()
	if xerr.CodeOf(err) == xerr.CodeUserDeclined {
		// Silent outcome: the caller returns to idle without a banner.
		st.Error = ""
	}
	metrics.ExecutorTransitions.WithLabelValues("swap", string(model.SwapStepError)).Inc()
	metrics.ExecutorFailures.WithLabelValues("swap", st.ErrorCategory).Inc()
	e.deps.Logger.Warn("swap failed", "category", st.ErrorCategory, "error", err)
	emitSwap(updates, *st)
	return *st
}

func (e *SwapExecutor) journal(req model.SwapRequest, final model.SwapState) {
	if e.deps.Journal == nil {
		return
	}
	if err := e.deps.Journal.RecordSwap(req, final); err != nil {
		e.deps.Logger.Warn("journal write failed", "error", err)
	}
}

func emitSwap(updates chan<- model.SwapState, st model.SwapState) {
	if updates == nil {
		return
	}
	updates <- st
}
