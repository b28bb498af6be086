// Package orders owns limit-order records and their persistence. The store
// is the single source of truth; the watcher and the CLI only read and
// transition records through it.
package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Dev72112/xlamaexchange/internal/model"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusTriggered Status = "triggered"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusTriggered || s == StatusCancelled || s == StatusExpired
}

type Condition string

const (
	ConditionAbove Condition = "above"
	ConditionBelow Condition = "below"
)

type TriggerReason string

const (
	ReasonStopLoss   TriggerReason = "stop-loss"
	ReasonTakeProfit TriggerReason = "take-profit"
	ReasonPrimary    TriggerReason = "primary"
)

// Trigger records why and at what price an order fired.
type Trigger struct {
	Reason TriggerReason `json:"reason"`
	Price  float64       `json:"price"`
	At     time.Time     `json:"at"`
}

// LimitOrder is a standing instruction to exchange FromToken for ToToken
// once price conditions are met. TakeProfitPrice and StopLossPrice are
// independent trigger legs layered on the primary condition; whichever
// fires first wins and disables the others.
type LimitOrder struct {
	ID              string      `json:"id"`
	ChainID         int64       `json:"chain_id"`
	FromToken       model.Token `json:"from_token"`
	ToToken         model.Token `json:"to_token"`
	Amount          string      `json:"amount"`
	TargetPrice     float64     `json:"target_price"`
	Condition       Condition   `json:"condition"`
	Status          Status      `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	ExpiresAt       *time.Time  `json:"expires_at,omitempty"`
	TakeProfitPrice *float64    `json:"take_profit_price,omitempty"`
	StopLossPrice   *float64    `json:"stop_loss_price,omitempty"`
	Trigger         *Trigger    `json:"trigger,omitempty"`
}

// Pair renders the order's trading pair for display and export.
func (o LimitOrder) Pair() string {
	return fmt.Sprintf("%s/%s", o.FromToken.Symbol, o.ToToken.Symbol)
}

// Expired reports whether the order's deadline has passed. Orders without
// a deadline never expire.
func (o LimitOrder) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}

// New builds an active order with a fresh id. Validation failures are
// usage errors; nothing is persisted here.
func New(chainID int64, from, to model.Token, amount string, targetPrice float64, cond Condition, expiresAt *time.Time) (LimitOrder, error) {
	if chainID <= 0 {
		return LimitOrder{}, errors.New("chain id must be positive")
	}
	if strings.TrimSpace(from.Symbol) == "" || strings.TrimSpace(to.Symbol) == "" {
		return LimitOrder{}, errors.New("both token symbols are required")
	}
	if strings.TrimSpace(amount) == "" {
		return LimitOrder{}, errors.New("amount is required")
	}
	if targetPrice <= 0 {
		return LimitOrder{}, errors.New("target price must be positive")
	}
	if cond != ConditionAbove && cond != ConditionBelow {
		return LimitOrder{}, fmt.Errorf("unknown condition %q", cond)
	}
	return LimitOrder{
		ID:          uuid.NewString(),
		ChainID:     chainID,
		FromToken:   from,
		ToToken:     to,
		Amount:      amount,
		TargetPrice: targetPrice,
		Condition:   cond,
		Status:      StatusActive,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}, nil
}
