// Package wallet models the signing capability executors suspend on. A
// signer either returns a transaction hash or a typed outcome; an explicit
// user decline is distinguishable from every other failure so executors can
// return to idle without surfacing an error banner.
package wallet

import (
	"context"
	"strings"

	"github.com/Dev72112/xlamaexchange/internal/model"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

// EIP-1193 user rejection code, as emitted by browser wallets.
const UserRejectedCode = 4001

// Signer submits one signed transaction and reports its hash. The call
// blocks until the wallet answers; executors treat it as a suspension point
// and honor ctx cancellation around it.
type Signer interface {
	Address() string
	SendTransaction(ctx context.Context, tx model.TxPayload) (string, error)
}

// ErrUserRejected builds the typed decline outcome.
func ErrUserRejected() error {
	return xerr.New(xerr.CodeUserDeclined, "user rejected the signature request")
}

// IsUserRejection reports whether err (or anything it wraps) is an explicit
// wallet decline. A missing transaction hash with a nil error is treated the
// same way by callers.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	if xerr.CodeOf(err) == xerr.CodeUserDeclined {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "user rejected") || strings.Contains(msg, "4001")
}
