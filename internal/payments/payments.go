// Package payments settles message fees. Balances are arbitrary-precision and
// keyed by (account, token); the native unit is the reserved "native" token.
package payments

import (
	"context"
	"math/big"

	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
)

// NativeToken denominates fees paid in the channel's base unit.
const NativeToken id.AppID = "native"

var (
	// ErrInsufficientBalance rejects a transfer the payer cannot cover.
	ErrInsufficientBalance = derrors.New(derrors.CodePayment, "insufficient balance")

	// ErrInvalidAmount rejects nil or negative amounts.
	ErrInvalidAmount = derrors.New(derrors.CodeInvalidInput, "amount must be non-negative")
)

// Vault moves fee balances between accounts. Transfers are atomic: either the
// full amount moves or nothing does.
type Vault interface {
	// Mint credits newly issued funds to an account.
	Mint(ctx context.Context, token, account id.AppID, amount *big.Int) error

	// Transfer moves amount of token from one account to another, failing
	// with ErrInsufficientBalance if from cannot cover it.
	Transfer(ctx context.Context, token, from, to id.AppID, amount *big.Int) error

	// Balance reports an account's holdings of token. Unknown accounts hold
	// zero.
	Balance(ctx context.Context, token, account id.AppID) (*big.Int, error)
}
