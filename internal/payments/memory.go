package payments

import (
	"context"
	"math/big"
	"sync"

	id "lanegate/pkg/domain"
)

type balanceKey struct {
	token   id.AppID
	account id.AppID
}

// InMemoryVault implements Vault over a map with one mutex. Amounts are
// copied on the way in and out so callers can never alias vault state.
type InMemoryVault struct {
	mu       sync.Mutex
	balances map[balanceKey]*big.Int
}

// NewInMemoryVault creates an empty vault.
func NewInMemoryVault() *InMemoryVault {
	return &InMemoryVault{balances: make(map[balanceKey]*big.Int)}
}

func (v *InMemoryVault) Mint(_ context.Context, token, account id.AppID, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.credit(token, account, amount)
	return nil
}

func (v *InMemoryVault) Transfer(_ context.Context, token, from, to id.AppID, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	have := v.balances[balanceKey{token: token, account: from}]
	if have == nil || have.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	have.Sub(have, amount)
	v.credit(token, to, amount)
	return nil
}

func (v *InMemoryVault) Balance(_ context.Context, token, account id.AppID) (*big.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	have := v.balances[balanceKey{token: token, account: account}]
	if have == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(have), nil
}

func (v *InMemoryVault) credit(token, account id.AppID, amount *big.Int) {
	key := balanceKey{token: token, account: account}
	have := v.balances[key]
	if have == nil {
		have = big.NewInt(0)
		v.balances[key] = have
	}
	have.Add(have, amount)
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}
