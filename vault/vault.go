// Package vault implements the Parametric Insurance Vault: the sole
// custodian of liquidity and source of parametric disaster payouts. It
// depends on no peer component at rest; it is invoked by the Event Factory.
package vault

import (
	"fmt"
	"sync"

	"github.com/aegis-protocol/aegis-core/crypto"
	"github.com/aegis-protocol/aegis-core/event"
	"github.com/aegis-protocol/aegis-core/types"
)

// Vault is the Parametric Insurance Vault component.
type Vault struct {
	mu sync.Mutex

	totalLiquidity    uint64
	authorizedFactory crypto.PublicKey
	initialFunder     crypto.PublicKey
	additionalFunders map[string]crypto.PublicKey
	admin             crypto.PublicKey
}

// New constructs a Vault. admin, initialFunder, and authorizedFactory are
// immutable for the vault's lifetime.
func New(admin, initialFunder, authorizedFactory crypto.PublicKey) *Vault {
	return &Vault{
		authorizedFactory: authorizedFactory,
		initialFunder:     initialFunder,
		additionalFunders: make(map[string]crypto.PublicKey),
		admin:             admin,
	}
}

// AddFunder authorizes funder to call FundVault. Only the admin may call
// this; idempotent on an already-authorized funder.
func (v *Vault) AddFunder(caller, funder crypto.PublicKey) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !caller.Equal(v.admin) {
		return ErrNotAdmin
	}

	v.additionalFunders[funder.String()] = funder
	return nil
}

// FundVault deposits amount into the vault's liquidity pool. Fails if
// amount is zero or caller is not an authorized funder (the initial funder
// or an admin-added funder). The admin itself cannot deposit unless it is
// also a funder.
func (v *Vault) FundVault(caller crypto.PublicKey, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount == 0 {
		return ErrFundZeroAmount
	}

	if !v.isAuthorizedFunderLocked(caller) {
		return ErrNotAuthorizedFunder
	}

	v.totalLiquidity += amount
	return nil
}

// ReleaseInitialFunding computes the parametric payout for event's severity
// and, if nonzero and covered by current liquidity, decrements liquidity by
// that amount. Only the authorized factory may call this. An unrecognized
// severity (including the empty string) is a policy no-op: it returns
// success with a "no payout" message and leaves liquidity unchanged.
func (v *Vault) ReleaseInitialFunding(caller crypto.PublicKey, daoID types.Hash, ev event.ValidatedEvent) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !caller.Equal(v.authorizedFactory) {
		return "", ErrNotAuthorizedFactory
	}

	payout := event.DeterminePayout(ev.Severity)
	if payout == 0 {
		return fmt.Sprintf("no payout for severity %q; DAO %s received no initial funding", ev.Severity, daoID), nil
	}

	if payout > v.totalLiquidity {
		return "", ErrLiquidityTooLow
	}

	v.totalLiquidity -= payout
	return fmt.Sprintf("released %d to DAO %s", payout, daoID), nil
}

// GetTotalLiquidity is a side-effect-free query.
func (v *Vault) GetTotalLiquidity() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.totalLiquidity
}

// GetAuthorizedFunders returns the effective funder set, with the initial
// funder prepended.
func (v *Vault) GetAuthorizedFunders() []crypto.PublicKey {
	v.mu.Lock()
	defer v.mu.Unlock()

	funders := make([]crypto.PublicKey, 0, len(v.additionalFunders)+1)
	funders = append(funders, v.initialFunder)
	for _, f := range v.additionalFunders {
		funders = append(funders, f)
	}
	return funders
}

func (v *Vault) isAuthorizedFunderLocked(candidate crypto.PublicKey) bool {
	if candidate.Equal(v.initialFunder) {
		return true
	}
	_, ok := v.additionalFunders[candidate.String()]
	return ok
}
