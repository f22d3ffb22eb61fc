package ledger

import (
	"sync"

	"github.com/freightchain/tracking-system/internal/core/domain"
)

// PayoutFunc transfers an amount of collected fees to the owner. A nil payout
// makes Withdraw a pure balance operation (useful in tests and when the
// substrate settles transfers itself).
type PayoutFunc func(to domain.Principal, amount uint64) error

// Escrow holds the creation fee amount and the collected balance. The
// zero-then-pay sequence in Withdraw and the increment in Collect share one
// lock so a concurrent collect during withdrawal is never lost and a
// concurrent double-withdrawal never double-pays.
type Escrow struct {
	mu        sync.Mutex
	registry  *Registry
	amount    uint64
	collected uint64
	payout    PayoutFunc
}

// NewEscrow creates an escrow guarded by the registry's owner checks.
func NewEscrow(registry *Registry, payout PayoutFunc) *Escrow {
	return &Escrow{registry: registry, payout: payout}
}

// Amount returns the currently configured creation fee.
func (e *Escrow) Amount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.amount
}

// Collected returns the accumulated balance awaiting withdrawal.
func (e *Escrow) Collected() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.collected
}

// SetFee replaces the creation fee. Owner only.
func (e *Escrow) SetFee(caller domain.Principal, amount uint64) error {
	if caller != e.registry.Owner() {
		return domain.ErrNotOwner
	}
	e.mu.Lock()
	e.amount = amount
	e.mu.Unlock()
	return nil
}

// Collect accepts a creation payment. When the fee policy is on, a payment
// below the configured amount fails with ErrInsufficientFee. Overpayment is
// accepted in full and not refunded; the returned value is what was actually
// taken, for recording on the shipment.
func (e *Escrow) Collect(payment uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.registry.FeeRequired() && payment < e.amount {
		return 0, domain.ErrInsufficientFee
	}
	e.collected += payment
	return payment, nil
}

// Withdraw zeroes the collected balance and pays it out to the owner as one
// atomic step: a failed payout restores the balance, so funds are never
// zeroed without being paid.
func (e *Escrow) Withdraw(caller domain.Principal) (uint64, error) {
	if caller != e.registry.Owner() {
		return 0, domain.ErrNotOwner
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.collected == 0 {
		return 0, domain.ErrNothingToWithdraw
	}

	amount := e.collected
	e.collected = 0
	if e.payout != nil {
		if err := e.payout(e.registry.Owner(), amount); err != nil {
			e.collected = amount
			return 0, err
		}
	}
	return amount, nil
}
