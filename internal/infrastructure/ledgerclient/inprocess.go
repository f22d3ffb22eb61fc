// Package ledgerclient adapts ledger substrates to ports.LedgerClient.
package ledgerclient

import (
	"context"

	"github.com/freightchain/tracking-system/internal/core/domain"
	"github.com/freightchain/tracking-system/internal/ledger"
)

// InProcess serves the ledger program from the local process. Submissions
// finalize synchronously under the ledger's total order, so every method
// returns only final state; the context is honoured before entering the
// ledger, since a sent submission must not be abandoned mid-flight.
type InProcess struct {
	ledger *ledger.Ledger
}

func NewInProcess(l *ledger.Ledger) *InProcess {
	return &InProcess{ledger: l}
}

func (c *InProcess) Create(ctx context.Context, caller domain.Principal, productName, origin, destination string, payment uint64) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	return c.ledger.Create(caller, productName, origin, destination, payment)
}

func (c *InProcess) Assign(ctx context.Context, caller domain.Principal, id uint64, driverName, vehiclePlate string) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	return c.ledger.Assign(caller, id, driverName, vehiclePlate)
}

func (c *InProcess) UpdateStatus(ctx context.Context, caller domain.Principal, id uint64, next domain.ShipmentStatus) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	return c.ledger.UpdateStatus(caller, id, next)
}

func (c *InProcess) AddCheckpoint(ctx context.Context, caller domain.Principal, id uint64, label string, latE6, lngE6 int64) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	return c.ledger.AddCheckpoint(caller, id, label, latE6, lngE6)
}

func (c *InProcess) AddManager(ctx context.Context, caller, target domain.Principal) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	return c.ledger.AddManager(caller, target)
}

func (c *InProcess) RemoveManager(ctx context.Context, caller, target domain.Principal) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	return c.ledger.RemoveManager(caller, target)
}

func (c *InProcess) AddToWhitelist(ctx context.Context, caller, target domain.Principal) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	return c.ledger.AddToWhitelist(caller, target)
}

func (c *InProcess) SetWhitelistRequired(ctx context.Context, caller domain.Principal, required bool) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	return c.ledger.SetWhitelistRequired(caller, required)
}

func (c *InProcess) SetFeeRequired(ctx context.Context, caller domain.Principal, required bool) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	return c.ledger.SetFeeRequired(caller, required)
}

func (c *InProcess) SetFee(ctx context.Context, caller domain.Principal, amount uint64) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	return c.ledger.SetFee(caller, amount)
}

func (c *InProcess) Withdraw(ctx context.Context, caller domain.Principal) (uint64, ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return 0, ledger.Receipt{}, err
	}
	return c.ledger.Withdraw(caller)
}

func (c *InProcess) GetShipment(ctx context.Context, id uint64) (domain.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Shipment{}, err
	}
	return c.ledger.GetShipment(id)
}

func (c *InProcess) ShipmentCount(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.ledger.ShipmentCount(), nil
}

func (c *InProcess) CheckpointCount(ctx context.Context, id uint64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.ledger.CheckpointCount(id), nil
}

func (c *InProcess) GetCheckpoint(ctx context.Context, id uint64, index int) (domain.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return domain.Checkpoint{}, err
	}
	return c.ledger.GetCheckpoint(id, index)
}
