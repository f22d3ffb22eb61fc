package ports

import (
	"context"

	"github.com/freightchain/tracking-system/internal/core/domain"
	"github.com/freightchain/tracking-system/internal/ledger"
)

// LedgerClient is the reconciliation layer's view of the ledger substrate.
// Every mutating call blocks until the submission is final and returns the
// authoritative receipt; substrate outages surface as
// domain.ErrLedgerUnavailable (possibly wrapped), the only transient failure
// in the taxonomy. The in-process ledger satisfies this interface through
// ledgerclient.InProcess; a remote substrate adapter would replace it without
// touching the engine.
type LedgerClient interface {
	Create(ctx context.Context, caller domain.Principal, productName, origin, destination string, payment uint64) (ledger.Receipt, error)
	Assign(ctx context.Context, caller domain.Principal, id uint64, driverName, vehiclePlate string) (ledger.Receipt, error)
	UpdateStatus(ctx context.Context, caller domain.Principal, id uint64, next domain.ShipmentStatus) (ledger.Receipt, error)
	AddCheckpoint(ctx context.Context, caller domain.Principal, id uint64, label string, latE6, lngE6 int64) (ledger.Receipt, error)

	AddManager(ctx context.Context, caller, target domain.Principal) (ledger.Receipt, error)
	RemoveManager(ctx context.Context, caller, target domain.Principal) (ledger.Receipt, error)
	AddToWhitelist(ctx context.Context, caller, target domain.Principal) (ledger.Receipt, error)
	SetWhitelistRequired(ctx context.Context, caller domain.Principal, required bool) (ledger.Receipt, error)
	SetFeeRequired(ctx context.Context, caller domain.Principal, required bool) (ledger.Receipt, error)
	SetFee(ctx context.Context, caller domain.Principal, amount uint64) (ledger.Receipt, error)
	Withdraw(ctx context.Context, caller domain.Principal) (uint64, ledger.Receipt, error)

	GetShipment(ctx context.Context, id uint64) (domain.Shipment, error)
	ShipmentCount(ctx context.Context) (uint64, error)
	CheckpointCount(ctx context.Context, id uint64) (int, error)
	GetCheckpoint(ctx context.Context, id uint64, index int) (domain.Checkpoint, error)
}
