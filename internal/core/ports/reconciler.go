package ports

import (
	"context"

	"github.com/freightchain/tracking-system/internal/core/domain"
)

// CreateShipmentInput carries a client's creation intent. Payment is in the
// smallest currency unit.
type CreateShipmentInput struct {
	Caller      domain.Principal
	ProductName string
	Origin      string
	Destination string
	Payment     uint64
}

// AssignInput carries a manager's driver/vehicle assignment.
type AssignInput struct {
	Caller       domain.Principal
	ShipmentID   uint64
	DriverName   string
	VehiclePlate string
	Notes        string
}

// UpdateStatusInput carries a manager's status transition request.
type UpdateStatusInput struct {
	Caller     domain.Principal
	ShipmentID uint64
	NewStatus  domain.ShipmentStatus
}

// Reconciler bridges the ledger and the mirror store. Submissions block until
// ledger finality, then project the confirmed outcome into the mirror
// idempotently; transient ledger outages are retried internally.
type Reconciler interface {
	SubmitCreate(ctx context.Context, input CreateShipmentInput) (*domain.MirrorRecord, error)
	SubmitAssign(ctx context.Context, input AssignInput) (*domain.MirrorRecord, error)
	SubmitStatusUpdate(ctx context.Context, input UpdateStatusInput) (*domain.MirrorRecord, error)
}

// EventConsumer applies confirmed ledger events to the mirror store. Events
// may be observed more than once and may reference ids the engine has never
// seen (written by another integration); both must be safe.
type EventConsumer interface {
	Apply(ctx context.Context, event domain.Event) error
}

// DuplicateReport describes one repaired shipment id: the record kept and the
// records deleted, by store-native ref.
type DuplicateReport struct {
	ShipmentID        uint64   `json:"shipment_id"`
	KeptRecordRef     string   `json:"kept_record_ref"`
	DeletedRecordRefs []string `json:"deleted_record_refs"`
}

// DuplicateResolver audits the mirror store for ids that acquired more than
// one record and repairs them deterministically.
type DuplicateResolver interface {
	Scan(ctx context.Context) ([]DuplicateReport, error)
}
