package ports

import (
	"context"
	"time"

	"github.com/freightchain/tracking-system/internal/core/domain"
)

// MirrorUpdate carries the mutable projection fields applied on assignment
// and status events. Nil fields are left untouched.
type MirrorUpdate struct {
	Status       *domain.ShipmentStatus
	Manager      *domain.Principal
	DriverName   *string
	VehiclePlate *string
	Notes        *string
}

// ListMirrorFilter carries the read-path query parameters.
type ListMirrorFilter struct {
	Status   string           // optional: filter by status
	Customer domain.Principal // optional: filter by creating principal
	Page     int              // 1-based
	Limit    int              // capped by the service
}

// MirrorRepository defines persistence for the off-ledger shipment projection.
// Insert must be atomic on the unique shipment_id key: the engine's upsert
// safety depends on the store rejecting a second insert for the same id with
// domain.ErrDuplicateRecord.
type MirrorRepository interface {
	Insert(ctx context.Context, rec *domain.MirrorRecord) error
	FindByShipmentID(ctx context.Context, shipmentID uint64) (*domain.MirrorRecord, error)
	Update(ctx context.Context, shipmentID uint64, update MirrorUpdate, at time.Time) error
	List(ctx context.Context, filter ListMirrorFilter) ([]*domain.MirrorRecord, int64, error)

	// ListAll returns every record including divergent duplicates, for the
	// duplicate resolver's audit scan.
	ListAll(ctx context.Context) ([]domain.MirrorRecord, error)
	// DeleteByRecordRef removes one record by its store-native ref. Mirror
	// deletions never affect ledger history.
	DeleteByRecordRef(ctx context.Context, recordRef string) error
}
