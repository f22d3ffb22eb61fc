package ledger

import (
	"time"

	"github.com/freightchain/tracking-system/internal/core/domain"
)

// CheckpointLog is the append-only per-shipment location log. Entries are
// never mutated or removed; ordering within a shipment is insertion order.
type CheckpointLog struct {
	registry *Registry
	entries  map[uint64][]domain.Checkpoint
	now      func() time.Time
}

// NewCheckpointLog creates an empty log guarded by the registry's manager checks.
func NewCheckpointLog(registry *Registry) *CheckpointLog {
	return &CheckpointLog{
		registry: registry,
		entries:  make(map[uint64][]domain.Checkpoint),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Append records a checkpoint for an existing shipment and returns its index.
// Manager only. The shipmentExists guard is supplied by the ledger so the log
// never accepts entries for ids that were never allocated.
func (l *CheckpointLog) Append(caller domain.Principal, shipmentID uint64, exists bool, label string, latE6, lngE6 int64) (int, error) {
	if !l.registry.IsManager(caller) {
		return 0, domain.ErrNotManager
	}
	if !exists {
		return 0, domain.ErrUnknownShipment
	}
	cp := domain.Checkpoint{
		ShipmentID: shipmentID,
		Label:      label,
		LatE6:      latE6,
		LngE6:      lngE6,
		RecordedAt: l.now(),
	}
	l.entries[shipmentID] = append(l.entries[shipmentID], cp)
	return len(l.entries[shipmentID]) - 1, nil
}

// Count returns the number of checkpoints recorded for a shipment.
func (l *CheckpointLog) Count(shipmentID uint64) int {
	return len(l.entries[shipmentID])
}

// Get returns the checkpoint at index for a shipment.
func (l *CheckpointLog) Get(shipmentID uint64, index int) (domain.Checkpoint, error) {
	list := l.entries[shipmentID]
	if index < 0 || index >= len(list) {
		return domain.Checkpoint{}, domain.ErrIndexOutOfRange
	}
	return list[index], nil
}
