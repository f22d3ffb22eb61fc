package domain

import "time"

// EventKind identifies a ledger event type.
type EventKind string

const (
	EventShipmentCreated  EventKind = "ShipmentCreated"
	EventShipmentAssigned EventKind = "ShipmentAssigned"
	EventStatusUpdated    EventKind = "StatusUpdated"
	EventCheckpointAdded  EventKind = "CheckpointAdded"
	EventFeesWithdrawn    EventKind = "FeesWithdrawn"
)

// Event is emitted by the ledger once a submission is final. TxRef is the
// reference of the submission that produced it; ShipmentCreated events carry
// the ledger-assigned id, which is the only way off-ledger code learns it.
type Event struct {
	Kind       EventKind      `json:"kind"`
	TxRef      string         `json:"tx_ref"`
	ShipmentID uint64         `json:"shipment_id,omitempty"`
	Actor      Principal      `json:"actor"`
	Status     ShipmentStatus `json:"status,omitempty"`
	Amount     uint64         `json:"amount,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}
