package domain

import "time"

// Checkpoint is a single location record on a shipment's append-only log.
// Coordinates are fixed-point microdegrees (21000000 = 21.0°) so the ledger
// never stores floats.
type Checkpoint struct {
	ShipmentID uint64    `json:"shipment_id"`
	Label      string    `json:"label"`
	LatE6      int64     `json:"lat_e6"`
	LngE6      int64     `json:"lng_e6"`
	RecordedAt time.Time `json:"recorded_at"`
}
