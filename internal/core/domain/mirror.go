package domain

import "time"

// MirrorRecord is the off-ledger projection of a shipment, keyed by the
// ledger-assigned shipment id. SourceTxRef identifies which ledger submission
// produced the record; it is the replay-detection key of the reconciliation
// upsert. RecordRef is the mirror store's own document id, used only by the
// duplicate resolver to name records in its report.
type MirrorRecord struct {
	RecordRef    string         `json:"record_ref"`
	ShipmentID   uint64         `json:"shipment_id"`
	ProductName  string         `json:"product_name"`
	Origin       string         `json:"origin"`
	Destination  string         `json:"destination"`
	Status       ShipmentStatus `json:"status"`
	Customer     Principal      `json:"customer"`
	Manager      Principal      `json:"manager,omitempty"`
	DriverName   string         `json:"driver_name,omitempty"`
	VehiclePlate string         `json:"vehicle_plate,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	FeePaid      uint64         `json:"fee_paid"`
	SourceTxRef  string         `json:"source_tx_ref"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// SameCore reports whether two records agree on the immutable creation fields.
// Two submissions may legitimately share identical text, but for a single
// shipment id a core mismatch means the mirror diverged from the ledger.
func (r MirrorRecord) SameCore(other MirrorRecord) bool {
	return r.ProductName == other.ProductName &&
		r.Origin == other.Origin &&
		r.Destination == other.Destination
}
