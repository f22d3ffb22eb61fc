package domain

import "time"

// ShipmentStatus represents the lifecycle state of a shipment on the ledger.
type ShipmentStatus string

const (
	StatusCreated   ShipmentStatus = "created"
	StatusInTransit ShipmentStatus = "in_transit"
	StatusDelivered ShipmentStatus = "delivered"
	StatusCancelled ShipmentStatus = "cancelled"
)

// validTransitions defines the allowed state machine transitions. Delivered
// and Cancelled are terminal. A shipment already moving cannot be cancelled:
// only Created shipments may be.
var validTransitions = map[ShipmentStatus][]ShipmentStatus{
	StatusCreated:   {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusDelivered},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s ShipmentStatus) CanTransitionTo(next ShipmentStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatus validates a status string coming from a transport layer.
func ParseStatus(s string) (ShipmentStatus, bool) {
	switch ShipmentStatus(s) {
	case StatusCreated, StatusInTransit, StatusDelivered, StatusCancelled:
		return ShipmentStatus(s), true
	}
	return "", false
}

// Shipment is the ledger-resident aggregate. Ids are assigned sequentially by
// the ledger starting at 1 and never reused; a shipment is never deleted from
// ledger history; only its mirror projection can be.
type Shipment struct {
	ID           uint64         `json:"id"`
	ProductName  string         `json:"product_name"`
	Origin       string         `json:"origin"`
	Destination  string         `json:"destination"`
	Status       ShipmentStatus `json:"status"`
	Customer     Principal      `json:"customer"`
	Manager      Principal      `json:"manager,omitempty"`
	DriverName   string         `json:"driver_name,omitempty"`
	VehiclePlate string         `json:"vehicle_plate,omitempty"`
	FeePaid      uint64         `json:"fee_paid"`
	CreatedAt    time.Time      `json:"created_at"`
}
