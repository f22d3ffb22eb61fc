package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/freightchain/tracking-system/internal/core/domain"
)

// Receipt is returned for every finalized submission. TxRef is the stable
// correlation reference clients use for retry-safe reconciliation; Events
// carries everything the submission emitted, in order.
type Receipt struct {
	TxRef  string
	Events []domain.Event
}

// EventSink receives every event emitted by a finalized submission. The sink
// runs inside the submission's total-order slot, so a sink that hands events
// to workers must not block.
type EventSink func(domain.Event)

// Ledger is the shipment state machine. All submissions are serialized under
// one mutex, modelling the total order and finality the substrate guarantees:
// once a method returns, the operation is final and its receipt is authoritative.
type Ledger struct {
	mu sync.Mutex

	registry    *Registry
	escrow      *Escrow
	checkpoints *CheckpointLog

	shipments map[uint64]*domain.Shipment
	nextID    uint64

	sink  EventSink
	now   func() time.Time
	txRef func() string
}

// Option configures a Ledger at construction.
type Option func(*Ledger)

// WithEventSink registers a sink invoked for every emitted event.
func WithEventSink(sink EventSink) Option {
	return func(l *Ledger) { l.sink = sink }
}

// WithPayout wires the escrow's withdrawal transfer.
func WithPayout(payout PayoutFunc) Option {
	return func(l *Ledger) { l.escrow.payout = payout }
}

// New creates a ledger program controlled by owner.
func New(owner domain.Principal, opts ...Option) *Ledger {
	registry := NewRegistry(owner)
	l := &Ledger{
		registry:    registry,
		escrow:      NewEscrow(registry, nil),
		checkpoints: NewCheckpointLog(registry),
		shipments:   make(map[uint64]*domain.Shipment),
		nextID:      1,
		now:         func() time.Time { return time.Now().UTC() },
		txRef:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) emit(events []domain.Event) {
	if l.sink == nil {
		return
	}
	for _, e := range events {
		l.sink(e)
	}
}

// Create allocates the next sequential id and stores a new shipment. The
// authorization check runs before the fee check, and both run before the id
// is allocated, so failed attempts never consume an id. Emits ShipmentCreated.
func (l *Ledger) Create(caller domain.Principal, productName, origin, destination string, payment uint64) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.registry.IsAuthorizedToCreate(caller) {
		return Receipt{}, domain.ErrNotAuthorized
	}
	feePaid, err := l.escrow.Collect(payment)
	if err != nil {
		return Receipt{}, err
	}

	id := l.nextID
	l.nextID++

	now := l.now()
	l.shipments[id] = &domain.Shipment{
		ID:          id,
		ProductName: productName,
		Origin:      origin,
		Destination: destination,
		Status:      domain.StatusCreated,
		Customer:    caller,
		FeePaid:     feePaid,
		CreatedAt:   now,
	}

	return l.newReceipt(domain.Event{
		Kind:       domain.EventShipmentCreated,
		ShipmentID: id,
		Actor:      caller,
		RecordedAt: now,
	}), nil
}

// Assign sets the handling manager, driver, and vehicle on a shipment.
// Permitted only while the shipment is still Created; assignment after
// movement begins is rejected as an invalid transition.
func (l *Ledger) Assign(caller domain.Principal, id uint64, driverName, vehiclePlate string) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.registry.IsManager(caller) {
		return Receipt{}, domain.ErrNotManager
	}
	s, ok := l.shipments[id]
	if !ok {
		return Receipt{}, domain.ErrUnknownShipment
	}
	if s.Status != domain.StatusCreated {
		return Receipt{}, domain.ErrInvalidTransition
	}

	s.Manager = caller
	s.DriverName = driverName
	s.VehiclePlate = vehiclePlate

	receipt := l.newReceipt(domain.Event{
		Kind:       domain.EventShipmentAssigned,
		ShipmentID: id,
		Actor:      caller,
		RecordedAt: l.now(),
	})
	return receipt, nil
}

// UpdateStatus applies a state machine transition. The transition table is
// the single source of truth; anything it does not allow fails with
// ErrInvalidTransition and leaves the status unchanged.
func (l *Ledger) UpdateStatus(caller domain.Principal, id uint64, next domain.ShipmentStatus) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.registry.IsManager(caller) {
		return Receipt{}, domain.ErrNotManager
	}
	s, ok := l.shipments[id]
	if !ok {
		return Receipt{}, domain.ErrUnknownShipment
	}
	if !s.Status.CanTransitionTo(next) {
		return Receipt{}, domain.ErrInvalidTransition
	}

	s.Status = next
	receipt := l.newReceipt(domain.Event{
		Kind:       domain.EventStatusUpdated,
		ShipmentID: id,
		Actor:      caller,
		Status:     next,
		RecordedAt: l.now(),
	})
	return receipt, nil
}

// AddCheckpoint appends a location record to a shipment's checkpoint log.
func (l *Ledger) AddCheckpoint(caller domain.Principal, id uint64, label string, latE6, lngE6 int64) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, exists := l.shipments[id]
	if _, err := l.checkpoints.Append(caller, id, exists, label, latE6, lngE6); err != nil {
		return Receipt{}, err
	}
	return l.newReceipt(domain.Event{
		Kind:       domain.EventCheckpointAdded,
		ShipmentID: id,
		Actor:      caller,
		RecordedAt: l.now(),
	}), nil
}

// AddManager, RemoveManager, AddToWhitelist, SetWhitelistRequired,
// SetFeeRequired, and SetFee forward to the registry/escrow inside the
// ledger's total order, keeping policy changes serialized with creations.

func (l *Ledger) AddManager(caller, target domain.Principal) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.registry.AddManager(caller, target); err != nil {
		return Receipt{}, err
	}
	return l.newReceipt(), nil
}

func (l *Ledger) RemoveManager(caller, target domain.Principal) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.registry.RemoveManager(caller, target); err != nil {
		return Receipt{}, err
	}
	return l.newReceipt(), nil
}

func (l *Ledger) AddToWhitelist(caller, target domain.Principal) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.registry.AddToWhitelist(caller, target); err != nil {
		return Receipt{}, err
	}
	return l.newReceipt(), nil
}

func (l *Ledger) SetWhitelistRequired(caller domain.Principal, required bool) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.registry.SetWhitelistRequired(caller, required); err != nil {
		return Receipt{}, err
	}
	return l.newReceipt(), nil
}

func (l *Ledger) SetFeeRequired(caller domain.Principal, required bool) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.registry.SetFeeRequired(caller, required); err != nil {
		return Receipt{}, err
	}
	return l.newReceipt(), nil
}

func (l *Ledger) SetFee(caller domain.Principal, amount uint64) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.escrow.SetFee(caller, amount); err != nil {
		return Receipt{}, err
	}
	return l.newReceipt(), nil
}

// Withdraw pays out the collected fee balance to the owner and emits
// FeesWithdrawn with the paid amount.
func (l *Ledger) Withdraw(caller domain.Principal) (uint64, Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	amount, err := l.escrow.Withdraw(caller)
	if err != nil {
		return 0, Receipt{}, err
	}
	receipt := l.newReceipt(domain.Event{
		Kind:       domain.EventFeesWithdrawn,
		Actor:      caller,
		Amount:     amount,
		RecordedAt: l.now(),
	})
	return amount, receipt, nil
}

// --- Read-only entry points ---

// GetShipment returns a copy of the shipment with the given id.
func (l *Ledger) GetShipment(id uint64) (domain.Shipment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.shipments[id]
	if !ok {
		return domain.Shipment{}, domain.ErrUnknownShipment
	}
	return *s, nil
}

// ShipmentCount returns the number of shipments ever created.
func (l *Ledger) ShipmentCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextID - 1
}

// CheckpointCount returns the number of checkpoints recorded for a shipment.
func (l *Ledger) CheckpointCount(id uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkpoints.Count(id)
}

// GetCheckpoint returns the checkpoint at index for a shipment.
func (l *Ledger) GetCheckpoint(id uint64, index int) (domain.Checkpoint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkpoints.Get(id, index)
}

// CollectedFees exposes the escrow balance for read paths.
func (l *Ledger) CollectedFees() uint64 { return l.escrow.Collected() }

// FeeAmount exposes the configured creation fee for read paths.
func (l *Ledger) FeeAmount() uint64 { return l.escrow.Amount() }

// newReceipt stamps events with a fresh tx ref and forwards them to the sink.
// Callers must hold l.mu.
func (l *Ledger) newReceipt(events ...domain.Event) Receipt {
	ref := l.txRef()
	for i := range events {
		events[i].TxRef = ref
	}
	l.emit(events)
	return Receipt{TxRef: ref, Events: events}
}
