package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/freightchain/tracking-system/internal/core/domain"
	"github.com/freightchain/tracking-system/internal/core/ports"
	"github.com/freightchain/tracking-system/internal/ledger"
)

const (
	testOwner    = domain.Principal("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testCustomer = domain.Principal("0xcccccccccccccccccccccccccccccccccccccccc")
)

// stubLedger wraps an in-process ledger and can simulate a substrate outage
// for a configurable number of calls.
type stubLedger struct {
	inner    *ledger.Ledger
	failNext int
}

func newStubLedger() *stubLedger {
	return &stubLedger{inner: ledger.New(testOwner)}
}

func (s *stubLedger) maybeFail() error {
	if s.failNext > 0 {
		s.failNext--
		return domain.ErrLedgerUnavailable
	}
	return nil
}

func (s *stubLedger) Create(_ context.Context, caller domain.Principal, product, origin, destination string, payment uint64) (ledger.Receipt, error) {
	if err := s.maybeFail(); err != nil {
		return ledger.Receipt{}, err
	}
	return s.inner.Create(caller, product, origin, destination, payment)
}

func (s *stubLedger) Assign(_ context.Context, caller domain.Principal, id uint64, driver, plate string) (ledger.Receipt, error) {
	if err := s.maybeFail(); err != nil {
		return ledger.Receipt{}, err
	}
	return s.inner.Assign(caller, id, driver, plate)
}

func (s *stubLedger) UpdateStatus(_ context.Context, caller domain.Principal, id uint64, next domain.ShipmentStatus) (ledger.Receipt, error) {
	if err := s.maybeFail(); err != nil {
		return ledger.Receipt{}, err
	}
	return s.inner.UpdateStatus(caller, id, next)
}

func (s *stubLedger) AddCheckpoint(_ context.Context, caller domain.Principal, id uint64, label string, latE6, lngE6 int64) (ledger.Receipt, error) {
	return s.inner.AddCheckpoint(caller, id, label, latE6, lngE6)
}

func (s *stubLedger) AddManager(_ context.Context, caller, target domain.Principal) (ledger.Receipt, error) {
	return s.inner.AddManager(caller, target)
}

func (s *stubLedger) RemoveManager(_ context.Context, caller, target domain.Principal) (ledger.Receipt, error) {
	return s.inner.RemoveManager(caller, target)
}

func (s *stubLedger) AddToWhitelist(_ context.Context, caller, target domain.Principal) (ledger.Receipt, error) {
	return s.inner.AddToWhitelist(caller, target)
}

func (s *stubLedger) SetWhitelistRequired(_ context.Context, caller domain.Principal, required bool) (ledger.Receipt, error) {
	return s.inner.SetWhitelistRequired(caller, required)
}

func (s *stubLedger) SetFeeRequired(_ context.Context, caller domain.Principal, required bool) (ledger.Receipt, error) {
	return s.inner.SetFeeRequired(caller, required)
}

func (s *stubLedger) SetFee(_ context.Context, caller domain.Principal, amount uint64) (ledger.Receipt, error) {
	return s.inner.SetFee(caller, amount)
}

func (s *stubLedger) Withdraw(_ context.Context, caller domain.Principal) (uint64, ledger.Receipt, error) {
	return s.inner.Withdraw(caller)
}

func (s *stubLedger) GetShipment(_ context.Context, id uint64) (domain.Shipment, error) {
	return s.inner.GetShipment(id)
}

func (s *stubLedger) ShipmentCount(context.Context) (uint64, error) {
	return s.inner.ShipmentCount(), nil
}

func (s *stubLedger) CheckpointCount(_ context.Context, id uint64) (int, error) {
	return s.inner.CheckpointCount(id), nil
}

func (s *stubLedger) GetCheckpoint(_ context.Context, id uint64, index int) (domain.Checkpoint, error) {
	return s.inner.GetCheckpoint(id, index)
}

// stubMirror is an in-memory MirrorRepository with the unique shipment_id
// insert semantics the engine relies on.
type stubMirror struct {
	mu      sync.Mutex
	byID    map[uint64]*domain.MirrorRecord
	nextRef int
	inserts int
	updates int
	deleted []string
}

func newStubMirror() *stubMirror {
	return &stubMirror{byID: make(map[uint64]*domain.MirrorRecord)}
}

func (m *stubMirror) Insert(_ context.Context, rec *domain.MirrorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[rec.ShipmentID]; exists {
		return domain.ErrDuplicateRecord
	}
	m.nextRef++
	rec.RecordRef = "ref-" + strconv.Itoa(m.nextRef)
	clone := *rec
	m.byID[rec.ShipmentID] = &clone
	m.inserts++
	return nil
}

func (m *stubMirror) FindByShipmentID(_ context.Context, shipmentID uint64) (*domain.MirrorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[shipmentID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	clone := *rec
	return &clone, nil
}

func (m *stubMirror) Update(_ context.Context, shipmentID uint64, update ports.MirrorUpdate, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[shipmentID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if update.Status != nil {
		rec.Status = *update.Status
	}
	if update.Manager != nil {
		rec.Manager = *update.Manager
	}
	if update.DriverName != nil {
		rec.DriverName = *update.DriverName
	}
	if update.VehiclePlate != nil {
		rec.VehiclePlate = *update.VehiclePlate
	}
	if update.Notes != nil {
		rec.Notes = *update.Notes
	}
	rec.UpdatedAt = at
	m.updates++
	return nil
}

func (m *stubMirror) List(_ context.Context, _ ports.ListMirrorFilter) ([]*domain.MirrorRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.MirrorRecord, 0, len(m.byID))
	for _, rec := range m.byID {
		clone := *rec
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (m *stubMirror) ListAll(_ context.Context) ([]domain.MirrorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.MirrorRecord, 0, len(m.byID))
	for _, rec := range m.byID {
		out = append(out, *rec)
	}
	return out, nil
}

func (m *stubMirror) DeleteByRecordRef(_ context.Context, recordRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.byID {
		if rec.RecordRef == recordRef {
			delete(m.byID, id)
			m.deleted = append(m.deleted, recordRef)
			return nil
		}
	}
	return domain.ErrRecordNotFound
}

type stubMarker struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newStubMarker() *stubMarker {
	return &stubMarker{seen: make(map[string]bool)}
}

func (s *stubMarker) Seen(_ context.Context, txRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[txRef], nil
}

func (s *stubMarker) Mark(_ context.Context, txRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[txRef] = true
	return nil
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func newTestReconciler(l *stubLedger, m *stubMirror, seen ProcessedMarker) *Reconciler {
	return NewReconciler(l, m, seen, fastRetry(), zerolog.Nop())
}

func TestReconciler_SubmitCreateProjectsMirror(t *testing.T) {
	l := newStubLedger()
	m := newStubMirror()
	r := newTestReconciler(l, m, newStubMarker())

	rec, err := r.SubmitCreate(context.Background(), ports.CreateShipmentInput{
		Caller:      testCustomer,
		ProductName: "TVs",
		Origin:      "Hanoi",
		Destination: "Saigon",
	})
	if err != nil {
		t.Fatalf("SubmitCreate returned error: %v", err)
	}
	if rec.ShipmentID != 1 {
		t.Fatalf("mirrored shipment id = %d, want 1", rec.ShipmentID)
	}
	if rec.Status != domain.StatusCreated || rec.Customer != testCustomer {
		t.Fatalf("unexpected projection: %+v", rec)
	}
	if rec.SourceTxRef == "" {
		t.Fatalf("projection missing source tx ref")
	}
	if m.inserts != 1 {
		t.Fatalf("mirror inserts = %d, want 1", m.inserts)
	}
}

func TestReconciler_SubmitCreateRetriesTransientFailure(t *testing.T) {
	l := newStubLedger()
	l.failNext = 2
	m := newStubMirror()
	r := newTestReconciler(l, m, newStubMarker())

	rec, err := r.SubmitCreate(context.Background(), ports.CreateShipmentInput{
		Caller: testCustomer, ProductName: "TVs", Origin: "Hanoi", Destination: "Saigon",
	})
	if err != nil {
		t.Fatalf("SubmitCreate should succeed after retries, got %v", err)
	}
	if rec.ShipmentID != 1 {
		t.Fatalf("shipment id = %d, want 1", rec.ShipmentID)
	}
}

func TestReconciler_SubmitCreateGivesUpAfterMaxAttempts(t *testing.T) {
	l := newStubLedger()
	l.failNext = 10
	m := newStubMirror()
	r := newTestReconciler(l, m, newStubMarker())

	_, err := r.SubmitCreate(context.Background(), ports.CreateShipmentInput{
		Caller: testCustomer, ProductName: "TVs", Origin: "Hanoi", Destination: "Saigon",
	})
	if !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Fatalf("expected wrapped ErrLedgerUnavailable, got %v", err)
	}
	if m.inserts != 0 {
		t.Fatalf("failed submission wrote to the mirror")
	}
}

func TestReconciler_GiveUpSkipsFinalBackoff(t *testing.T) {
	l := newStubLedger()
	l.failNext = 10
	m := newStubMirror()
	retry := RetryPolicy{MaxAttempts: 2, BaseBackoff: 300 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}
	r := NewReconciler(l, m, newStubMarker(), retry, zerolog.Nop())

	// Two attempts mean exactly one backoff; sleeping again after the last
	// failure would only delay the error.
	start := time.Now()
	_, err := r.SubmitCreate(context.Background(), ports.CreateShipmentInput{
		Caller: testCustomer, ProductName: "TVs", Origin: "Hanoi", Destination: "Saigon",
	})
	elapsed := time.Since(start)

	if !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Fatalf("expected wrapped ErrLedgerUnavailable, got %v", err)
	}
	if elapsed >= 2*retry.BaseBackoff {
		t.Fatalf("give-up took %v, want less than %v", elapsed, 2*retry.BaseBackoff)
	}
}

func TestReconciler_PermanentRejectionNotRetried(t *testing.T) {
	l := newStubLedger()
	if _, err := l.inner.SetWhitelistRequired(testOwner, true); err != nil {
		t.Fatalf("SetWhitelistRequired returned error: %v", err)
	}
	m := newStubMirror()
	r := newTestReconciler(l, m, newStubMarker())

	_, err := r.SubmitCreate(context.Background(), ports.CreateShipmentInput{
		Caller: testCustomer, ProductName: "TVs", Origin: "Hanoi", Destination: "Saigon",
	})
	if !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestReconciler_SubmitStatusUpdateProjects(t *testing.T) {
	l := newStubLedger()
	m := newStubMirror()
	r := newTestReconciler(l, m, newStubMarker())
	ctx := context.Background()

	created, err := r.SubmitCreate(ctx, ports.CreateShipmentInput{
		Caller: testCustomer, ProductName: "TVs", Origin: "Hanoi", Destination: "Saigon",
	})
	if err != nil {
		t.Fatalf("SubmitCreate returned error: %v", err)
	}

	rec, err := r.SubmitStatusUpdate(ctx, ports.UpdateStatusInput{
		Caller: testOwner, ShipmentID: created.ShipmentID, NewStatus: domain.StatusInTransit,
	})
	if err != nil {
		t.Fatalf("SubmitStatusUpdate returned error: %v", err)
	}
	if rec.Status != domain.StatusInTransit {
		t.Fatalf("mirrored status = %s, want in_transit", rec.Status)
	}
}

func TestReconciler_SubmitAssignProjects(t *testing.T) {
	l := newStubLedger()
	m := newStubMirror()
	r := newTestReconciler(l, m, newStubMarker())
	ctx := context.Background()

	created, err := r.SubmitCreate(ctx, ports.CreateShipmentInput{
		Caller: testCustomer, ProductName: "TVs", Origin: "Hanoi", Destination: "Saigon",
	})
	if err != nil {
		t.Fatalf("SubmitCreate returned error: %v", err)
	}

	rec, err := r.SubmitAssign(ctx, ports.AssignInput{
		Caller: testOwner, ShipmentID: created.ShipmentID,
		DriverName: "Nguyen Van A", VehiclePlate: "29A-12345", Notes: "fragile",
	})
	if err != nil {
		t.Fatalf("SubmitAssign returned error: %v", err)
	}
	if rec.DriverName != "Nguyen Van A" || rec.VehiclePlate != "29A-12345" || rec.Notes != "fragile" {
		t.Fatalf("assignment not projected: %+v", rec)
	}
	if rec.Manager != testOwner {
		t.Fatalf("manager = %s, want caller", rec.Manager)
	}
}

func TestReconciler_ApplyReplayIsNoop(t *testing.T) {
	l := newStubLedger()
	m := newStubMirror()
	seen := newStubMarker()
	r := newTestReconciler(l, m, seen)
	ctx := context.Background()

	receipt, err := l.inner.Create(testCustomer, "TVs", "Hanoi", "Saigon", 0)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	event := receipt.Events[0]

	if err := r.Apply(ctx, event); err != nil {
		t.Fatalf("first Apply returned error: %v", err)
	}
	if err := r.Apply(ctx, event); err != nil {
		t.Fatalf("replayed Apply returned error: %v", err)
	}
	if m.inserts != 1 {
		t.Fatalf("mirror inserts = %d, want 1 (replay must not write)", m.inserts)
	}
}

func TestReconciler_ApplyWithoutMarkerStillIdempotent(t *testing.T) {
	l := newStubLedger()
	m := newStubMirror()
	r := newTestReconciler(l, m, nil)
	ctx := context.Background()

	receipt, err := l.inner.Create(testCustomer, "TVs", "Hanoi", "Saigon", 0)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	event := receipt.Events[0]

	// With no dedup store the upsert path itself must absorb the replay:
	// same shipment id, same tx ref, keep the existing record.
	if err := r.Apply(ctx, event); err != nil {
		t.Fatalf("first Apply returned error: %v", err)
	}
	if err := r.Apply(ctx, event); err != nil {
		t.Fatalf("replayed Apply returned error: %v", err)
	}
	if m.inserts != 1 {
		t.Fatalf("mirror inserts = %d, want 1", m.inserts)
	}
}

func TestReconciler_ApplyAssignEventUpdatesMirroredRecord(t *testing.T) {
	l := newStubLedger()
	m := newStubMirror()
	r := newTestReconciler(l, m, newStubMarker())
	ctx := context.Background()

	created, err := l.inner.Create(testCustomer, "TVs", "Hanoi", "Saigon", 0)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := r.Apply(ctx, created.Events[0]); err != nil {
		t.Fatalf("Apply of creation returned error: %v", err)
	}

	// The assignment lands on the ledger directly, as another integration
	// writing the same ledger would; only its confirmation event reaches
	// this engine.
	assigned, err := l.inner.Assign(testOwner, 1, "Nguyen Van A", "51C-123.45")
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}
	if err := r.Apply(ctx, assigned.Events[0]); err != nil {
		t.Fatalf("Apply of assignment returned error: %v", err)
	}

	rec, err := m.FindByShipmentID(ctx, 1)
	if err != nil {
		t.Fatalf("FindByShipmentID returned error: %v", err)
	}
	if rec.DriverName != "Nguyen Van A" || rec.VehiclePlate != "51C-123.45" {
		t.Fatalf("assignment not projected: driver=%q plate=%q", rec.DriverName, rec.VehiclePlate)
	}
	if rec.Manager != testOwner {
		t.Fatalf("manager = %s, want %s", rec.Manager, testOwner)
	}
	if m.inserts != 1 {
		t.Fatalf("mirror inserts = %d, want 1 (assignment must update, not insert)", m.inserts)
	}
}

func TestReconciler_UpsertConflictSurfacesBothRecords(t *testing.T) {
	l := newStubLedger()
	m := newStubMirror()
	r := newTestReconciler(l, m, nil)
	ctx := context.Background()

	// A foreign record already occupies id 1 with different core fields.
	if err := m.Insert(ctx, &domain.MirrorRecord{
		ShipmentID:  1,
		ProductName: "Fridges",
		Origin:      "Hue",
		Destination: "Hanoi",
		Status:      domain.StatusCreated,
		SourceTxRef: "foreign-tx",
	}); err != nil {
		t.Fatalf("seed insert returned error: %v", err)
	}

	_, err := r.SubmitCreate(ctx, ports.CreateShipmentInput{
		Caller: testCustomer, ProductName: "TVs", Origin: "Hanoi", Destination: "Saigon",
	})
	var conflict *domain.IDConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected IDConflictError, got %v", err)
	}
	if conflict.Existing.ProductName != "Fridges" || conflict.Incoming.ProductName != "TVs" {
		t.Fatalf("conflict payload incomplete: %+v", conflict)
	}

	// The existing record must survive untouched.
	kept, err := m.FindByShipmentID(ctx, 1)
	if err != nil {
		t.Fatalf("FindByShipmentID returned error: %v", err)
	}
	if kept.ProductName != "Fridges" || kept.SourceTxRef != "foreign-tx" {
		t.Fatalf("existing record was overwritten: %+v", kept)
	}
}

func TestReconciler_UpsertSameCoreDifferentTxKeepsExisting(t *testing.T) {
	l := newStubLedger()
	m := newStubMirror()
	r := newTestReconciler(l, m, nil)
	ctx := context.Background()

	receipt, err := l.inner.Create(testCustomer, "TVs", "Hanoi", "Saigon", 0)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	event := receipt.Events[0]
	if err := r.Apply(ctx, event); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	// Same ledger state observed through a different submission ref, as after
	// a mirror rebuild.
	rebuilt := event
	rebuilt.TxRef = "rebuild-tx"
	if err := r.Apply(ctx, rebuilt); err != nil {
		t.Fatalf("Apply of identical projection returned error: %v", err)
	}
	kept, _ := m.FindByShipmentID(ctx, event.ShipmentID)
	if kept.SourceTxRef != event.TxRef {
		t.Fatalf("existing record replaced: source tx ref = %s", kept.SourceTxRef)
	}
	if m.inserts != 1 {
		t.Fatalf("mirror inserts = %d, want 1", m.inserts)
	}
}

func TestReconciler_ApplyStatusForUnmirroredShipmentReadsBack(t *testing.T) {
	l := newStubLedger()
	m := newStubMirror()
	r := newTestReconciler(l, m, nil)
	ctx := context.Background()

	// Shipment exists on the ledger but was never mirrored (event loss, or a
	// second integration writing the same ledger).
	receipt, err := l.inner.Create(testCustomer, "TVs", "Hanoi", "Saigon", 0)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	id := receipt.Events[0].ShipmentID
	statusReceipt, err := l.inner.UpdateStatus(testOwner, id, domain.StatusInTransit)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	if err := r.Apply(ctx, statusReceipt.Events[0]); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	rec, err := m.FindByShipmentID(ctx, id)
	if err != nil {
		t.Fatalf("record not created by read-back: %v", err)
	}
	if rec.Status != domain.StatusInTransit {
		t.Fatalf("status = %s, want in_transit", rec.Status)
	}
}

func TestReconciler_ApplyCheckpointLeavesMirrorUntouched(t *testing.T) {
	l := newStubLedger()
	m := newStubMirror()
	r := newTestReconciler(l, m, nil)

	event := domain.Event{Kind: domain.EventCheckpointAdded, TxRef: "tx-cp", ShipmentID: 1}
	if err := r.Apply(context.Background(), event); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if m.inserts != 0 || m.updates != 0 {
		t.Fatalf("checkpoint event wrote to the mirror")
	}
}

func TestRetryPolicy_BackoffCapped(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, BaseBackoff: 100 * time.Millisecond, MaxBackoff: time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{9, time.Second},
	}
	for _, tc := range cases {
		if got := p.backoff(tc.attempt); got != tc.want {
			t.Fatalf("backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
