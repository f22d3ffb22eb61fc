package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/freightchain/tracking-system/internal/api/metrics"
	"github.com/freightchain/tracking-system/internal/core/domain"
	"github.com/freightchain/tracking-system/internal/core/ports"
	"github.com/freightchain/tracking-system/internal/ledger"
)

// ProcessedMarker abstracts the confirmation dedup store (Redis). A marked tx
// ref means its events have already been projected, so re-delivered
// confirmations are skipped before any mirror write.
type ProcessedMarker interface {
	Seen(ctx context.Context, txRef string) (bool, error)
	Mark(ctx context.Context, txRef string) error
}

// RetryPolicy bounds the engine's retry of transient ledger failures:
// exponential backoff base * 2^(attempt-1), capped at Max.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy matches the substrate's usual finality window.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	BaseBackoff: 500 * time.Millisecond,
	MaxBackoff:  30 * time.Second,
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return p.BaseBackoff
	}
	delay := time.Duration(float64(p.BaseBackoff) * math.Pow(2, float64(attempt-1)))
	if delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}

// Reconciler bridges the authoritative ledger and the mirror store. It
// submits mutations, awaits finality, and projects confirmed events into the
// mirror idempotently under at-least-once delivery.
type Reconciler struct {
	ledger ports.LedgerClient
	mirror ports.MirrorRepository
	seen   ProcessedMarker
	retry  RetryPolicy
	log    zerolog.Logger
	now    func() time.Time
}

// NewReconciler returns a Reconciler. seen may be nil, in which case every
// event is treated as first delivery (the upsert path stays safe regardless).
func NewReconciler(
	ledgerClient ports.LedgerClient,
	mirror ports.MirrorRepository,
	seen ProcessedMarker,
	retry RetryPolicy,
	log zerolog.Logger,
) *Reconciler {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy
	}
	return &Reconciler{
		ledger: ledgerClient,
		mirror: mirror,
		seen:   seen,
		retry:  retry,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// submit runs one ledger operation, retrying transient failures with capped
// exponential backoff. Authorization, state, and funds rejections are
// permanent and returned on the first attempt. Once a submission has been
// sent it is never abandoned mid-flight: the loop polls to finality or runs
// out of attempts, because an abandoned-but-successful write would never be
// reconciled.
func (r *Reconciler) submit(ctx context.Context, op string, fn func() (ledger.Receipt, error)) (ledger.Receipt, error) {
	var lastErr error
	for attempt := 1; attempt <= r.retry.MaxAttempts; attempt++ {
		receipt, err := fn()
		if err == nil {
			metrics.LedgerSubmissionsTotal.WithLabelValues(op, "ok").Inc()
			return receipt, nil
		}
		if !errors.Is(err, domain.ErrLedgerUnavailable) {
			metrics.LedgerSubmissionsTotal.WithLabelValues(op, "rejected").Inc()
			return ledger.Receipt{}, err
		}

		lastErr = err
		if attempt == r.retry.MaxAttempts {
			break
		}
		metrics.LedgerRetriesTotal.WithLabelValues(op).Inc()
		delay := r.retry.backoff(attempt)
		r.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Dur("backoff", delay).
			Msg("ledger unavailable, retrying")

		select {
		case <-ctx.Done():
			return ledger.Receipt{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	metrics.LedgerSubmissionsTotal.WithLabelValues(op, "unavailable").Inc()
	return ledger.Receipt{}, fmt.Errorf("%s: %w", op, lastErr)
}

// SubmitCreate submits a creation to the ledger, waits for the finalized
// receipt, parses the ShipmentCreated event for the assigned id, and upserts
// the mirror record keyed by that id.
func (r *Reconciler) SubmitCreate(ctx context.Context, input ports.CreateShipmentInput) (*domain.MirrorRecord, error) {
	receipt, err := r.submit(ctx, "create", func() (ledger.Receipt, error) {
		return r.ledger.Create(ctx, input.Caller, input.ProductName, input.Origin, input.Destination, input.Payment)
	})
	if err != nil {
		return nil, err
	}

	created, ok := findCreated(receipt.Events)
	if !ok {
		// A finalized create without its event is a substrate fault, not an
		// expected rejection.
		return nil, fmt.Errorf("receipt %s: missing ShipmentCreated event", receipt.TxRef)
	}

	shipment, err := r.ledger.GetShipment(ctx, created.ShipmentID)
	if err != nil {
		return nil, fmt.Errorf("read back shipment %d: %w", created.ShipmentID, err)
	}

	rec, err := r.upsert(ctx, projectShipment(shipment, receipt.TxRef, r.now()))
	if err != nil {
		return nil, err
	}
	r.markProcessed(ctx, receipt.TxRef)
	r.log.Info().Uint64("shipment_id", rec.ShipmentID).Str("tx_ref", receipt.TxRef).
		Str("customer", rec.Customer.String()).Msg("shipment created")
	return rec, nil
}

// SubmitAssign submits a driver/vehicle assignment and projects it.
func (r *Reconciler) SubmitAssign(ctx context.Context, input ports.AssignInput) (*domain.MirrorRecord, error) {
	receipt, err := r.submit(ctx, "assign", func() (ledger.Receipt, error) {
		return r.ledger.Assign(ctx, input.Caller, input.ShipmentID, input.DriverName, input.VehiclePlate)
	})
	if err != nil {
		return nil, err
	}

	update := ports.MirrorUpdate{
		Manager:      &input.Caller,
		DriverName:   &input.DriverName,
		VehiclePlate: &input.VehiclePlate,
	}
	if input.Notes != "" {
		update.Notes = &input.Notes
	}
	rec, err := r.applyUpdate(ctx, input.ShipmentID, update, receipt.TxRef)
	if err != nil {
		return nil, err
	}
	r.markProcessed(ctx, receipt.TxRef)
	return rec, nil
}

// SubmitStatusUpdate submits a status transition and projects it.
func (r *Reconciler) SubmitStatusUpdate(ctx context.Context, input ports.UpdateStatusInput) (*domain.MirrorRecord, error) {
	receipt, err := r.submit(ctx, "update_status", func() (ledger.Receipt, error) {
		return r.ledger.UpdateStatus(ctx, input.Caller, input.ShipmentID, input.NewStatus)
	})
	if err != nil {
		return nil, err
	}

	rec, err := r.applyUpdate(ctx, input.ShipmentID, ports.MirrorUpdate{Status: &input.NewStatus}, receipt.TxRef)
	if err != nil {
		return nil, err
	}
	r.markProcessed(ctx, receipt.TxRef)
	return rec, nil
}

// Apply projects a confirmed ledger event into the mirror. Re-delivered
// confirmations are skipped via the processed marker; events for ids this
// engine never submitted (another integration writing the same ledger) are
// projected by reading the shipment back from the ledger.
func (r *Reconciler) Apply(ctx context.Context, event domain.Event) error {
	if r.seen != nil && event.TxRef != "" {
		dup, err := r.seen.Seen(ctx, event.TxRef)
		if err != nil {
			r.log.Warn().Err(err).Str("tx_ref", event.TxRef).Msg("dedup check failed, processing anyway")
		} else if dup {
			r.log.Debug().Str("tx_ref", event.TxRef).Msg("duplicate confirmation skipped")
			return nil
		}
	}

	switch event.Kind {
	case domain.EventShipmentCreated:
		shipment, err := r.ledger.GetShipment(ctx, event.ShipmentID)
		if err != nil {
			return fmt.Errorf("apply %s: %w", event.Kind, err)
		}
		if _, err := r.upsert(ctx, projectShipment(shipment, event.TxRef, r.now())); err != nil {
			return fmt.Errorf("apply %s: %w", event.Kind, err)
		}
	case domain.EventShipmentAssigned:
		// The assignment's mutable fields must land on an already-mirrored
		// record; routing it through upsert would see identical core fields
		// and keep the stale record.
		shipment, err := r.ledger.GetShipment(ctx, event.ShipmentID)
		if err != nil {
			return fmt.Errorf("apply %s: %w", event.Kind, err)
		}
		update := ports.MirrorUpdate{
			Manager:      &shipment.Manager,
			DriverName:   &shipment.DriverName,
			VehiclePlate: &shipment.VehiclePlate,
		}
		if _, err := r.applyUpdate(ctx, event.ShipmentID, update, event.TxRef); err != nil {
			return fmt.Errorf("apply %s: %w", event.Kind, err)
		}
	case domain.EventStatusUpdated:
		status := event.Status
		if _, err := r.applyUpdate(ctx, event.ShipmentID, ports.MirrorUpdate{Status: &status}, event.TxRef); err != nil {
			return fmt.Errorf("apply %s: %w", event.Kind, err)
		}
	case domain.EventCheckpointAdded, domain.EventFeesWithdrawn:
		// Checkpoints and escrow balances live only on the ledger.
	default:
		r.log.Warn().Str("kind", string(event.Kind)).Msg("unknown event kind ignored")
		return nil
	}

	metrics.EventsAppliedTotal.WithLabelValues(string(event.Kind)).Inc()
	r.markProcessed(ctx, event.TxRef)
	return nil
}

// upsert inserts a freshly projected record unless the id is already
// mirrored. A record with the same source tx ref is a harmless replay and is
// returned unchanged. A record from a different submission with identical
// core fields is kept as-is. A record from a different submission with
// different core fields means the mirror diverged from the ledger id
// sequence: the engine surfaces IDConflictError with both records and never
// overwrites.
func (r *Reconciler) upsert(ctx context.Context, incoming domain.MirrorRecord) (*domain.MirrorRecord, error) {
	existing, err := r.mirror.FindByShipmentID(ctx, incoming.ShipmentID)
	if err == nil {
		return r.resolveExisting(existing, incoming)
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("mirror lookup %d: %w", incoming.ShipmentID, err)
	}

	rec := incoming
	if err := r.mirror.Insert(ctx, &rec); err != nil {
		if errors.Is(err, domain.ErrDuplicateRecord) {
			// Lost the race against a concurrent submission of the same id;
			// the winner's record decides replay vs conflict.
			existing, ferr := r.mirror.FindByShipmentID(ctx, incoming.ShipmentID)
			if ferr != nil {
				return nil, fmt.Errorf("mirror lookup after duplicate %d: %w", incoming.ShipmentID, ferr)
			}
			return r.resolveExisting(existing, incoming)
		}
		return nil, fmt.Errorf("mirror insert %d: %w", incoming.ShipmentID, err)
	}
	return &rec, nil
}

func (r *Reconciler) resolveExisting(existing *domain.MirrorRecord, incoming domain.MirrorRecord) (*domain.MirrorRecord, error) {
	if existing.SourceTxRef == incoming.SourceTxRef {
		metrics.ReconcileReplaysTotal.Inc()
		r.log.Info().Uint64("shipment_id", incoming.ShipmentID).Str("tx_ref", incoming.SourceTxRef).
			Msg("idempotent replay")
		return existing, nil
	}
	if existing.SameCore(incoming) {
		// Different submission, identical content: rebuilt mirror observing
		// the same ledger state. Keeping the existing record is safe.
		r.log.Warn().Uint64("shipment_id", incoming.ShipmentID).
			Str("existing_tx", existing.SourceTxRef).Str("incoming_tx", incoming.SourceTxRef).
			Msg("duplicate projection with identical fields, keeping existing")
		return existing, nil
	}

	metrics.ReconcileConflictsTotal.Inc()
	conflict := &domain.IDConflictError{Existing: *existing, Incoming: incoming}
	r.log.Error().Uint64("shipment_id", incoming.ShipmentID).
		Str("existing_tx", existing.SourceTxRef).Str("incoming_tx", incoming.SourceTxRef).
		Msg("mirror id conflict, manual resolution required")
	return nil, conflict
}

// applyUpdate applies projection fields for an already-mirrored shipment,
// falling back to a full read-back projection when the mirror has no record
// for the id yet.
func (r *Reconciler) applyUpdate(ctx context.Context, shipmentID uint64, update ports.MirrorUpdate, txRef string) (*domain.MirrorRecord, error) {
	err := r.mirror.Update(ctx, shipmentID, update, r.now())
	if errors.Is(err, domain.ErrRecordNotFound) {
		shipment, lerr := r.ledger.GetShipment(ctx, shipmentID)
		if lerr != nil {
			return nil, fmt.Errorf("read back shipment %d: %w", shipmentID, lerr)
		}
		return r.upsert(ctx, projectShipment(shipment, txRef, r.now()))
	}
	if err != nil {
		return nil, fmt.Errorf("mirror update %d: %w", shipmentID, err)
	}
	rec, err := r.mirror.FindByShipmentID(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("mirror lookup %d: %w", shipmentID, err)
	}
	return rec, nil
}

func (r *Reconciler) markProcessed(ctx context.Context, txRef string) {
	if r.seen == nil || txRef == "" {
		return
	}
	if err := r.seen.Mark(ctx, txRef); err != nil {
		r.log.Warn().Err(err).Str("tx_ref", txRef).Msg("failed to mark confirmation processed")
	}
}

func findCreated(events []domain.Event) (domain.Event, bool) {
	for _, e := range events {
		if e.Kind == domain.EventShipmentCreated {
			return e, true
		}
	}
	return domain.Event{}, false
}

// projectShipment maps a ledger shipment to its mirror projection.
func projectShipment(s domain.Shipment, txRef string, at time.Time) domain.MirrorRecord {
	return domain.MirrorRecord{
		ShipmentID:   s.ID,
		ProductName:  s.ProductName,
		Origin:       s.Origin,
		Destination:  s.Destination,
		Status:       s.Status,
		Customer:     s.Customer,
		Manager:      s.Manager,
		DriverName:   s.DriverName,
		VehiclePlate: s.VehiclePlate,
		FeePaid:      s.FeePaid,
		SourceTxRef:  txRef,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}
