package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/freightchain/tracking-system/internal/api/metrics"
	"github.com/freightchain/tracking-system/internal/core/domain"
	"github.com/freightchain/tracking-system/internal/core/ports"
)

// Resolver repairs mirror-store divergence: shipment ids that acquired more
// than one record through upsert bugs or manual data entry. It runs as an
// on-demand audit, not as part of the steady-state creation path.
type Resolver struct {
	mirror ports.MirrorRepository
	log    zerolog.Logger
}

func NewResolver(mirror ports.MirrorRepository, log zerolog.Logger) *Resolver {
	return &Resolver{mirror: mirror, log: log}
}

// Scan groups every mirror record by shipment id, keeps the earliest-created
// record of each duplicated group, deletes the rest, and reports what it did.
func (r *Resolver) Scan(ctx context.Context) ([]ports.DuplicateReport, error) {
	records, err := r.mirror.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("duplicate scan: %w", err)
	}

	groups := GroupDuplicates(records)
	reports := make([]ports.DuplicateReport, 0, len(groups))
	for _, group := range groups {
		report := ports.DuplicateReport{
			ShipmentID:    group[0].ShipmentID,
			KeptRecordRef: group[0].RecordRef,
		}
		for _, rec := range group[1:] {
			if err := r.mirror.DeleteByRecordRef(ctx, rec.RecordRef); err != nil {
				return reports, fmt.Errorf("duplicate scan: delete %s: %w", rec.RecordRef, err)
			}
			report.DeletedRecordRefs = append(report.DeletedRecordRefs, rec.RecordRef)
			metrics.DuplicateRecordsDeletedTotal.Inc()
		}
		r.log.Info().Uint64("shipment_id", report.ShipmentID).
			Str("kept", report.KeptRecordRef).
			Strs("deleted", report.DeletedRecordRefs).
			Msg("duplicate mirror records repaired")
		reports = append(reports, report)
	}
	return reports, nil
}

// GroupDuplicates returns, for every shipment id with more than one record,
// that id's records ordered oldest first (ties broken by record ref so the
// selection is deterministic). Groups are ordered by shipment id. Pure
// function, independently testable without a store.
func GroupDuplicates(records []domain.MirrorRecord) [][]domain.MirrorRecord {
	byID := make(map[uint64][]domain.MirrorRecord)
	for _, rec := range records {
		byID[rec.ShipmentID] = append(byID[rec.ShipmentID], rec)
	}

	ids := make([]uint64, 0, len(byID))
	for id, group := range byID {
		if len(group) > 1 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	groups := make([][]domain.MirrorRecord, 0, len(ids))
	for _, id := range ids {
		group := byID[id]
		sort.Slice(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].RecordRef < group[j].RecordRef
		})
		groups = append(groups, group)
	}
	return groups
}
