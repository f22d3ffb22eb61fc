package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freightchain/tracking-system/internal/core/domain"
	"github.com/freightchain/tracking-system/internal/core/ports"
)

const collectionMirror = "mirror_shipments"

// MirrorRepository implements ports.MirrorRepository on MongoDB. The unique
// index on shipment_id is what makes the reconciliation upsert race-safe: a
// second insert for the same id fails with a duplicate key error instead of
// creating a divergent record.
type MirrorRepository struct {
	col *mongo.Collection
}

func NewMirrorRepository(db *mongo.Database) *MirrorRepository {
	return &MirrorRepository{col: db.Collection(collectionMirror)}
}

type mirrorDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	ShipmentID   uint64             `bson:"shipment_id"`
	ProductName  string             `bson:"product_name"`
	Origin       string             `bson:"origin"`
	Destination  string             `bson:"destination"`
	Status       string             `bson:"status"`
	Customer     string             `bson:"customer"`
	Manager      string             `bson:"manager,omitempty"`
	DriverName   string             `bson:"driver_name,omitempty"`
	VehiclePlate string             `bson:"vehicle_plate,omitempty"`
	Notes        string             `bson:"notes,omitempty"`
	FeePaid      uint64             `bson:"fee_paid"`
	SourceTxRef  string             `bson:"source_tx_ref"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func toDoc(r *domain.MirrorRecord) mirrorDoc {
	return mirrorDoc{
		ShipmentID:   r.ShipmentID,
		ProductName:  r.ProductName,
		Origin:       r.Origin,
		Destination:  r.Destination,
		Status:       string(r.Status),
		Customer:     r.Customer.String(),
		Manager:      r.Manager.String(),
		DriverName:   r.DriverName,
		VehiclePlate: r.VehiclePlate,
		Notes:        r.Notes,
		FeePaid:      r.FeePaid,
		SourceTxRef:  r.SourceTxRef,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func (d mirrorDoc) toDomain() domain.MirrorRecord {
	return domain.MirrorRecord{
		RecordRef:    d.ID.Hex(),
		ShipmentID:   d.ShipmentID,
		ProductName:  d.ProductName,
		Origin:       d.Origin,
		Destination:  d.Destination,
		Status:       domain.ShipmentStatus(d.Status),
		Customer:     domain.Principal(d.Customer),
		Manager:      domain.Principal(d.Manager),
		DriverName:   d.DriverName,
		VehiclePlate: d.VehiclePlate,
		Notes:        d.Notes,
		FeePaid:      d.FeePaid,
		SourceTxRef:  d.SourceTxRef,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Insert stores a new mirror record, failing with domain.ErrDuplicateRecord
// when the shipment id is already mirrored. The record's RecordRef is filled
// with the new document id.
func (r *MirrorRepository) Insert(ctx context.Context, rec *domain.MirrorRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, toDoc(rec))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateRecord
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		rec.RecordRef = oid.Hex()
	}
	return nil
}

// FindByShipmentID retrieves the record mirroring a ledger shipment id.
func (r *MirrorRepository) FindByShipmentID(ctx context.Context, shipmentID uint64) (*domain.MirrorRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mirrorDoc
	err := r.col.FindOne(ctx, bson.M{"shipment_id": shipmentID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	rec := doc.toDomain()
	return &rec, nil
}

// Update applies the non-nil projection fields and bumps updated_at.
func (r *MirrorRepository) Update(ctx context.Context, shipmentID uint64, update ports.MirrorUpdate, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": at.UTC()}
	if update.Status != nil {
		set["status"] = string(*update.Status)
	}
	if update.Manager != nil {
		set["manager"] = update.Manager.String()
	}
	if update.DriverName != nil {
		set["driver_name"] = *update.DriverName
	}
	if update.VehiclePlate != nil {
		set["vehicle_plate"] = *update.VehiclePlate
	}
	if update.Notes != nil {
		set["notes"] = *update.Notes
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"shipment_id": shipmentID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// List returns a page of records matching filter and the total count.
func (r *MirrorRepository) List(ctx context.Context, filter ports.ListMirrorFilter) ([]*domain.MirrorRecord, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if !filter.Customer.IsZero() {
		query["customer"] = filter.Customer.String()
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	limit := int64(filter.Limit)
	skip := int64(filter.Page-1) * limit
	if skip < 0 {
		skip = 0
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "shipment_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var records []*domain.MirrorRecord
	for cur.Next(ctx) {
		var doc mirrorDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, err
		}
		rec := doc.toDomain()
		records = append(records, &rec)
	}
	return records, total, cur.Err()
}

// ListAll returns every record in the collection for the resolver's audit scan.
func (r *MirrorRepository) ListAll(ctx context.Context) ([]domain.MirrorRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var records []domain.MirrorRecord
	for cur.Next(ctx) {
		var doc mirrorDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, doc.toDomain())
	}
	return records, cur.Err()
}

// DeleteByRecordRef removes a single record by document id. Ledger history is
// unaffected.
func (r *MirrorRepository) DeleteByRecordRef(ctx context.Context, recordRef string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(recordRef)
	if err != nil {
		return domain.ErrRecordNotFound
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// EnsureIndexes creates the unique shipment_id index the upsert relies on,
// plus the read-path secondary indexes.
func (r *MirrorRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "shipment_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "customer", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
