package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	schederrors "banya/internal/scheduling/errors"
	"banya/pkg/config"
	mongotx "banya/pkg/db/mongo"
	"banya/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	LocationsCollection       = "Locations"
	ServicesCollection        = "Services"
	ResourcesCollection       = "Resources"
	TechniciansCollection     = "Technicians"
	ShiftsCollection          = "Shifts"
	AppointmentsCollection    = "Appointments"
	TechnicianLinksCollection = "Appointment_technician_links"
	ResourceLinksCollection   = "Appointment_resource_links"
	SlotLocksCollection       = "Slot_locks"
)

// lockRetryInterval paces re-attempts on a held advisory lock.
const lockRetryInterval = 50 * time.Millisecond

type mongoRepository struct {
	cfg       *config.Config
	db        *mongo.Database
	txManager mongotx.TransactionManager
}

func NewMongoRepository(cfg *config.Config) Repository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRepository{
		cfg:       cfg,
		db:        db,
		txManager: mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless it already belongs to
// a session; a SessionContext cannot be wrapped without breaking
// transaction semantics.
func (r *mongoRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoRepository) GetLocation(ctx context.Context, uid string) (*model.Location, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var location model.Location
	err := r.db.Collection(LocationsCollection).FindOne(ctx, bson.M{"_id": uid}).Decode(&location)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, schederrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find location: %w", err)
	}
	return &location, nil
}

func (r *mongoRepository) GetService(ctx context.Context, uid string) (*model.Service, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var service model.Service
	err := r.db.Collection(ServicesCollection).FindOne(ctx, bson.M{"_id": uid}).Decode(&service)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, schederrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}
	return &service, nil
}

func (r *mongoRepository) GetTechnician(ctx context.Context, uid string) (*model.Technician, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var technician model.Technician
	err := r.db.Collection(TechniciansCollection).FindOne(ctx, bson.M{"_id": uid}).Decode(&technician)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, schederrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find technician: %w", err)
	}
	return &technician, nil
}

func (r *mongoRepository) TechniciansForService(ctx context.Context, serviceUID string) ([]*model.Technician, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.db.Collection(TechniciansCollection).Find(ctx, bson.M{"service_uids": serviceUID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find technicians: %w", err)
	}
	defer cursor.Close(ctx)

	var technicians []*model.Technician
	if err = cursor.All(ctx, &technicians); err != nil {
		return nil, fmt.Errorf("failed to decode technicians: %w", err)
	}
	return technicians, nil
}

func (r *mongoRepository) ResourcesForService(ctx context.Context, locationUID, serviceUID string) ([]*model.Resource, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"location_uid": locationUID,
		"service_uids": serviceUID,
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.db.Collection(ResourcesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find resources: %w", err)
	}
	defer cursor.Close(ctx)

	var resources []*model.Resource
	if err = cursor.All(ctx, &resources); err != nil {
		return nil, fmt.Errorf("failed to decode resources: %w", err)
	}
	return resources, nil
}

func (r *mongoRepository) ShiftsForTechnicians(ctx context.Context, locationUID string, technicianUIDs []string, window model.Interval) ([]*model.Shift, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"location_uid":   locationUID,
		"technician_uid": bson.M{"$in": technicianUIDs},
		"cancelled":      false,
		"start_time":     bson.M{"$lt": window.End},
		"end_time":       bson.M{"$gt": window.Start},
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})
	cursor, err := r.db.Collection(ShiftsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find shifts: %w", err)
	}
	defer cursor.Close(ctx)

	var shifts []*model.Shift
	if err = cursor.All(ctx, &shifts); err != nil {
		return nil, fmt.Errorf("failed to decode shifts: %w", err)
	}
	return shifts, nil
}

func (r *mongoRepository) ShiftsForTechnician(ctx context.Context, technicianUID string, window model.Interval, includeCancelled bool) ([]*model.Shift, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"technician_uid": technicianUID,
		"start_time":     bson.M{"$lt": window.End},
		"end_time":       bson.M{"$gt": window.Start},
	}
	if !includeCancelled {
		filter["cancelled"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})
	cursor, err := r.db.Collection(ShiftsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find shifts: %w", err)
	}
	defer cursor.Close(ctx)

	var shifts []*model.Shift
	if err = cursor.All(ctx, &shifts); err != nil {
		return nil, fmt.Errorf("failed to decode shifts: %w", err)
	}
	return shifts, nil
}

func (r *mongoRepository) CreateShifts(ctx context.Context, shifts []*model.Shift) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	docs := make([]any, 0, len(shifts))
	now := time.Now().UTC().Truncate(time.Millisecond)
	for _, shift := range shifts {
		shift.CreatedAt = now
		docs = append(docs, shift)
	}

	if _, err := r.db.Collection(ShiftsCollection).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to create shifts: %w", err)
	}
	return nil
}

// linkDoc is the stored shape of both link collections. The appointment
// status is denormalized onto the link so occupancy reads stay a single
// query; the cancellation flow updates both rows in one transaction.
type linkDoc struct {
	AppointmentUID string    `bson:"appointment_uid"`
	TechnicianUID  string    `bson:"technician_uid,omitempty"`
	ResourceUID    string    `bson:"resource_uid,omitempty"`
	StartTime      time.Time `bson:"start_time"`
	EndTime        time.Time `bson:"end_time"`
	Status         string    `bson:"status"`
}

func (r *mongoRepository) TechnicianBusy(ctx context.Context, technicianUIDs []string, window model.Interval) (map[string][]model.Interval, error) {
	return r.busyIntervals(ctx, TechnicianLinksCollection, "technician_uid", technicianUIDs, window)
}

func (r *mongoRepository) ResourceBusy(ctx context.Context, resourceUIDs []string, window model.Interval) (map[string][]model.Interval, error) {
	return r.busyIntervals(ctx, ResourceLinksCollection, "resource_uid", resourceUIDs, window)
}

func (r *mongoRepository) busyIntervals(ctx context.Context, collection, keyField string, uids []string, window model.Interval) (map[string][]model.Interval, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		keyField:     bson.M{"$in": uids},
		"status":     model.StatusConfirmed,
		"start_time": bson.M{"$lt": window.End},
		"end_time":   bson.M{"$gt": window.Start},
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})
	cursor, err := r.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find occupancy links: %w", err)
	}
	defer cursor.Close(ctx)

	var links []linkDoc
	if err = cursor.All(ctx, &links); err != nil {
		return nil, fmt.Errorf("failed to decode occupancy links: %w", err)
	}

	busy := make(map[string][]model.Interval, len(uids))
	for _, link := range links {
		key := link.TechnicianUID
		if keyField == "resource_uid" {
			key = link.ResourceUID
		}
		busy[key] = append(busy[key], model.Interval{Start: link.StartTime, End: link.EndTime})
	}
	return busy, nil
}

func (r *mongoRepository) CreateAppointment(ctx context.Context, appt *model.Appointment, techLink *model.TechnicianLink, resLink *model.ResourceLink) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	appt.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.db.Collection(AppointmentsCollection).InsertOne(ctx, appt); err != nil {
		return r.classifyWriteError(err)
	}

	techDoc := linkDoc{
		AppointmentUID: techLink.AppointmentUID,
		TechnicianUID:  techLink.TechnicianUID,
		StartTime:      techLink.StartTime,
		EndTime:        techLink.EndTime,
		Status:         appt.Status,
	}
	if _, err := r.db.Collection(TechnicianLinksCollection).InsertOne(ctx, techDoc); err != nil {
		return r.classifyWriteError(err)
	}

	resDoc := linkDoc{
		AppointmentUID: resLink.AppointmentUID,
		ResourceUID:    resLink.ResourceUID,
		StartTime:      resLink.StartTime,
		EndTime:        resLink.EndTime,
		Status:         appt.Status,
	}
	if _, err := r.db.Collection(ResourceLinksCollection).InsertOne(ctx, resDoc); err != nil {
		return r.classifyWriteError(err)
	}

	return nil
}

// classifyWriteError separates retryable storage races from genuine
// persistence failures.
func (r *mongoRepository) classifyWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return schederrors.ErrTxConflict
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && (cmdErr.HasErrorLabel("TransientTransactionError") || cmdErr.HasErrorLabel("UnknownTransactionCommitResult")) {
		return schederrors.ErrTxConflict
	}
	return fmt.Errorf("failed to write appointment: %w", err)
}

type slotLockDoc struct {
	ID        string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// AcquireLocks inserts one advisory lock document per key, in order. A
// duplicate key means the lock is held; we retry until the context deadline
// and then roll back everything taken so far. The expires_at TTL index
// reclaims locks from crashed holders.
func (r *mongoRepository) AcquireLocks(ctx context.Context, keys []string, ttl time.Duration) error {
	collection := r.db.Collection(SlotLocksCollection)

	acquired := make([]string, 0, len(keys))
	for _, key := range keys {
		for {
			doc := slotLockDoc{
				ID:        key,
				ExpiresAt: time.Now().Add(ttl),
				CreatedAt: time.Now(),
			}
			_, err := collection.InsertOne(ctx, doc)
			if err == nil {
				acquired = append(acquired, key)
				break
			}
			if !mongo.IsDuplicateKeyError(err) {
				r.releaseQuietly(acquired)
				return fmt.Errorf("failed to acquire slot lock %s: %w", key, err)
			}

			select {
			case <-ctx.Done():
				r.releaseQuietly(acquired)
				return schederrors.ErrLockTimeout
			case <-time.After(lockRetryInterval):
			}
		}
	}
	return nil
}

func (r *mongoRepository) ReleaseLocks(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.db.Collection(SlotLocksCollection).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	return err
}

// releaseQuietly frees partially acquired locks with a fresh context: the
// caller's context is typically already expired at this point.
func (r *mongoRepository) releaseQuietly(keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.ReleaseLocks(ctx, keys); err != nil {
		r.cfg.Log.Warn("Failed to release partially acquired slot locks", "keys", keys, "error", err)
	}
}

func (r *mongoRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

// EnsureIndexes creates the indexes the scheduling queries depend on. Called
// once at startup.
func EnsureIndexes(ctx context.Context, cfg *config.Config) error {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)

	_, err := db.Collection(SlotLocksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("failed to create slot lock TTL index: %w", err)
	}

	for _, index := range []struct {
		collection string
		keys       bson.D
	}{
		{TechnicianLinksCollection, bson.D{{Key: "technician_uid", Value: 1}, {Key: "start_time", Value: 1}}},
		{ResourceLinksCollection, bson.D{{Key: "resource_uid", Value: 1}, {Key: "start_time", Value: 1}}},
		{ShiftsCollection, bson.D{{Key: "technician_uid", Value: 1}, {Key: "start_time", Value: 1}}},
		{ShiftsCollection, bson.D{{Key: "location_uid", Value: 1}, {Key: "start_time", Value: 1}}},
	} {
		_, err := db.Collection(index.collection).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: index.keys})
		if err != nil {
			return fmt.Errorf("failed to create index on %s: %w", index.collection, err)
		}
	}
	return nil
}
