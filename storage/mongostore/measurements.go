package mongostore

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/c360/sensorstore/errors"
	"github.com/c360/sensorstore/events"
	"github.com/c360/sensorstore/models"
	"github.com/c360/sensorstore/pkg/objectid"
	"github.com/c360/sensorstore/storage"
)

// MeasurementStore is the direct MongoDB implementation of
// storage.MeasurementStore.
type MeasurementStore struct {
	col      *mongo.Collection
	gen      *objectid.Generator
	clock    func() time.Time
	notifier events.Handler
	logger   *slog.Logger
}

// Ensure the interface is satisfied
var _ storage.MeasurementStore = (*MeasurementStore)(nil)

// MeasurementStoreOption configures a MeasurementStore.
type MeasurementStoreOption func(*MeasurementStore)

// WithClock injects a time source, for deterministic tests.
func WithClock(clock func() time.Time) MeasurementStoreOption {
	return func(s *MeasurementStore) { s.clock = clock }
}

// WithNotifier registers the downstream measurement-received listener.
func WithNotifier(h events.Handler) MeasurementStoreOption {
	return func(s *MeasurementStore) { s.notifier = h }
}

// NewMeasurementStore creates a store over the measurements collection.
func NewMeasurementStore(db *mongo.Database, gen *objectid.Generator, logger *slog.Logger, opts ...MeasurementStoreOption) *MeasurementStore {
	if logger == nil {
		logger = slog.Default()
	}

	s := &MeasurementStore{
		col:    db.Collection(MeasurementsCollection),
		gen:    gen,
		clock:  time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// buildMeasurement runs the pure part of the create path: payload decoding,
// secret validation, datapoint conversion, timestamp defaulting, and ID
// assignment. It never touches the store, which is what guarantees that
// invalid submissions perform no store write.
func buildMeasurement(sensor *models.Sensor, payload []byte, gen *objectid.Generator, now time.Time) (*models.Measurement, error) {
	if sensor == nil || sensor.ID.IsZero() {
		return nil, errors.WrapInvalid(errors.ErrMissingSensor, MeasurementsCollection, "Receive", "resolve owning sensor")
	}

	raw, err := models.ParseRawMeasurement(payload)
	if err != nil {
		return nil, err
	}

	if raw.Secret != sensor.Secret {
		return nil, errors.WrapInvalid(errors.ErrSecretMismatch, MeasurementsCollection, "Receive", "secret validation")
	}

	data, err := models.ParseDataPoints(raw.Data)
	if err != nil {
		return nil, err
	}

	createdAt := raw.CreatedAtOrDefault(now)
	m := &models.Measurement{
		ID:        gen.Generate(createdAt),
		SensorID:  sensor.ID,
		CreatedAt: createdAt,
		Latitude:  raw.Latitude,
		Longitude: raw.Longitude,
		Data:      data,
	}
	if m.HasCoordinates() {
		m.Location = models.NewGeoJSONPoint(m.Longitude, m.Latitude)
	}
	return m, nil
}

// Receive implements storage.MeasurementStore
func (s *MeasurementStore) Receive(ctx context.Context, sensor *models.Sensor, payload []byte) (*models.Measurement, error) {
	m, err := buildMeasurement(sensor, payload, s.gen, s.clock())
	if err != nil {
		return nil, err
	}

	if _, err := s.col.InsertOne(ctx, m); err != nil {
		return nil, errors.WrapStorage(err, MeasurementsCollection, "Receive", "insert")
	}

	if s.notifier != nil {
		if err := s.notifier.OnMeasurementReceived(ctx, sensor, m); err != nil {
			s.logger.Warn("measurement notification failed",
				"measurement", m.ID.Hex(), "error", err)
		}
	}

	return m, nil
}

// GetByID implements storage.MeasurementStore
func (s *MeasurementStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Measurement, error) {
	var m models.Measurement

	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, errors.WrapStorage(errors.ErrNotFound, MeasurementsCollection, "GetByID", "find")
	}
	if err != nil {
		return nil, errors.WrapStorage(err, MeasurementsCollection, "GetByID", "find")
	}
	return &m, nil
}

// GetBySensor implements storage.MeasurementStore
func (s *MeasurementStore) GetBySensor(ctx context.Context, sensor *models.Sensor, skip, limit int64) ([]models.Measurement, error) {
	findOpts := options.Find()
	if skip != storage.NoPagination {
		findOpts.SetSkip(skip)
	}
	if limit != storage.NoPagination {
		findOpts.SetLimit(limit)
	}

	cursor, err := s.col.Find(ctx, bson.M{"sensorId": sensor.ID}, findOpts)
	if err != nil {
		return nil, errors.WrapStorage(err, MeasurementsCollection, "GetBySensor", "find")
	}

	var measurements []models.Measurement
	if err := cursor.All(ctx, &measurements); err != nil {
		return nil, errors.WrapStorage(err, MeasurementsCollection, "GetBySensor", "decode")
	}
	return measurements, nil
}

// GetBetween implements storage.MeasurementStore
func (s *MeasurementStore) GetBetween(ctx context.Context, sensor *models.Sensor, start, end time.Time, opts storage.QueryOptions) ([]models.MeasurementsQueryResult, error) {
	return s.findBetween(ctx, betweenFilter([]primitive.ObjectID{sensor.ID}, start, end), opts, "GetBetween")
}

// GetBetweenMany implements storage.MeasurementStore
func (s *MeasurementStore) GetBetweenMany(ctx context.Context, sensors []models.Sensor, start, end time.Time, opts storage.QueryOptions) ([]models.MeasurementsQueryResult, error) {
	return s.findBetween(ctx, betweenFilter(sensorIDs(sensors), start, end), opts, "GetBetweenMany")
}

func (s *MeasurementStore) findBetween(ctx context.Context, filter bson.M, opts storage.QueryOptions, op string) ([]models.MeasurementsQueryResult, error) {
	cursor, err := s.col.Find(ctx, filter, findOptions(opts))
	if err != nil {
		return nil, errors.WrapStorage(err, MeasurementsCollection, op, "find")
	}

	var results []models.MeasurementsQueryResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.WrapStorage(err, MeasurementsCollection, op, "decode")
	}
	return results, nil
}

// GetNear implements storage.MeasurementStore
func (s *MeasurementStore) GetNear(ctx context.Context, sensor *models.Sensor, start, end time.Time, coords models.GeoCoordinates, max int64, opts storage.QueryOptions) ([]models.MeasurementsQueryResult, error) {
	return s.aggregateNear(ctx, nearPipeline([]primitive.ObjectID{sensor.ID}, start, end, coords, max, opts), "GetNear")
}

// GetNearMany implements storage.MeasurementStore
func (s *MeasurementStore) GetNearMany(ctx context.Context, sensors []models.Sensor, start, end time.Time, coords models.GeoCoordinates, max int64, opts storage.QueryOptions) ([]models.MeasurementsQueryResult, error) {
	return s.aggregateNear(ctx, nearPipeline(sensorIDs(sensors), start, end, coords, max, opts), "GetNearMany")
}

func (s *MeasurementStore) aggregateNear(ctx context.Context, pipeline mongo.Pipeline, op string) ([]models.MeasurementsQueryResult, error) {
	cursor, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.WrapStorage(err, MeasurementsCollection, op, "aggregate")
	}

	var results []models.MeasurementsQueryResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.WrapStorage(err, MeasurementsCollection, op, "decode")
	}
	return results, nil
}

// GetMeasurements implements storage.MeasurementStore. The key parameter is
// only meaningful to the caching decorator; the direct store ignores it.
func (s *MeasurementStore) GetMeasurements(ctx context.Context, _ string, query *storage.Query) ([]models.Measurement, error) {
	filter, err := toFilter(query)
	if err != nil {
		return nil, err
	}

	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, errors.WrapStorage(err, MeasurementsCollection, "GetMeasurements", "find")
	}

	var measurements []models.Measurement
	if err := cursor.All(ctx, &measurements); err != nil {
		return nil, errors.WrapStorage(err, MeasurementsCollection, "GetMeasurements", "decode")
	}
	return measurements, nil
}

// Update implements storage.MeasurementStore
func (s *MeasurementStore) Update(ctx context.Context, m *models.Measurement) error {
	update, ok := partialUpdate(m)
	if !ok {
		// Nothing to apply; short-circuit without a store round trip.
		return nil
	}

	if _, err := s.col.UpdateByID(ctx, m.ID, update); err != nil {
		return errors.WrapStorage(err, MeasurementsCollection, "Update", "update")
	}
	return nil
}

// Delete implements storage.MeasurementStore
func (s *MeasurementStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.WrapStorage(err, MeasurementsCollection, "Delete", "delete")
	}
	return nil
}

// DeleteBySensor implements storage.MeasurementStore
func (s *MeasurementStore) DeleteBySensor(ctx context.Context, sensor *models.Sensor) error {
	if _, err := s.col.DeleteMany(ctx, bson.M{"sensorId": sensor.ID}); err != nil {
		return errors.WrapStorage(err, MeasurementsCollection, "DeleteBySensor", "delete")
	}
	return nil
}

// DeleteBetween implements storage.MeasurementStore
func (s *MeasurementStore) DeleteBetween(ctx context.Context, sensor *models.Sensor, start, end time.Time) error {
	filter := betweenFilter([]primitive.ObjectID{sensor.ID}, start, end)
	if _, err := s.col.DeleteMany(ctx, filter); err != nil {
		return errors.WrapStorage(err, MeasurementsCollection, "DeleteBetween", "delete")
	}
	return nil
}

// betweenFilter matches measurements owned by the given sensors with
// start <= createdAt <= end, both bounds inclusive.
func betweenFilter(ids []primitive.ObjectID, start, end time.Time) bson.M {
	filter := bson.M{
		"createdAt": bson.M{"$gte": start, "$lte": end},
	}
	if len(ids) == 1 {
		filter["sensorId"] = ids[0]
	} else {
		filter["sensorId"] = bson.M{"$in": ids}
	}
	return filter
}

// nearPipeline builds the proximity query: nearest-first candidates up to
// max, then the inclusive time filter, then ordering and pagination.
func nearPipeline(ids []primitive.ObjectID, start, end time.Time, coords models.GeoCoordinates, max int64, opts storage.QueryOptions) mongo.Pipeline {
	var sensorMatch bson.M
	if len(ids) == 1 {
		sensorMatch = bson.M{"sensorId": ids[0]}
	} else {
		sensorMatch = bson.M{"sensorId": bson.M{"$in": ids}}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.M{
			"near":          models.NewGeoJSONPoint(coords.Longitude, coords.Latitude),
			"key":           "location",
			"distanceField": "distance",
			"spherical":     true,
			"query":         sensorMatch,
		}}},
	}

	if max > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: max}})
	}

	pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{
		"createdAt": bson.M{"$gte": start, "$lte": end},
	}}})

	switch opts.Order {
	case models.OrderAscending:
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.M{"createdAt": 1}}})
	case models.OrderDescending:
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.M{"createdAt": -1}}})
	}

	if opts.Skip != storage.NoPagination {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: opts.Skip}})
	}
	if opts.Limit != storage.NoPagination {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: opts.Limit}})
	}

	return pipeline
}

// partialUpdate builds the amendment document. Only a non-default coordinate
// pair and a non-empty data field are applied; callers cannot clear a field
// back to its zero value through this path.
func partialUpdate(m *models.Measurement) (bson.M, bool) {
	set := bson.M{}

	if m.HasCoordinates() {
		set["latitude"] = m.Latitude
		set["longitude"] = m.Longitude
		set["location"] = models.NewGeoJSONPoint(m.Longitude, m.Latitude)
	}
	if len(m.Data) > 0 {
		set["data"] = m.Data
	}

	if len(set) == 0 {
		return nil, false
	}
	return bson.M{"$set": set}, true
}

func findOptions(opts storage.QueryOptions) *options.FindOptions {
	findOpts := options.Find()

	switch opts.Order {
	case models.OrderAscending:
		findOpts.SetSort(bson.M{"createdAt": 1})
	case models.OrderDescending:
		findOpts.SetSort(bson.M{"createdAt": -1})
	}

	if opts.Skip != storage.NoPagination {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit != storage.NoPagination {
		findOpts.SetLimit(opts.Limit)
	}
	return findOpts
}

func sensorIDs(sensors []models.Sensor) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(sensors))
	for i, s := range sensors {
		ids[i] = s.ID
	}
	return ids
}
