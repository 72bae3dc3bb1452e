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
	"github.com/c360/sensorstore/models"
	"github.com/c360/sensorstore/pkg/objectid"
	"github.com/c360/sensorstore/pkg/timeutil"
	"github.com/c360/sensorstore/storage"
)

// StatisticsStore is the MongoDB implementation of storage.StatisticsStore.
type StatisticsStore struct {
	col    *mongo.Collection
	gen    *objectid.Generator
	clock  func() time.Time
	logger *slog.Logger
}

// Ensure the interface is satisfied
var _ storage.StatisticsStore = (*StatisticsStore)(nil)

// StatisticsStoreOption configures a StatisticsStore.
type StatisticsStoreOption func(*StatisticsStore)

// WithStatisticsClock injects a time source, for deterministic tests.
func WithStatisticsClock(clock func() time.Time) StatisticsStoreOption {
	return func(s *StatisticsStore) { s.clock = clock }
}

// NewStatisticsStore creates a store over the sensor_statistics collection.
func NewStatisticsStore(db *mongo.Database, gen *objectid.Generator, logger *slog.Logger, opts ...StatisticsStoreOption) *StatisticsStore {
	if logger == nil {
		logger = slog.Default()
	}

	s := &StatisticsStore{
		col:    db.Collection(StatisticsCollection),
		gen:    gen,
		clock:  time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment implements storage.StatisticsStore
func (s *StatisticsStore) Increment(ctx context.Context, sensor *models.Sensor, method models.RequestMethod) error {
	return s.IncrementMany(ctx, sensor, method, 1)
}

// IncrementMany implements storage.StatisticsStore. The whole operation is a
// single upsert: the filter's equality conditions seed the new document on
// insert, $setOnInsert assigns the surrogate ID, and $inc bumps the counter.
// Concurrent callers hitting the same bucket therefore never lose updates.
func (s *StatisticsStore) IncrementMany(ctx context.Context, sensor *models.Sensor, method models.RequestMethod, count int64) error {
	now := s.clock()
	filter := incrementFilter(sensor.ID, timeutil.ThisHour(now), method)
	update := incrementUpdate(s.gen.Generate(now), count)

	opts := options.Update().SetUpsert(true)
	if _, err := s.col.UpdateOne(ctx, filter, update, opts); err != nil {
		return errors.WrapAggregation(err, StatisticsCollection, "IncrementMany", "upsert")
	}
	return nil
}

// CreateBucket implements storage.StatisticsStore
func (s *StatisticsStore) CreateBucket(ctx context.Context, sensor *models.Sensor) (*models.SensorStatisticsEntry, error) {
	now := s.clock()
	entry := &models.SensorStatisticsEntry{
		ID:           s.gen.Generate(now),
		SensorID:     sensor.ID,
		Date:         timeutil.ThisHour(now),
		Method:       models.MethodAny,
		Measurements: 0,
	}

	if _, err := s.col.InsertOne(ctx, entry); err != nil {
		return nil, errors.WrapStorage(err, StatisticsCollection, "CreateBucket", "insert")
	}
	return entry, nil
}

// GetByDate implements storage.StatisticsStore
func (s *StatisticsStore) GetByDate(ctx context.Context, sensor *models.Sensor, at time.Time) (*models.SensorStatisticsEntry, error) {
	filter := bson.M{"sensorId": sensor.ID, "date": timeutil.ThisHour(at)}

	var entry models.SensorStatisticsEntry
	err := s.col.FindOne(ctx, filter).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, errors.WrapStorage(errors.ErrNotFound, StatisticsCollection, "GetByDate", "find")
	}
	if err != nil {
		return nil, errors.WrapStorage(err, StatisticsCollection, "GetByDate", "find")
	}
	return &entry, nil
}

// GetBefore implements storage.StatisticsStore
func (s *StatisticsStore) GetBefore(ctx context.Context, sensor *models.Sensor, cutoff time.Time) ([]models.SensorStatisticsEntry, error) {
	filter := bson.M{
		"sensorId": sensor.ID,
		"date":     bson.M{"$lte": timeutil.ThisHour(cutoff)},
	}
	return s.find(ctx, filter, "GetBefore")
}

// GetAfter implements storage.StatisticsStore
func (s *StatisticsStore) GetAfter(ctx context.Context, sensor *models.Sensor, cutoff time.Time) ([]models.SensorStatisticsEntry, error) {
	filter := bson.M{
		"sensorId": sensor.ID,
		"date":     bson.M{"$gte": timeutil.ThisHour(cutoff)},
	}
	return s.find(ctx, filter, "GetAfter")
}

// GetBetween implements storage.StatisticsStore
func (s *StatisticsStore) GetBetween(ctx context.Context, sensor *models.Sensor, start, end time.Time) ([]models.SensorStatisticsEntry, error) {
	return s.find(ctx, statisticsRangeFilter([]primitive.ObjectID{sensor.ID}, start, end), "GetBetween")
}

// GetBetweenMany implements storage.StatisticsStore
func (s *StatisticsStore) GetBetweenMany(ctx context.Context, sensors []models.Sensor, start, end time.Time) ([]models.SensorStatisticsEntry, error) {
	return s.find(ctx, statisticsRangeFilter(sensorIDs(sensors), start, end), "GetBetweenMany")
}

// DeleteBySensor implements storage.StatisticsStore
func (s *StatisticsStore) DeleteBySensor(ctx context.Context, sensor *models.Sensor) error {
	if _, err := s.col.DeleteMany(ctx, bson.M{"sensorId": sensor.ID}); err != nil {
		return errors.WrapStorage(err, StatisticsCollection, "DeleteBySensor", "delete")
	}
	return nil
}

// DeleteBySensorBetween implements storage.StatisticsStore
func (s *StatisticsStore) DeleteBySensorBetween(ctx context.Context, sensor *models.Sensor, from, to time.Time) error {
	filter := statisticsRangeFilter([]primitive.ObjectID{sensor.ID}, from, to)
	if _, err := s.col.DeleteMany(ctx, filter); err != nil {
		return errors.WrapStorage(err, StatisticsCollection, "DeleteBySensorBetween", "delete")
	}
	return nil
}

func (s *StatisticsStore) find(ctx context.Context, filter bson.M, op string) ([]models.SensorStatisticsEntry, error) {
	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, errors.WrapStorage(err, StatisticsCollection, op, "find")
	}

	var entries []models.SensorStatisticsEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, errors.WrapStorage(err, StatisticsCollection, op, "decode")
	}
	return entries, nil
}

// incrementFilter is the natural-key match of the upsert-increment. Its
// equality conditions double as the field values of a freshly inserted
// bucket.
func incrementFilter(sensorID primitive.ObjectID, date time.Time, method models.RequestMethod) bson.M {
	return bson.M{
		"sensorId": sensorID,
		"date":     date,
		"method":   method,
	}
}

// incrementUpdate bumps the counter and assigns the surrogate ID on insert.
func incrementUpdate(id primitive.ObjectID, count int64) bson.M {
	return bson.M{
		"$inc":         bson.M{"measurements": count},
		"$setOnInsert": bson.M{"_id": id},
	}
}

// statisticsRangeFilter matches buckets in the hour-truncated inclusive range.
func statisticsRangeFilter(ids []primitive.ObjectID, start, end time.Time) bson.M {
	filter := bson.M{
		"date": bson.M{
			"$gte": timeutil.ThisHour(start),
			"$lte": timeutil.ThisHour(end),
		},
	}
	if len(ids) == 1 {
		filter["sensorId"] = ids[0]
	} else {
		filter["sensorId"] = bson.M{"$in": ids}
	}
	return filter
}
