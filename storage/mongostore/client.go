package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/c360/sensorstore/errors"
)

// Collection names managed by this package.
const (
	MeasurementsCollection = "measurements"
	StatisticsCollection   = "sensor_statistics"
	SensorsCollection      = "sensors"
)

// Connect dials MongoDB, verifies the connection, and returns a handle to
// the platform database. The returned database's client is process-wide and
// safe for concurrent use.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.WrapStorage(err, "mongostore", "Connect", "dial")
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.WrapStorage(errors.ErrStorageUnavailable, "mongostore", "Connect", "ping")
	}

	return client.Database(database), nil
}

// EnsureIndexes creates the indexes both collections rely on:
//
//   - measurements: (sensorId, createdAt) for per-sensor range scans and a
//     2dsphere index on the GeoJSON mirror for proximity queries
//   - sensor_statistics: a unique index on the (sensorId, date, method)
//     natural key, which also backstops the upsert-increment's uniqueness
//
// Index creation is idempotent; calling it on every startup is fine.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	measurementIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "sensorId", Value: 1}, {Key: "createdAt", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
			Options: options.Index().SetSparse(true),
		},
	}
	if _, err := db.Collection(MeasurementsCollection).Indexes().CreateMany(ctx, measurementIndexes); err != nil {
		return errors.WrapStorage(err, MeasurementsCollection, "EnsureIndexes", "create indexes")
	}

	statisticsIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sensorId", Value: 1}, {Key: "date", Value: 1}, {Key: "method", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection(StatisticsCollection).Indexes().CreateMany(ctx, statisticsIndexes); err != nil {
		return errors.WrapStorage(err, StatisticsCollection, "EnsureIndexes", "create indexes")
	}

	return nil
}
