package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/c360/sensorstore/errors"
	"github.com/c360/sensorstore/models"
)

// SensorResolver looks sensors up in the sensors collection. The sensor
// registry itself is owned by another service; this package only reads it to
// authenticate inbound submissions.
type SensorResolver struct {
	col *mongo.Collection
}

// NewSensorResolver creates a resolver over the sensors collection.
func NewSensorResolver(db *mongo.Database) *SensorResolver {
	return &SensorResolver{col: db.Collection(SensorsCollection)}
}

// Resolve returns the sensor with the given ID. An unknown sensor is an
// invalid-submission error, not a storage failure.
func (r *SensorResolver) Resolve(ctx context.Context, id primitive.ObjectID) (*models.Sensor, error) {
	var sensor models.Sensor
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&sensor)
	if err == mongo.ErrNoDocuments {
		return nil, errors.WrapInvalid(errors.ErrMissingSensor, SensorsCollection, "Resolve", "find sensor")
	}
	if err != nil {
		return nil, errors.WrapStorage(err, SensorsCollection, "Resolve", "find sensor")
	}
	return &sensor, nil
}
