package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Sensor is the external entity that owns measurements and statistics.
// Its full lifecycle lives outside this core; only the identifier and the
// shared secret used to authenticate inbound submissions matter here.
type Sensor struct {
	ID     primitive.ObjectID `bson:"_id" json:"id"`
	Secret string             `bson:"secret" json:"secret"`
}
