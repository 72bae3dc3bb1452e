package cachedstore

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/c360/sensorstore/models"
	"github.com/c360/sensorstore/storage"
)

// Query-shape labels, used both as key prefixes and as metric labels.
const (
	shapeByID     = "by_id"
	shapeBySensor = "by_sensor"
	shapeBetween  = "between"
	shapeNear     = "near"
	shapeAdHoc    = "ad_hoc"
)

func idKey(id primitive.ObjectID) string {
	return shapeByID + "::" + id.Hex()
}

func sensorKey(sensorID primitive.ObjectID, skip, limit int64) string {
	return fmt.Sprintf("%s::%s::%d::%d", shapeBySensor, sensorID.Hex(), skip, limit)
}

func betweenKey(sensorID primitive.ObjectID, start, end time.Time, opts storage.QueryOptions) string {
	return fmt.Sprintf("%s::%s::%s::%s::%s",
		shapeBetween, sensorID.Hex(), timeKey(start), timeKey(end), optsKey(opts))
}

func nearKey(sensorID primitive.ObjectID, start, end time.Time, coords models.GeoCoordinates, max int64, opts storage.QueryOptions) string {
	return fmt.Sprintf("%s::%s::%s::%s::%g::%g::%d::%s",
		shapeNear, sensorID.Hex(), timeKey(start), timeKey(end),
		coords.Longitude, coords.Latitude, max, optsKey(opts))
}

// timeKey normalizes to UTC so the same instant always yields the same key.
func timeKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func optsKey(opts storage.QueryOptions) string {
	return fmt.Sprintf("%d::%d::%d", opts.Skip, opts.Limit, opts.Order)
}
