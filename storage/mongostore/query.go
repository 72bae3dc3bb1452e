package mongostore

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/sensorstore/storage"
)

// toFilter translates the typed query expression tree into a native MongoDB
// filter document. The tree is validated first, so translation itself cannot
// encounter a malformed node.
func toFilter(q *storage.Query) (bson.M, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return translate(q), nil
}

func translate(q *storage.Query) bson.M {
	switch q.Kind {
	case storage.KindEq:
		return bson.M{q.Field: q.Value}
	case storage.KindGte:
		return bson.M{q.Field: bson.M{"$gte": q.Value}}
	case storage.KindLte:
		return bson.M{q.Field: bson.M{"$lte": q.Value}}
	case storage.KindIn:
		return bson.M{q.Field: bson.M{"$in": q.Values}}
	case storage.KindAnd:
		children := make([]bson.M, len(q.Children))
		for i, child := range q.Children {
			children[i] = translate(child)
		}
		return bson.M{"$and": children}
	default:
		// Unreachable after Validate.
		return bson.M{}
	}
}
