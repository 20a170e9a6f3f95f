package database

import (
	"context"
	"fmt"

	"github.com/SkynetLabs/bootstrapper/bootstrap"
	"gitlab.com/NebulousLabs/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ignoredIndexOptions are the fields of a listIndexes document that don't
// change how an index behaves.
var ignoredIndexOptions = map[string]struct{}{
	"v":          {},
	"ns":         {},
	"background": {},
}

// Indexes lists the indexes of a collection.
func (db *DB) Indexes(ctx context.Context, database, collection string) ([]bootstrap.Index, error) {
	c, err := db.staticClient.Database(database).Collection(collection).Indexes().List(ctx)
	if hasErrorCode(err, codeNamespaceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	var docs []bson.D
	if err := c.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}
	indexes := make([]bootstrap.Index, 0, len(docs))
	for _, doc := range docs {
		indexes = append(indexes, indexFromDoc(doc))
	}
	return indexes, nil
}

// CreateIndex creates an index on a collection. Conflicting indexes created
// since the caller listed the indexes are reported as
// bootstrap.ErrIndexConflict.
func (db *DB) CreateIndex(ctx context.Context, database, collection string, index bootstrap.Index) error {
	model := mongo.IndexModel{
		Keys:    indexKeys(index.Fields),
		Options: options.Index().SetName(index.Name),
	}
	if index.Unique {
		model.Options.SetUnique(true)
	}
	if index.Sparse {
		model.Options.SetSparse(true)
	}
	_, err := db.staticClient.Database(database).Collection(collection).Indexes().CreateOne(ctx, model)
	if hasErrorCode(err, codeIndexOptionsConflict) || hasErrorCode(err, codeIndexKeySpecsConflict) {
		return errors.Compose(bootstrap.ErrIndexConflict, err)
	}
	return classify(err)
}

// indexKeys converts index fields into an ordered key document.
func indexKeys(fields []bootstrap.IndexField) bson.D {
	keys := make(bson.D, 0, len(fields))
	for _, f := range fields {
		var v interface{}
		switch f.Direction {
		case bootstrap.DirectionDesc:
			v = -1
		case bootstrap.DirectionHashed:
			v = "hashed"
		default:
			v = 1
		}
		keys = append(keys, bson.E{Key: f.Path, Value: v})
	}
	return keys
}

// indexFromDoc converts a listIndexes document into a bootstrap.Index. Every
// field besides name, key, unique and sparse that changes how the index
// behaves ends up in its options.
func indexFromDoc(doc bson.D) bootstrap.Index {
	var idx bootstrap.Index
	for _, e := range doc {
		switch e.Key {
		case "name":
			idx.Name = fmt.Sprint(e.Value)
		case "key":
			keys, _ := e.Value.(bson.D)
			for _, k := range keys {
				idx.Fields = append(idx.Fields, bootstrap.IndexField{Path: k.Key, Direction: direction(k.Value)})
			}
		case "unique":
			idx.Unique = truthy(e.Value)
		case "sparse":
			idx.Sparse = truthy(e.Value)
		case "hidden":
			if truthy(e.Value) {
				setOption(&idx, e.Key, e.Value)
			}
		default:
			if _, ok := ignoredIndexOptions[e.Key]; !ok {
				setOption(&idx, e.Key, e.Value)
			}
		}
	}
	return idx
}

// setOption records an option of an existing index. Documents such as a
// partialFilterExpression are rendered as relaxed extended JSON.
func setOption(idx *bootstrap.Index, name string, v interface{}) {
	if idx.Options == nil {
		idx.Options = make(map[string]string)
	}
	value := fmt.Sprint(v)
	if d, ok := v.(bson.D); ok {
		if b, err := bson.MarshalExtJSON(d, false, false); err == nil {
			value = string(b)
		}
	}
	idx.Options[name] = value
}

// truthy interprets a boolean index option. Old servers store some of them
// as numbers.
func truthy(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int32:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	}
	return false
}

// direction converts the value of an index key into a direction. Key types
// we never create, e.g. "text", are kept verbatim so they never compare equal
// to a declared index.
func direction(v interface{}) bootstrap.Direction {
	var n float64
	switch val := v.(type) {
	case int:
		n = float64(val)
	case int32:
		n = float64(val)
	case int64:
		n = float64(val)
	case float64:
		n = val
	case string:
		return bootstrap.Direction(val)
	default:
		return bootstrap.Direction(fmt.Sprint(val))
	}
	if n < 0 {
		return bootstrap.DirectionDesc
	}
	return bootstrap.DirectionAsc
}
