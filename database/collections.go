package database

import (
	"context"
	"fmt"

	"gitlab.com/NebulousLabs/errors"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	// ErrCollectionNotFound is returned when asking for the statistics of a
	// collection that doesn't exist.
	ErrCollectionNotFound = errors.New("collection not found")
)

// CollectionStats are the storage statistics of a single collection.
type CollectionStats struct {
	Count       int64 `bson:"count"`
	Size        int64 `bson:"size"`
	StorageSize int64 `bson:"storageSize"`
	Indexes     int64 `bson:"nindexes"`
	Sharded     bool  `bson:"sharded"`
}

// EnsureCollections creates the collections of database that don't exist
// yet. A database exists as soon as it holds a collection, so this also
// creates the database. Collections created concurrently by someone else are
// not reported.
func (db *DB) EnsureCollections(ctx context.Context, database string, collections []string) ([]string, error) {
	if len(collections) == 0 {
		return nil, nil
	}
	mdb := db.staticClient.Database(database)
	names, err := mdb.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, classify(err)
	}
	existing := make(map[string]struct{}, len(names))
	for _, name := range names {
		existing[name] = struct{}{}
	}
	var created []string
	for _, coll := range collections {
		if _, ok := existing[coll]; ok {
			continue
		}
		err := mdb.CreateCollection(ctx, coll)
		if hasErrorCode(err, codeNamespaceExists) {
			continue
		}
		if err != nil {
			return created, classify(err)
		}
		created = append(created, coll)
	}
	return created, nil
}

// CollectionStats returns the storage statistics of a collection. A missing
// collection is reported as ErrCollectionNotFound.
func (db *DB) CollectionStats(ctx context.Context, database, collection string) (CollectionStats, error) {
	mdb := db.staticClient.Database(database)
	// Newer servers report empty statistics for missing collections instead
	// of failing.
	names, err := mdb.ListCollectionNames(ctx, bson.D{{"name", collection}})
	if err != nil {
		return CollectionStats{}, classify(err)
	}
	if len(names) == 0 {
		return CollectionStats{}, collectionNotFound(database, collection, nil)
	}
	var stats CollectionStats
	cmd := bson.D{{"collStats", collection}}
	err = mdb.RunCommand(ctx, cmd).Decode(&stats)
	if err != nil {
		return CollectionStats{}, collStatsError(database, collection, err)
	}
	return stats, nil
}

// collStatsError classifies an error returned by collStats.
func collStatsError(database, collection string, err error) error {
	if hasErrorCode(err, codeNamespaceNotFound) {
		return collectionNotFound(database, collection, err)
	}
	return classify(err)
}

// collectionNotFound returns ErrCollectionNotFound for the collection.
func collectionNotFound(database, collection string, err error) error {
	return errors.AddContext(errors.Compose(ErrCollectionNotFound, err), fmt.Sprintf("%s.%s", database, collection))
}
