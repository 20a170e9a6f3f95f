package bootstrap

import "context"

// Store is the capability set of the underlying data store the bootstrap
// needs. Every method is scoped to a single database and must return an error
// containing ErrConnection if the store can't be reached.
type Store interface {
	// EnsureCollections creates the collections of database that don't exist
	// yet and returns the ones it created.
	EnsureCollections(ctx context.Context, database string, collections []string) ([]string, error)

	// UserRoles returns the roles of the user with the given name defined on
	// database. The boolean is false if no such user exists.
	UserRoles(ctx context.Context, database, username string) ([]Role, bool, error)

	// CreateUser creates a user on database holding exactly roles.
	CreateUser(ctx context.Context, database, username, secret string, roles []Role) error

	// Indexes lists the indexes of a collection. A missing collection has no
	// indexes.
	Indexes(ctx context.Context, database, collection string) ([]Index, error)

	// CreateIndex creates an index on a collection.
	CreateIndex(ctx context.Context, database, collection string, index Index) error
}
