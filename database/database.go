package database

import (
	"context"
	"time"

	"github.com/SkynetLabs/bootstrapper/bootstrap"
	"github.com/sirupsen/logrus"
	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/SkynetLabs/skyd/build"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	// codeNamespaceNotFound is returned when listing the indexes of a missing
	// collection.
	codeNamespaceNotFound = 26
	// codeNamespaceExists is returned when creating an existing collection.
	codeNamespaceExists = 48
	// codeIndexOptionsConflict is returned when an index with the same keys
	// but different options exists.
	codeIndexOptionsConflict = 85
	// codeIndexKeySpecsConflict is returned when an index with the same name
	// but different keys exists.
	codeIndexKeySpecsConflict = 86
	// codeRoleAlreadyExists is returned when creating an existing role.
	codeRoleAlreadyExists = 51002
)

var (
	// serverSelectionTimeout is the time we wait for a suitable server
	// before giving up on a command.
	serverSelectionTimeout = build.Select(build.Var{
		Standard: 30 * time.Second,
		Dev:      10 * time.Second,
		Testing:  5 * time.Second,
	}).(time.Duration)
)

type (
	// Health contains health information about the store. If everything is
	// ok all fields are 'nil'. Otherwise, the corresponding fields will
	// contain an error.
	Health struct {
		Database error
	}

	// DB is a wrapper around a database client. It implements
	// bootstrap.Store.
	DB struct {
		staticClient *mongo.Client
		staticCtx    context.Context
		staticLogger *logrus.Entry
	}
)

var _ bootstrap.Store = (*DB)(nil)

// New connects to the store at uri with the given admin credentials.
func New(ctx context.Context, log *logrus.Entry, uri, username, password string) (*DB, error) {
	client, err := connect(ctx, uri, username, password)
	if err != nil {
		return nil, err
	}
	return &DB{
		staticClient: client,
		staticCtx:    ctx,
		staticLogger: log,
	}, nil
}

// connect creates a new client that is connected to a mongodb. We ping the
// primary before returning since mongo.Connect doesn't talk to the server.
func connect(ctx context.Context, uri, username, password string) (*mongo.Client, error) {
	creds := options.Credential{
		Username: username,
		Password: password,
	}
	opts := options.Client().
		ApplyURI(uri).
		SetAuth(creds).
		SetServerSelectionTimeout(serverSelectionTimeout).
		SetReadConcern(readconcern.Majority()).
		SetReadPreference(readpref.Primary()).
		SetWriteConcern(writeconcern.New(writeconcern.WMajority()))

	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Compose(bootstrap.ErrConnection, err)
	}
	if err := c.Ping(ctx, readpref.Primary()); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, errors.Compose(bootstrap.ErrConnection, errors.AddContext(err, "failed to ping primary"))
	}
	return c, nil
}

// Close gracefully shuts down the DB.
func (db *DB) Close() error {
	return db.staticClient.Disconnect(context.Background())
}

// Health returns some health information about the store.
func (db *DB) Health() Health {
	return Health{
		Database: db.staticClient.Ping(db.staticCtx, readpref.Primary()),
	}
}

// classify marks errors caused by an unreachable store with
// bootstrap.ErrConnection. Other errors are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || err == mongo.ErrClientDisconnected {
		return errors.Compose(bootstrap.ErrConnection, err)
	}
	return err
}

// hasErrorCode returns true if err is a server error with the given code.
func hasErrorCode(err error, code int) bool {
	se, ok := err.(mongo.ServerError)
	return ok && se.HasErrorCode(code)
}
