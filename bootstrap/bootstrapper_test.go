package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/NebulousLabs/errors"
)

// ordersScenario returns orders_db with two single field indexes.
func ordersScenario() LogicalDatabase {
	return LogicalDatabase{
		Name: DBOrders,
		Credential: ServiceCredential{
			Username:    "orderservice",
			Secret:      "orderpass",
			Permissions: Permissions{PermissionRead, PermissionWrite},
		},
		Indexes: []IndexSpec{
			asc("orders", "user_id"),
			asc("orders", "status"),
		},
	}
}

// TestBootstrap tests provisioning a database and re-running the bootstrap.
func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	b := NewBootstrapper(store, newTestLogger(), nil)
	ldb := ordersScenario()

	res := b.Bootstrap(ctx, ldb)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"orders"}, res.CreatedCollections)
	assert.True(t, res.CreatedCredential)
	assert.Equal(t, []string{"user_id_1", "status_1"}, res.CreatedIndexes)
	assert.Equal(t, 4, res.Writes())
	assert.Equal(t, 4, store.writes)
	assert.Equal(t, []Role{{Name: RoleReadWrite, DB: DBOrders}}, store.users[DBOrders]["orderservice"])
	assert.Len(t, store.collections[DBOrders]["orders"], 3)

	// Re-running performs no writes and leaves identical state.
	users := store.users[DBOrders]["orderservice"]
	indexes := store.collections[DBOrders]["orders"]
	res = b.Bootstrap(ctx, ldb)
	require.NoError(t, res.Err)
	assert.Zero(t, res.Writes())
	assert.Equal(t, 4, store.writes)
	assert.Equal(t, users, store.users[DBOrders]["orderservice"])
	assert.Equal(t, indexes, store.collections[DBOrders]["orders"])

	// Adding an index only creates the new one.
	ldb.Indexes = append(ldb.Indexes, desc("orders", "timestamps.created"))
	res = b.Bootstrap(ctx, ldb)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"timestamps.created_-1"}, res.CreatedIndexes)
	assert.Equal(t, 1, res.Writes())
}

// TestBootstrapNoIndexes tests a database without indexes.
func TestBootstrapNoIndexes(t *testing.T) {
	store := newMemoryStore()
	b := NewBootstrapper(store, newTestLogger(), nil)
	ldb := ordersScenario()
	ldb.Indexes = nil

	res := b.Bootstrap(context.Background(), ldb)
	require.NoError(t, res.Err)
	assert.Empty(t, res.CreatedCollections)
	assert.True(t, res.CreatedCredential)
}

// TestBootstrapCredentialConflict makes sure a changed credential fails the
// database and skips index creation.
func TestBootstrapCredentialConflict(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	b := NewBootstrapper(store, newTestLogger(), nil)
	ldb := ordersScenario()
	ldb.Indexes = ldb.Indexes[:1]
	require.NoError(t, b.Bootstrap(ctx, ldb).Err)

	ldb.Credential.Permissions = Permissions{PermissionRead}
	ldb.Indexes = append(ldb.Indexes, asc("orders", "status"))
	res := b.Bootstrap(ctx, ldb)
	assert.True(t, errors.Contains(res.Err, ErrCredentialConflict), res.Err)
	assert.Equal(t, StepCredential, res.Step)
	assert.Empty(t, res.CreatedIndexes)
	assert.Len(t, store.collections[DBOrders]["orders"], 2)
	assert.Equal(t, []Role{{Name: RoleReadWrite, DB: DBOrders}}, store.users[DBOrders]["orderservice"])
}

// TestBootstrapIndexConflict tests existing indexes that differ from the
// declared ones.
func TestBootstrapIndexConflict(t *testing.T) {
	tests := []struct {
		name     string
		existing Index
	}{
		{
			name:     "same fields, unique",
			existing: Index{Name: "user_id_1", Fields: []IndexField{{"user_id", DirectionAsc}}, Unique: true},
		},
		{
			name:     "same fields, other name",
			existing: Index{Name: "by_user", Fields: []IndexField{{"user_id", DirectionAsc}}},
		},
		{
			name:     "same name, other fields",
			existing: Index{Name: "user_id_1", Fields: []IndexField{{"user_id", DirectionDesc}}},
		},
		{
			name: "same fields, partial",
			existing: Index{
				Name:    "user_id_1",
				Fields:  []IndexField{{"user_id", DirectionAsc}},
				Options: map[string]string{"partialFilterExpression": `{"status": "open"}`},
			},
		},
		{
			name: "same fields, ttl",
			existing: Index{
				Name:    "user_id_1",
				Fields:  []IndexField{{"user_id", DirectionAsc}},
				Options: map[string]string{"expireAfterSeconds": "3600"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			store.collections[DBOrders] = map[string][]Index{"orders": {tt.existing}}
			b := NewBootstrapper(store, newTestLogger(), nil)

			res := b.Bootstrap(context.Background(), ordersScenario())
			assert.True(t, errors.Contains(res.Err, ErrIndexConflict), res.Err)
			assert.Equal(t, StepIndex, res.Step)
			assert.Equal(t, "user_id_1", res.Index)
			// The remaining index was never created.
			assert.Empty(t, res.CreatedIndexes)
			assert.Len(t, store.collections[DBOrders]["orders"], 1)
		})
	}
}

// TestBootstrapInvalid makes sure an invalid database never reaches the
// store.
func TestBootstrapInvalid(t *testing.T) {
	store := newMemoryStore()
	b := NewBootstrapper(store, newTestLogger(), nil)
	ldb := ordersScenario()
	ldb.Indexes = append(ldb.Indexes, asc("orders", "user_id"))

	res := b.Bootstrap(context.Background(), ldb)
	assert.True(t, errors.Contains(res.Err, ErrConfiguration), res.Err)
	assert.Equal(t, StepValidate, res.Step)
	assert.Zero(t, store.calls)
}

// TestBootstrapUnreachable tests a store that can't be reached.
func TestBootstrapUnreachable(t *testing.T) {
	store := newMemoryStore()
	store.unreachable[DBOrders] = true
	b := NewBootstrapper(store, newTestLogger(), nil)

	res := b.Bootstrap(context.Background(), ordersScenario())
	assert.True(t, errors.Contains(res.Err, ErrConnection), res.Err)
	assert.Equal(t, StepDatabase, res.Step)
	assert.Equal(t, KindConnection, Kind(res.Err))
}
