package test

import (
	"context"
	"strings"
	"testing"

	"github.com/SkynetLabs/bootstrapper/bootstrap"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// testDatabases returns the default configuration with names unique to the
// test.
func testDatabases(t *testing.T) []bootstrap.LogicalDatabase {
	dbs := bootstrap.DefaultConfiguration("orderpass", "menupass")
	prefix := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	for i := range dbs {
		dbs[i].Name = prefix + "_" + dbs[i].Name
	}
	return dbs
}

// dropDatabases removes the databases and users of dbs. The bootstrapper
// never deletes anything, so we talk to the store directly.
func dropDatabases(t *testing.T, dbs []bootstrap.LogicalDatabase) {
	ctx := context.Background()
	opts := options.Client().
		ApplyURI("mongodb://localhost:37017").
		SetAuth(options.Credential{Username: "admin", Password: "aO4tV5tC1oU3oQ7u"})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = client.Disconnect(ctx)
	}()
	for _, ldb := range dbs {
		mdb := client.Database(ldb.Name)
		if err := mdb.RunCommand(ctx, bson.D{{"dropAllUsersFromDatabase", 1}}).Err(); err != nil {
			t.Error(err)
		}
		if err := mdb.Drop(ctx); err != nil {
			t.Error(err)
		}
	}
}

// TestBootstrapIdempotent runs the bootstrap twice through the API.
func TestBootstrapIdempotent(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	dbs := testDatabases(t)
	defer dropDatabases(t, dbs)

	tester, err := newTester(dbs)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := tester.Close(); err != nil {
			t.Fatal(err)
		}
	}()

	hg, err := tester.Health()
	if err != nil {
		t.Fatal(err)
	}
	if !hg.DBAlive {
		t.Fatal("db not alive")
	}

	rg, err := tester.Report()
	if err != nil {
		t.Fatal(err)
	}
	if !rg.OK || len(rg.Databases) != 2 {
		t.Fatal("bootstrap failed", rg)
	}
	for i, dr := range rg.Databases {
		if !dr.CreatedCredential || len(dr.CreatedIndexes) != len(dbs[i].Indexes) {
			t.Fatal("unexpected first run", dr)
		}
	}

	rg, err = tester.Bootstrap()
	if err != nil {
		t.Fatal(err)
	}
	if !rg.OK {
		t.Fatal("second bootstrap failed", rg)
	}
	for _, dr := range rg.Databases {
		if dr.CreatedCredential || len(dr.CreatedIndexes) > 0 || len(dr.CreatedCollections) > 0 {
			t.Fatal("second run wrote to the store", dr)
		}
	}

	sg, err := tester.Stats(dbs[0].Name, "orders")
	if err != nil {
		t.Fatal(err)
	}
	// 5 declared indexes plus _id.
	if sg.Indexes != 6 {
		t.Fatal("unexpected number of indexes", sg)
	}
}

// TestBootstrapConflicts changes a provisioned configuration.
func TestBootstrapConflicts(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	dbs := testDatabases(t)
	defer dropDatabases(t, dbs)

	tester, err := newTester(dbs)
	if err != nil {
		t.Fatal(err)
	}
	if err := tester.Close(); err != nil {
		t.Fatal(err)
	}

	// Narrow the orders credential and make a menu index unique.
	dbs[0].Credential.Permissions = bootstrap.Permissions{bootstrap.PermissionRead}
	dbs[1].Indexes[0].Unique = true
	tester, err = newTester(dbs)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := tester.Close(); err != nil {
			t.Fatal(err)
		}
	}()
	rg, err := tester.Report()
	if err != nil {
		t.Fatal(err)
	}
	if rg.OK || rg.ExitCode != bootstrap.ExitConflict {
		t.Fatal("expected conflicts", rg)
	}
	if kind := rg.Databases[0].Kind; kind != bootstrap.KindCredentialConflict {
		t.Fatal("unexpected kind", kind)
	}
	if kind := rg.Databases[1].Kind; kind != bootstrap.KindIndexConflict {
		t.Fatal("unexpected kind", kind)
	}

	// Make sure the stored permissions are unchanged.
	roles, exists, err := tester.staticDB.UserRoles(context.Background(), dbs[0].Name, dbs[0].Credential.Username)
	if err != nil {
		t.Fatal(err)
	}
	if !exists || len(roles) != 1 || roles[0].Name != bootstrap.RoleReadWrite {
		t.Fatal("roles changed", roles)
	}
}
