package database

import (
	"context"

	"github.com/SkynetLabs/bootstrapper/bootstrap"
	"gitlab.com/NebulousLabs/errors"
	"go.mongodb.org/mongo-driver/bson"
)

type (
	// roleDoc is a role assignment as returned by usersInfo.
	roleDoc struct {
		Role string `bson:"role"`
		DB   string `bson:"db"`
	}

	// usersInfo is the response of the usersInfo command.
	usersInfo struct {
		Users []struct {
			User  string    `bson:"user"`
			DB    string    `bson:"db"`
			Roles []roleDoc `bson:"roles"`
		} `bson:"users"`
	}

	// rolesInfo is the response of the rolesInfo command.
	rolesInfo struct {
		Roles []struct {
			Role string `bson:"role"`
			DB   string `bson:"db"`
		} `bson:"roles"`
	}
)

// writeOnlyActions are the privileges of bootstrap.RoleWriteOnly.
var writeOnlyActions = bson.A{"insert", "update", "remove"}

// UserRoles returns the roles of a user defined on database.
func (db *DB) UserRoles(ctx context.Context, database, username string) ([]bootstrap.Role, bool, error) {
	cmd := bson.D{{"usersInfo", bson.D{{"user", username}, {"db", database}}}}
	var info usersInfo
	err := db.staticClient.Database(database).RunCommand(ctx, cmd).Decode(&info)
	if err != nil {
		return nil, false, classify(err)
	}
	for _, u := range info.Users {
		if u.User != username || u.DB != database {
			continue
		}
		roles := make([]bootstrap.Role, 0, len(u.Roles))
		for _, r := range u.Roles {
			roles = append(roles, bootstrap.Role{Name: r.Role, DB: r.DB})
		}
		return roles, true, nil
	}
	return nil, false, nil
}

// CreateUser creates a user on database. The custom write-only role is
// defined first if the user needs it.
func (db *DB) CreateUser(ctx context.Context, database, username, secret string, roles []bootstrap.Role) error {
	docs := bson.A{}
	for _, r := range roles {
		if r.Name == bootstrap.RoleWriteOnly {
			if err := db.ensureWriteOnlyRole(ctx, r.DB); err != nil {
				return errors.AddContext(err, "failed to create write-only role")
			}
		}
		docs = append(docs, bson.D{{"role", r.Name}, {"db", r.DB}})
	}
	cmd := bson.D{
		{"createUser", username},
		{"pwd", secret},
		{"roles", docs},
	}
	err := db.staticClient.Database(database).RunCommand(ctx, cmd).Err()
	if err != nil {
		return classify(err)
	}
	db.staticLogger.WithField("database", database).WithField("user", username).Debug("Created user")
	return nil
}

// ensureWriteOnlyRole defines bootstrap.RoleWriteOnly on database. The role
// only grants privileges on database itself.
func (db *DB) ensureWriteOnlyRole(ctx context.Context, database string) error {
	mdb := db.staticClient.Database(database)
	var info rolesInfo
	cmd := bson.D{{"rolesInfo", bson.D{{"role", bootstrap.RoleWriteOnly}, {"db", database}}}}
	if err := mdb.RunCommand(ctx, cmd).Decode(&info); err != nil {
		return classify(err)
	}
	if len(info.Roles) > 0 {
		return nil
	}
	cmd = bson.D{
		{"createRole", bootstrap.RoleWriteOnly},
		{"privileges", bson.A{
			bson.D{
				{"resource", bson.D{{"db", database}, {"collection", ""}}},
				{"actions", writeOnlyActions},
			},
		}},
		{"roles", bson.A{}},
	}
	err := mdb.RunCommand(ctx, cmd).Err()
	if hasErrorCode(err, codeRoleAlreadyExists) {
		return nil
	}
	return classify(err)
}
