package bootstrap

import (
	"context"
	"fmt"

	"gitlab.com/NebulousLabs/errors"
)

// EnsureCredential makes sure a user scoped to database exists with exactly
// the credential's permissions. It returns true if it created the user. An
// existing user with different roles results in ErrCredentialConflict and is
// left untouched.
func EnsureCredential(ctx context.Context, store Store, database string, cred ServiceCredential) (bool, error) {
	if err := cred.Validate(); err != nil {
		return false, err
	}
	want := cred.Permissions.Roles(database)
	have, exists, err := store.UserRoles(ctx, database, cred.Username)
	if err != nil {
		return false, errors.AddContext(err, fmt.Sprintf("failed to look up user %q", cred.Username))
	}
	if exists {
		if !sameRoles(have, want) {
			return false, errors.AddContext(ErrCredentialConflict,
				fmt.Sprintf("user %q on %q has roles %v but %v are declared", cred.Username, database, have, want))
		}
		return false, nil
	}
	err = store.CreateUser(ctx, database, cred.Username, cred.Secret, want)
	if err != nil {
		return false, errors.AddContext(err, fmt.Sprintf("failed to create user %q", cred.Username))
	}
	return true, nil
}
