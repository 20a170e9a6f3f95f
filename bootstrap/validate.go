package bootstrap

import (
	"fmt"
	"strings"

	"gitlab.com/NebulousLabs/errors"
)

const (
	// MinSecretLength is the minimum length of a credential's secret.
	MinSecretLength = 8

	// maxDatabaseNameLength is the longest database name the server accepts.
	maxDatabaseNameLength = 63

	// invalidDatabaseNameChars are the characters the server rejects in
	// database names.
	invalidDatabaseNameChars = "/\\. \"$*<>:|?"
)

// configErr returns an ErrConfiguration with the given context.
func configErr(format string, args ...interface{}) error {
	return errors.AddContext(ErrConfiguration, fmt.Sprintf(format, args...))
}

// Validate checks the permission set. It must be a non-empty subset of
// {read, write}.
func (ps Permissions) Validate() error {
	if len(ps) == 0 {
		return configErr("no permissions")
	}
	for _, p := range ps {
		if p != PermissionRead && p != PermissionWrite {
			return configErr("unknown permission %q", p)
		}
	}
	return nil
}

// Validate checks that the credential is well-formed.
func (c ServiceCredential) Validate() error {
	if c.Username == "" {
		return configErr("missing username")
	}
	if len(c.Secret) < MinSecretLength {
		return configErr("secret of user %q is shorter than %d characters", c.Username, MinSecretLength)
	}
	return errors.AddContext(c.Permissions.Validate(), fmt.Sprintf("user %q", c.Username))
}

// Validate checks that the index spec is well-formed.
func (s IndexSpec) Validate() error {
	if err := validateCollectionName(s.Collection); err != nil {
		return err
	}
	if len(s.Fields) == 0 {
		return configErr("index on %q has no fields", s.Collection)
	}
	paths := make(map[string]struct{}, len(s.Fields))
	hashed := 0
	for _, f := range s.Fields {
		if f.Path == "" {
			return configErr("index on %q has an empty field path", s.Collection)
		}
		if _, ok := paths[f.Path]; ok {
			return configErr("index on %q uses field %q twice", s.Collection, f.Path)
		}
		paths[f.Path] = struct{}{}
		switch f.Direction {
		case DirectionAsc, DirectionDesc:
		case DirectionHashed:
			hashed++
		default:
			return configErr("field %q of index on %q has unknown direction %q", f.Path, s.Collection, f.Direction)
		}
	}
	if hashed > 1 {
		return configErr("index on %q has more than one hashed field", s.Collection)
	}
	if hashed > 0 && s.Unique {
		return configErr("hashed index on %q can't be unique", s.Collection)
	}
	return nil
}

// Validate checks the whole logical database: its name, its credential and
// its indexes. Two indexes on the same collection must neither share their
// field sequence nor their name.
func (ldb LogicalDatabase) Validate() error {
	if err := validateDatabaseName(ldb.Name); err != nil {
		return err
	}
	if err := ldb.Credential.Validate(); err != nil {
		return errors.AddContext(err, "invalid credential")
	}
	for i, spec := range ldb.Indexes {
		if err := spec.Validate(); err != nil {
			return errors.AddContext(err, fmt.Sprintf("invalid index #%d", i))
		}
		idx := spec.Index()
		for _, prev := range ldb.Indexes[:i] {
			if prev.Collection != spec.Collection {
				continue
			}
			prevIdx := prev.Index()
			if prevIdx.SameFields(idx) {
				return configErr("duplicate index %v on %q", idx, spec.Collection)
			}
			if prevIdx.Name == idx.Name {
				return configErr("index name %q used twice on %q", idx.Name, spec.Collection)
			}
		}
	}
	return nil
}

// ValidateConfiguration checks the parts of a configuration that span
// multiple logical databases. Every database needs a distinct name.
// Individual databases are validated when they are bootstrapped so that one
// broken entry doesn't block the others.
func ValidateConfiguration(dbs []LogicalDatabase) error {
	if len(dbs) == 0 {
		return configErr("no logical databases configured")
	}
	names := make(map[string]struct{}, len(dbs))
	for _, ldb := range dbs {
		if _, ok := names[ldb.Name]; ok {
			return configErr("database %q is declared twice", ldb.Name)
		}
		names[ldb.Name] = struct{}{}
	}
	return nil
}

// validateDatabaseName checks a name against the server's naming rules.
func validateDatabaseName(name string) error {
	if name == "" {
		return configErr("missing database name")
	}
	if len(name) > maxDatabaseNameLength {
		return configErr("database name %q is longer than %d characters", name, maxDatabaseNameLength)
	}
	if strings.ContainsAny(name, invalidDatabaseNameChars) {
		return configErr("database name %q contains one of %q", name, invalidDatabaseNameChars)
	}
	switch name {
	case "admin", "local", "config":
		return configErr("database name %q is reserved", name)
	}
	return nil
}

// validateCollectionName checks a name against the server's naming rules.
func validateCollectionName(name string) error {
	if name == "" {
		return configErr("missing collection name")
	}
	if strings.Contains(name, "$") {
		return configErr("collection name %q contains '$'", name)
	}
	if strings.HasPrefix(name, "system.") {
		return configErr("collection name %q is reserved", name)
	}
	return nil
}
