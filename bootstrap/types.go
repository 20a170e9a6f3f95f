package bootstrap

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// PermissionRead allows a service to query its database.
	PermissionRead Permission = "read"
	// PermissionWrite allows a service to insert, update and remove documents
	// in its database.
	PermissionWrite Permission = "write"

	// RoleRead is the built-in read-only role.
	RoleRead = "read"
	// RoleReadWrite is the built-in read-write role.
	RoleReadWrite = "readWrite"
	// RoleWriteOnly is the custom role we define inside a logical database for
	// services that may write but not read.
	RoleWriteOnly = "writeOnly"

	// DirectionAsc is an ascending index key.
	DirectionAsc Direction = "asc"
	// DirectionDesc is a descending index key.
	DirectionDesc Direction = "desc"
	// DirectionHashed is a hashed index key, e.g. for hashed shard keys.
	DirectionHashed Direction = "hashed"
)

type (
	// Permission is a single access right a service credential may hold.
	Permission string

	// Permissions is the set of access rights of a service credential.
	Permissions []Permission

	// Role is a role assignment of a database user. DB is the database the
	// role grants access to.
	Role struct {
		Name string `json:"name"`
		DB   string `json:"db"`
	}

	// Direction is the order of a single field within an index.
	Direction string

	// IndexField is a single key of an index.
	IndexField struct {
		Path      string    `yaml:"path"`
		Direction Direction `yaml:"direction"`
	}

	// IndexSpec declares an index that must exist on a collection.
	IndexSpec struct {
		Collection string       `yaml:"collection"`
		Name       string       `yaml:"name,omitempty"`
		Fields     []IndexField `yaml:"fields"`
		Unique     bool         `yaml:"unique,omitempty"`
		Sparse     bool         `yaml:"sparse,omitempty"`
	}

	// Index describes an index as the store sees it.
	Index struct {
		Name   string
		Fields []IndexField
		Unique bool
		Sparse bool

		// Options holds every other option of an existing index, e.g.
		// partialFilterExpression or expireAfterSeconds, by name. Declared
		// indexes never have any, so an index with options is never equal
		// to one.
		Options map[string]string
	}

	// ServiceCredential is the account a single service uses to access its
	// logical database. Its scope is always the database it belongs to.
	ServiceCredential struct {
		Username    string      `yaml:"username"`
		Secret      string      `yaml:"secret"`
		Permissions Permissions `yaml:"permissions"`
	}

	// LogicalDatabase is a named database together with the credential of the
	// service owning it and the indexes its collections need.
	LogicalDatabase struct {
		Name       string            `yaml:"name"`
		Credential ServiceCredential `yaml:"credential"`
		Indexes    []IndexSpec       `yaml:"indexes"`
	}
)

// Has returns true if the set contains p.
func (ps Permissions) Has(p Permission) bool {
	for _, perm := range ps {
		if perm == p {
			return true
		}
	}
	return false
}

// Roles maps the permissions to the roles a user scoped to db needs. Every
// returned role is bound to db.
func (ps Permissions) Roles(db string) []Role {
	read, write := ps.Has(PermissionRead), ps.Has(PermissionWrite)
	switch {
	case read && write:
		return []Role{{Name: RoleReadWrite, DB: db}}
	case read:
		return []Role{{Name: RoleRead, DB: db}}
	case write:
		return []Role{{Name: RoleWriteOnly, DB: db}}
	}
	return nil
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return fmt.Sprintf("%s@%s", r.Name, r.DB)
}

// sameRoles returns true if both slices contain the same roles, ignoring
// order and duplicates.
func sameRoles(a, b []Role) bool {
	contains := func(roles []Role, r Role) bool {
		for _, role := range roles {
			if role == r {
				return true
			}
		}
		return false
	}
	for _, r := range a {
		if !contains(b, r) {
			return false
		}
	}
	for _, r := range b {
		if !contains(a, r) {
			return false
		}
	}
	return true
}

// IndexName returns the explicit name of the index or the name the server
// would generate for its keys, e.g. "user_id_1_created_-1".
func (s IndexSpec) IndexName() string {
	if s.Name != "" {
		return s.Name
	}
	parts := make([]string, 0, 2*len(s.Fields))
	for _, f := range s.Fields {
		parts = append(parts, f.Path)
		switch f.Direction {
		case DirectionDesc:
			parts = append(parts, "-1")
		case DirectionHashed:
			parts = append(parts, "hashed")
		default:
			parts = append(parts, "1")
		}
	}
	return strings.Join(parts, "_")
}

// Index returns the index the store should hold for the spec.
func (s IndexSpec) Index() Index {
	fields := make([]IndexField, len(s.Fields))
	copy(fields, s.Fields)
	return Index{
		Name:   s.IndexName(),
		Fields: fields,
		Unique: s.Unique,
		Sparse: s.Sparse,
	}
}

// SameFields returns true if both indexes have the same keys in the same
// order.
func (idx Index) SameFields(other Index) bool {
	if len(idx.Fields) != len(other.Fields) {
		return false
	}
	for i := range idx.Fields {
		if idx.Fields[i] != other.Fields[i] {
			return false
		}
	}
	return true
}

// Equal returns true if both indexes are interchangeable.
func (idx Index) Equal(other Index) bool {
	return idx.Name == other.Name &&
		idx.Unique == other.Unique &&
		idx.Sparse == other.Sparse &&
		idx.SameFields(other) &&
		sameOptions(idx.Options, other.Options)
}

// sameOptions returns true if both option sets hold the same values.
func sameOptions(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || v != w {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (idx Index) String() string {
	fields := make([]string, 0, len(idx.Fields))
	for _, f := range idx.Fields {
		fields = append(fields, fmt.Sprintf("%s:%s", f.Path, f.Direction))
	}
	s := fmt.Sprintf("%s{%s}", idx.Name, strings.Join(fields, ","))
	if idx.Unique {
		s += " unique"
	}
	if idx.Sparse {
		s += " sparse"
	}
	names := make([]string, 0, len(idx.Options))
	for name := range idx.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s += fmt.Sprintf(" %s=%s", name, idx.Options[name])
	}
	return s
}

// Collections returns the distinct collections the indexes of the database
// are declared on, in declaration order.
func (ldb LogicalDatabase) Collections() []string {
	var colls []string
	seen := make(map[string]struct{})
	for _, spec := range ldb.Indexes {
		if _, ok := seen[spec.Collection]; ok {
			continue
		}
		seen[spec.Collection] = struct{}{}
		colls = append(colls, spec.Collection)
	}
	return colls
}
