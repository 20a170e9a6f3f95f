package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SkynetLabs/bootstrapper/bootstrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/NebulousLabs/errors"
)

const testConfig = `
databases:
  - name: orders_db
    credential:
      username: orderservice
      secret: ${TEST_ORDERS_SECRET}
      permissions: [read, write]
    indexes:
      - collection: orders
        fields: [{path: user_id}]
      - collection: orders
        fields:
          - path: timestamps.created
            direction: desc
      - collection: orders
        name: by_customer_status
        fields: [{path: user_id}, {path: status}]
        unique: true
  - name: menu_db
    credential:
      username: menuservice
      secret: ${TEST_MENU_SECRET:-menupass}
      permissions: [read]
`

// TestParse tests parsing a configuration.
func TestParse(t *testing.T) {
	t.Setenv("TEST_ORDERS_SECRET", "orderpass")

	dbs, err := Parse([]byte(testConfig))
	require.NoError(t, err)
	require.Len(t, dbs, 2)

	orders := dbs[0]
	assert.Equal(t, "orders_db", orders.Name)
	assert.Equal(t, "orderpass", orders.Credential.Secret)
	assert.Equal(t, bootstrap.Permissions{bootstrap.PermissionRead, bootstrap.PermissionWrite}, orders.Credential.Permissions)
	require.Len(t, orders.Indexes, 3)
	assert.Equal(t, bootstrap.DirectionAsc, orders.Indexes[0].Fields[0].Direction)
	assert.Equal(t, bootstrap.DirectionDesc, orders.Indexes[1].Fields[0].Direction)
	assert.Equal(t, "timestamps.created_-1", orders.Indexes[1].IndexName())
	assert.Equal(t, "by_customer_status", orders.Indexes[2].IndexName())
	assert.True(t, orders.Indexes[2].Unique)
	assert.NoError(t, orders.Validate())

	menu := dbs[1]
	assert.Equal(t, "menupass", menu.Credential.Secret)
	assert.Empty(t, menu.Indexes)
	assert.NoError(t, menu.Validate())
}

// TestParseErrors tests configurations that are rejected as a whole.
func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"syntax":      "databases: [",
		"unknown key": "databases:\n  - name: a\n    password: x\n",
		"empty":       "",
		"duplicate":   "databases:\n  - name: a\n  - name: a\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.True(t, errors.Contains(err, bootstrap.ErrConfiguration), err)
		})
	}
}

// TestParseInvalidDatabase makes sure problems of a single database are left
// for its bootstrap.
func TestParseInvalidDatabase(t *testing.T) {
	data := `
databases:
  - name: orders_db
    credential: {username: orderservice, secret: orderpass, permissions: [read]}
    indexes:
      - {collection: orders, fields: [{path: status}]}
      - {collection: orders, fields: [{path: status}]}
`
	dbs, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, dbs, 1)
	assert.True(t, errors.Contains(dbs[0].Validate(), bootstrap.ErrConfiguration))
}

// TestLoad tests loading a configuration from disk.
func TestLoad(t *testing.T) {
	t.Setenv("TEST_ORDERS_SECRET", "orderpass")
	path := filepath.Join(t.TempDir(), "bootstrap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0600))

	dbs, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, dbs, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Contains(err, bootstrap.ErrConfiguration), err)
}

// TestExpandEnvVars tests substituting environment variables.
func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_SET", "value")
	assert.Equal(t, "value", expandEnvVars("${TEST_SET}"))
	assert.Equal(t, "value", expandEnvVars("${TEST_SET:-other}"))
	assert.Equal(t, "other", expandEnvVars("${TEST_UNSET_VAR:-other}"))
	assert.Equal(t, "", expandEnvVars("${TEST_UNSET_VAR}"))
	assert.Equal(t, "a-value-b", expandEnvVars("a-${TEST_SET}-b"))
}

// TestParseSecretSyntax makes sure secrets containing YAML syntax are taken
// verbatim.
func TestParseSecretSyntax(t *testing.T) {
	secrets := []string{
		`long"pass #2024: x`,
		`pa'ss: [x] {y} #z`,
		"- item\n&anchor *alias",
		"12345678",
	}
	for _, secret := range secrets {
		t.Setenv("TEST_ORDERS_SECRET", secret)
		dbs, err := Parse([]byte(testConfig))
		require.NoError(t, err, secret)
		require.Len(t, dbs, 2)
		assert.Equal(t, secret, dbs[0].Credential.Secret)
		assert.Len(t, dbs[0].Indexes, 3)
		assert.Equal(t, "menupass", dbs[1].Credential.Secret)
	}

	// Quoted values and keys.
	t.Setenv("TEST_ORDERS_SECRET", `long"pass #2024: x`)
	data := `
databases:
  - name: orders_db
    ${TEST_ORDERS_SECRET}: ignored
`
	_, err := Parse([]byte(data))
	assert.True(t, errors.Contains(err, bootstrap.ErrConfiguration), err)

	data = `
databases:
  - name: orders_db
    credential:
      username: orderservice
      secret: "${TEST_ORDERS_SECRET}"
      permissions: [read]
`
	dbs, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, `long"pass #2024: x`, dbs[0].Credential.Secret)
}

// TestExample makes sure the example file declares the default
// configuration.
func TestExample(t *testing.T) {
	t.Setenv("ORDERS_DB_PASSWORD", "orderpass")
	t.Setenv("MENU_DB_PASSWORD", "menupass")

	dbs, err := Load("example.yaml")
	require.NoError(t, err)
	assert.Equal(t, bootstrap.DefaultConfiguration("orderpass", "menupass"), dbs)
}
