// Package config loads the logical databases to bootstrap from a YAML file.
//
// Values of the form ${VAR} and ${VAR:-default} are replaced with environment
// variables, which keeps secrets out of the file. Only scalar values are
// expanded, the expansion is never parsed as YAML:
//
//	databases:
//	  - name: orders_db
//	    credential:
//	      username: orderservice
//	      secret: ${ORDERS_DB_PASSWORD}
//	      permissions: [read, write]
//	    indexes:
//	      - collection: orders
//	        fields: [{path: user_id}]
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/SkynetLabs/bootstrapper/bootstrap"
	"gitlab.com/NebulousLabs/errors"
	"gopkg.in/yaml.v3"
)

// file is the layout of a configuration file.
type file struct {
	Databases []bootstrap.LogicalDatabase `yaml:"databases"`
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads and parses the configuration file at path.
func Load(path string) ([]bootstrap.LogicalDatabase, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Compose(bootstrap.ErrConfiguration, errors.AddContext(err, fmt.Sprintf("failed to read config %s", path)))
	}
	return Parse(data)
}

// Parse parses a configuration. Syntax errors, unknown keys and
// configuration-wide problems such as duplicate database names are returned
// as ErrConfiguration. Problems of a single database are left for the
// bootstrap of that database to report.
func Parse(data []byte) ([]bootstrap.LogicalDatabase, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Compose(bootstrap.ErrConfiguration, errors.AddContext(err, "failed to parse config"))
	}
	var f file
	if len(root.Content) > 0 {
		expandNode(&root)
		expanded, err := yaml.Marshal(&root)
		if err != nil {
			return nil, errors.Compose(bootstrap.ErrConfiguration, errors.AddContext(err, "failed to expand config"))
		}
		dec := yaml.NewDecoder(bytes.NewReader(expanded))
		dec.KnownFields(true)
		err = dec.Decode(&f)
		if err != nil && err != io.EOF {
			return nil, errors.Compose(bootstrap.ErrConfiguration, errors.AddContext(err, "failed to parse config"))
		}
	}
	applyDefaults(f.Databases)
	if err := bootstrap.ValidateConfiguration(f.Databases); err != nil {
		return nil, err
	}
	return f.Databases, nil
}

// expandNode expands the environment variables in every scalar value below n.
// Mapping keys are left alone.
func expandNode(n *yaml.Node) {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			expandNode(c)
		}
	case yaml.MappingNode:
		for i := 1; i < len(n.Content); i += 2 {
			expandNode(n.Content[i])
		}
	case yaml.ScalarNode:
		if !strings.Contains(n.Value, "${") {
			return
		}
		n.Value = expandEnvVars(n.Value)
		// Plain values are resolved again so that ${VAR} may also stand for
		// a bool. Quoted values stay strings.
		if n.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) == 0 {
			n.Tag = ""
		}
	}
}

// applyDefaults makes index fields without a direction ascending.
func applyDefaults(dbs []bootstrap.LogicalDatabase) {
	for i := range dbs {
		for j := range dbs[i].Indexes {
			fields := dbs[i].Indexes[j].Fields
			for k := range fields {
				if fields[k].Direction == "" {
					fields[k].Direction = bootstrap.DirectionAsc
				}
			}
		}
	}
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable
// values.
func expandEnvVars(value string) string {
	return envVarRegex.ReplaceAllStringFunc(value, func(match string) string {
		expr := match[2 : len(match)-1]
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return val
	})
}
