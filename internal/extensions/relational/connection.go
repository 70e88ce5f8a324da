package relational

import (
	"encoding/json"
	"slices"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/compiler"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

// ConnectionType is the document tag of a relational database connection.
const ConnectionType = "RelationalDatabaseConnection"

// DatabaseTypes lists the database kinds a connection may name.
var DatabaseTypes = []string{"H2", "Postgres", "MemSQL", "SqlServer", "Snowflake", "BigQuery", "Redshift", "Databricks", "Spanner", "Trino"}

// Connection connects a Database to a running database server.
type Connection struct {
	graph.ConnectionBase
	DatabaseType   string
	Datasource     Datasource
	Authentication string
}

// Datasource says where the database server is.
type Datasource struct {
	Type         string `json:"_type"`
	Host         string `json:"host,omitempty"`
	Port         int    `json:"port,omitempty"`
	DatabaseName string `json:"databaseName,omitempty"`
}

type connectionNode struct {
	DatabaseType string     `json:"type"`
	Datasource   Datasource `json:"datasourceSpecification"`
	Auth         struct {
		Type string `json:"_type"`
	} `json:"authenticationStrategy"`
}

func buildConnection(ctx *compiler.CompileContext, c ast.Connection) (graph.Connection, error) {
	var node connectionNode
	if err := json.Unmarshal(c.Raw, &node); err != nil {
		return nil, report.Errorf(c.SourceInformation, "Can't read relational connection: %s", err)
	}
	src := c.ElementSourceInfo
	if src.IsUnknown() {
		src = c.SourceInformation
	}
	store, err := ctx.ResolveStore(c.Element, src)
	if err != nil {
		return nil, err
	}
	db, ok := store.(*Database)
	if !ok {
		return nil, report.Errorf(src, "Relational connection must target a database, found '%s'", store.Path())
	}
	if !slices.Contains(DatabaseTypes, node.DatabaseType) {
		return nil, report.Errorf(c.SourceInformation, "Unknown database type '%s'", node.DatabaseType)
	}
	if node.Datasource.Type == "" {
		return nil, report.Errorf(c.SourceInformation, "Relational connection to '%s' has no datasource specification", db.Path())
	}
	return &Connection{
		ConnectionBase: graph.ConnectionBase{Store: db, Source: c.SourceInformation},
		DatabaseType:   node.DatabaseType,
		Datasource:     node.Datasource,
		Authentication: node.Auth.Type,
	}, nil
}
