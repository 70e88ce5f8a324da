// Package relational contributes a relational Database store, relational
// class mappings and relational database connections to the compiler.
package relational

import (
	"encoding/json"
	"strings"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/compiler"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

// ElementType is the document tag of a Database element.
const ElementType = "relational"

// DefaultSchema is used when a table reference names no schema.
const DefaultSchema = "default"

// Database is a relational store: schemas of tables of columns. Included
// databases contribute their tables to lookups.
type Database struct {
	graph.StoreBase
	Schemas []*Schema
}

// Schema groups tables.
type Schema struct {
	Name     string
	Database *Database
	Tables   []*Table
}

// Table is a named list of columns.
type Table struct {
	Name       string
	Schema     *Schema
	Columns    []*Column
	PrimaryKey []*Column
	Source     report.SourceInformation
}

// Column is one table column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Table    *Table
}

// Column returns the column called name.
func (t *Table) Column(name string) (*Column, bool) {
	return lo.Find(t.Columns, func(c *Column) bool { return c.Name == name })
}

// FindTable looks schema.table up in d and then in its includes, depth first.
func (d *Database) FindTable(schema, table string) (*Table, bool) {
	if schema == "" {
		schema = DefaultSchema
	}
	seen := map[*Database]bool{}
	var find func(*Database) (*Table, bool)
	find = func(db *Database) (*Table, bool) {
		if seen[db] {
			return nil, false
		}
		seen[db] = true
		for _, s := range db.Schemas {
			if s.Name != schema {
				continue
			}
			if t, ok := lo.Find(s.Tables, func(t *Table) bool { return t.Name == table }); ok {
				return t, true
			}
		}
		for _, inc := range db.Includes {
			if idb, ok := inc.(*Database); ok {
				if t, ok := find(idb); ok {
					return t, true
				}
			}
		}
		return nil, false
	}
	return find(d)
}

type databaseNode struct {
	IncludedStores []ast.ElementPointer `json:"includedStores"`
	Schemas        []schemaNode         `json:"schemas"`
}

type schemaNode struct {
	Name   string      `json:"name"`
	Tables []tableNode `json:"tables"`
}

type tableNode struct {
	Name              string                   `json:"name"`
	Columns           []columnNode             `json:"columns"`
	PrimaryKey        []string                 `json:"primaryKey"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

type columnNode struct {
	Name     string     `json:"name"`
	Type     columnType `json:"type"`
	Nullable bool       `json:"nullable"`
}

type columnType struct {
	Type string `json:"_type"`
}

func declareDatabase(_ *compiler.CompileContext, el ast.ExtensionElement) (graph.Element, error) {
	return &Database{StoreBase: graph.StoreBase{ElementBase: graph.ElementBase{Name: el.Name}}}, nil
}

// buildDatabase fills in the schemas of a declared database and links its
// includes. Table and column names are unique within their container.
func buildDatabase(ctx *compiler.CompileContext, el ast.ExtensionElement, declared graph.Element) error {
	db := declared.(*Database)
	var node databaseNode
	if err := json.Unmarshal(el.Raw, &node); err != nil {
		return report.Errorf(el.SourceInformation, "Can't read database '%s': %s", db.Path(), err)
	}

	for _, ptr := range node.IncludedStores {
		src := ptr.SourceInformation
		if src.IsUnknown() {
			src = el.SourceInformation
		}
		store, err := ctx.ResolveStore(ptr.Path, src)
		if err != nil {
			return err
		}
		inc, ok := store.(*Database)
		if !ok {
			return report.Errorf(src, "Store '%s' included by database '%s' is not a database", store.Path(), db.Path())
		}
		db.Includes = append(db.Includes, inc)
	}

	for _, sn := range node.Schemas {
		if lo.ContainsBy(db.Schemas, func(s *Schema) bool { return s.Name == sn.Name }) {
			return report.Errorf(el.SourceInformation, "Duplicated schema '%s' in database '%s'", sn.Name, db.Path())
		}
		schema := &Schema{Name: sn.Name, Database: db}
		for _, tn := range sn.Tables {
			table, err := buildTable(tn, schema, el.SourceInformation)
			if err != nil {
				return err
			}
			schema.Tables = append(schema.Tables, table)
		}
		db.Schemas = append(db.Schemas, schema)
	}
	return nil
}

func buildTable(tn tableNode, schema *Schema, fallback report.SourceInformation) (*Table, error) {
	src := tn.SourceInformation
	if src.IsUnknown() {
		src = fallback
	}
	if lo.ContainsBy(schema.Tables, func(t *Table) bool { return t.Name == tn.Name }) {
		return nil, report.Errorf(src, "Duplicated table '%s' in schema '%s'", tn.Name, schema.Name)
	}
	table := &Table{Name: tn.Name, Schema: schema, Source: src}
	for _, cn := range tn.Columns {
		if _, dup := table.Column(cn.Name); dup {
			return nil, report.Errorf(src, "Duplicated column '%s' in table '%s'", cn.Name, tn.Name)
		}
		table.Columns = append(table.Columns, &Column{Name: cn.Name, Type: strings.ToUpper(cn.Type.Type), Nullable: cn.Nullable, Table: table})
	}
	for _, name := range tn.PrimaryKey {
		col, ok := table.Column(name)
		if !ok {
			return nil, report.Errorf(src, "Primary key column '%s' is not in table '%s'", name, tn.Name)
		}
		col.Nullable = false
		table.PrimaryKey = append(table.PrimaryKey, col)
	}
	return table, nil
}
