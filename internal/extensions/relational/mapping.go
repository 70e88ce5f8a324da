package relational

import (
	"encoding/json"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/compiler"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

// ClassMappingType is the document tag of a relational class mapping.
const ClassMappingType = "relational"

const (
	propertyMappingType = "relationalPropertyMapping"
	operationColumn     = "column"
)

// SetImplementation maps a class onto the rows of MainTable.
type SetImplementation struct {
	graph.SetImplementationBase
	Database  *Database
	MainTable *Table
	Distinct  bool
}

// ColumnMapping is the Detail of a relational property mapping.
type ColumnMapping struct {
	Column *Column
}

type tablePtr struct {
	Database          string                   `json:"database"`
	Schema            string                   `json:"schema"`
	Table             string                   `json:"table"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

type classMappingNode struct {
	MainTable *tablePtr `json:"mainTable"`
	Distinct  bool      `json:"distinct"`
}

type propertyMappingNode struct {
	RelationalOperation struct {
		Type   string   `json:"_type"`
		Table  tablePtr `json:"table"`
		Column string   `json:"column"`
	} `json:"relationalOperation"`
}

// resolveTable finds the table ptr names.
func resolveTable(ctx *compiler.CompileContext, ptr tablePtr, fallback report.SourceInformation) (*Database, *Table, error) {
	src := ptr.SourceInformation
	if src.IsUnknown() {
		src = fallback
	}
	store, err := ctx.ResolveStore(ptr.Database, src)
	if err != nil {
		return nil, nil, err
	}
	db, ok := store.(*Database)
	if !ok {
		return nil, nil, report.Errorf(src, "Store '%s' is not a database", store.Path())
	}
	table, ok := db.FindTable(ptr.Schema, ptr.Table)
	if !ok {
		schema := ptr.Schema
		if schema == "" {
			schema = DefaultSchema
		}
		return nil, nil, report.Errorf(src, "Can't find table '%s' in schema '%s' and database '%s'", ptr.Table, schema, db.Path())
	}
	return db, table, nil
}

// buildClassMapping compiles a relational class mapping. Every property
// mapping reads one column of the main table.
func buildClassMapping(ctx *compiler.CompileContext, cm ast.ClassMapping, _ *graph.Mapping) (graph.SetImplementation, error) {
	var node classMappingNode
	if err := json.Unmarshal(cm.Raw, &node); err != nil {
		return nil, report.Errorf(cm.SourceInformation, "Can't read relational class mapping: %s", err)
	}
	if node.MainTable == nil {
		return nil, report.Errorf(cm.SourceInformation, "Relational class mapping for class '%s' has no main table", cm.Class)
	}
	db, table, err := resolveTable(ctx, *node.MainTable, cm.SourceInformation)
	if err != nil {
		return nil, err
	}
	cls, err := ctx.ResolveClass(cm.Class, cm.SourceInformation)
	if err != nil {
		return nil, err
	}
	set := &SetImplementation{
		SetImplementationBase: graph.SetImplementationBase{ID: cm.ID, Class: cls, Source: cm.SourceInformation},
		Database:              db,
		MainTable:             table,
		Distinct:              node.Distinct,
	}

	for _, pm := range cm.PropertyMappings {
		out, err := buildPropertyMapping(ctx, pm, set)
		if err != nil {
			return nil, err
		}
		set.PropertyMappings = append(set.PropertyMappings, out)
	}
	return set, nil
}

func buildPropertyMapping(ctx *compiler.CompileContext, pm ast.PropertyMapping, set *SetImplementation) (*graph.PropertyMapping, error) {
	src := pm.SourceInformation
	if src.IsUnknown() {
		src = set.Source
	}
	if pm.Type != propertyMappingType {
		return nil, report.Unsupported("property mapping type '%s' in relational class mapping", pm.Type)
	}
	var node propertyMappingNode
	if err := json.Unmarshal(pm.Raw, &node); err != nil {
		return nil, report.Errorf(src, "Can't read relational property mapping: %s", err)
	}
	op := node.RelationalOperation
	if op.Type != operationColumn {
		return nil, report.Unsupported("relational operation '%s'", op.Type)
	}

	classPath := pm.Property.Class
	if classPath == "" {
		classPath = set.Class.Path()
	}
	prop, err := ctx.ResolveProperty(classPath, pm.Property.Property, src, src)
	if err != nil {
		return nil, err
	}

	table := set.MainTable
	if op.Table.Table != "" {
		if op.Table.Database == "" {
			op.Table.Database = set.Database.Path()
		}
		if _, table, err = resolveTable(ctx, op.Table, src); err != nil {
			return nil, err
		}
	}
	col, ok := table.Column(op.Column)
	if !ok {
		return nil, report.Errorf(src, "Can't find column '%s' in table '%s'", op.Column, table.Name)
	}
	return &graph.PropertyMapping{
		Property:                  prop,
		SourceSetImplementationID: set.ID,
		TargetSetImplementationID: pm.Target,
		Detail:                    &ColumnMapping{Column: col},
		Source:                    src,
	}, nil
}

// validateClassMapping runs once every class mapping of the mapping exists.
// Columns must read from the main table and carry a type compatible with
// the mapped property.
func validateClassMapping(_ *compiler.CompileContext, s graph.SetImplementation) error {
	set := s.(*SetImplementation)
	for _, pm := range set.PropertyMappings {
		cm, ok := pm.Detail.(*ColumnMapping)
		if !ok {
			continue
		}
		if cm.Column.Table != set.MainTable {
			return report.Errorf(pm.Source, "Column '%s' of property '%s' must belong to main table '%s' of class mapping '%s'",
				cm.Column.Name, pm.Property.Name, set.MainTable.Name, set.ID)
		}
		if pm.Property.GenericType == nil {
			continue
		}
		want, primitive := pm.Property.GenericType.RawType.(*graph.PrimitiveType)
		if !primitive {
			continue
		}
		if got := PureType(cm.Column.Type); got != "" && !compatible(got, want.Name) {
			return report.Errorf(pm.Source, "Column '%s' of type '%s' can't be mapped to property '%s' of type '%s'",
				cm.Column.Name, cm.Column.Type, pm.Property.Name, want.Name)
		}
	}
	return nil
}

// PureType returns the primitive type a column type reads as, or "" for a
// column type with no fixed counterpart.
func PureType(columnType string) string {
	switch columnType {
	case "INTEGER", "BIGINT", "SMALLINT", "TINYINT":
		return "Integer"
	case "VARCHAR", "CHAR", "SEMISTRUCTURED", "JSON":
		return "String"
	case "FLOAT", "DOUBLE", "REAL":
		return "Float"
	case "DECIMAL", "NUMERIC":
		return "Decimal"
	case "DATE":
		return "StrictDate"
	case "TIMESTAMP":
		return "DateTime"
	case "BIT", "BOOLEAN":
		return "Boolean"
	}
	return ""
}

func compatible(column, property string) bool {
	switch property {
	case column:
		return true
	case "Number":
		return column == "Integer" || column == "Float" || column == "Decimal"
	case "Date":
		return column == "StrictDate" || column == "DateTime"
	}
	return false
}

// setStores reports the database a relational class mapping reads from.
func setStores(s graph.SetImplementation) ([]graph.Store, bool) {
	set, ok := s.(*SetImplementation)
	if !ok {
		return nil, false
	}
	return []graph.Store{set.Database}, true
}
