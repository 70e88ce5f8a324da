package relational

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/compiler"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

const (
	personClass = `{"_type":"class","package":"test","name":"Person","properties":[
		{"name":"name","type":"String","multiplicity":{"lowerBound":1,"upperBound":1}},
		{"name":"age","type":"Integer","multiplicity":{"lowerBound":0,"upperBound":1}}]}`
	firmClass = `{"_type":"class","package":"test","name":"Firm","properties":[
		{"name":"name","type":"String","multiplicity":{"lowerBound":1,"upperBound":1}}]}`
	firmSourceClass = `{"_type":"class","package":"test","name":"_Firm","properties":[
		{"name":"title","type":"String","multiplicity":{"lowerBound":1,"upperBound":1}}]}`

	database = `{"_type":"relational","package":"test","name":"Db","sourceInformation":{"sourceId":"db.pure","startLine":3,"startColumn":1,"endLine":9,"endColumn":1},
		"schemas":[{"name":"default","tables":[{"name":"PERSON","primaryKey":["ID"],"columns":[
			{"name":"ID","type":{"_type":"Integer"}},
			{"name":"NAME","type":{"_type":"Varchar"},"nullable":true},
			{"name":"AGE","type":{"_type":"Integer"},"nullable":true}]}]}]}`
)

func columnMapping(property, column string) string {
	return fmt.Sprintf(`{"_type":"relationalPropertyMapping","property":{"class":"test::Person","property":%q},
		"relationalOperation":{"_type":"column","table":{"database":"test::Db","schema":"default","table":"PERSON"},"column":%q}}`, property, column)
}

func relationalMapping(pms ...string) string {
	return `{"_type":"relational","id":"person","class":"test::Person","root":true,
		"mainTable":{"database":"test::Db","schema":"default","table":"PERSON"},
		"propertyMappings":[` + strings.Join(pms, ",") + `]}`
}

const firmInstance = `{"_type":"pureInstance","id":"firm","class":"test::Firm","root":true,"srcClass":"test::_Firm","propertyMappings":[
	{"_type":"purePropertyMapping","property":{"class":"test::Firm","property":"name"},"source":"",
	"transform":{"_type":"lambda","parameters":[],"body":[{"_type":"property","property":"title","parameters":[{"_type":"var","name":"src"}]}]}}]}`

func mappingOf(classMappings ...string) string {
	return `{"_type":"mapping","package":"test","name":"M","classMappings":[` + strings.Join(classMappings, ",") + `]}`
}

const (
	relationalConnection = `{"store":{"type":"STORE","path":"test::Db"},"storeConnections":[{"id":"db","connection":
		{"_type":"RelationalDatabaseConnection","element":"test::Db","type":"H2",
		"datasourceSpecification":{"_type":"static","host":"localhost","port":5432,"databaseName":"people"},
		"authenticationStrategy":{"_type":"h2Default"}}}]}`
	modelConnection = `{"store":{"type":"STORE","path":"ModelStore"},"storeConnections":[{"id":"model","connection":
		{"_type":"JsonModelConnection","class":"test::_Firm","url":"data:application/json,{}"}}]}`
)

func runtimeOf(connections ...string) string {
	return `{"_type":"runtime","package":"test","name":"R","runtimeValue":{"_type":"engineRuntime",
		"mappings":[{"type":"MAPPING","path":"test::M"}],"connections":[` + strings.Join(connections, ",") + `],
		"sourceInformation":{"sourceId":"rt.pure","startLine":30,"startColumn":1,"endLine":35,"endColumn":1}}}`
}

func build(t *testing.T, elements ...string) (*compiler.PureModel, error) {
	t.Helper()
	doc, err := ast.ParseDocument([]byte(`{"_type":"data","elements":[` + strings.Join(elements, ",") + `]}`))
	require.NoError(t, err)
	opts := compiler.DefaultOptions()
	opts.Extensions = []compiler.Extension{New()}
	return compiler.Build(doc, opts)
}

func buildError(t *testing.T, elements ...string) *report.CompilationError {
	t.Helper()
	_, err := build(t, elements...)
	require.Error(t, err)
	ce, ok := report.AsCompilationError(err)
	require.True(t, ok, "expected a compilation error, got %v", err)
	return ce
}

func TestDatabase_Build(t *testing.T) {
	m, err := build(t, database)
	require.NoError(t, err)

	store, err := m.Store("test::Db", report.UnknownSourceInformation)
	require.NoError(t, err)
	db, ok := store.(*Database)
	require.True(t, ok)

	table, ok := db.FindTable("", "PERSON")
	require.True(t, ok)
	assert.Len(t, table.Columns, 3)
	require.Len(t, table.PrimaryKey, 1)
	assert.Equal(t, "ID", table.PrimaryKey[0].Name)

	name, ok := table.Column("NAME")
	require.True(t, ok)
	assert.Equal(t, "VARCHAR", name.Type)
	assert.True(t, name.Nullable)
}

func TestDatabase_IncludedTables(t *testing.T) {
	other := `{"_type":"relational","package":"test","name":"Other","includedStores":["test::Db"],"schemas":[]}`
	m, err := build(t, other, database)
	require.NoError(t, err)

	store, _ := m.Store("test::Other", report.UnknownSourceInformation)
	_, ok := store.(*Database).FindTable("default", "PERSON")
	assert.True(t, ok)
}

func TestDatabase_DuplicatedColumn(t *testing.T) {
	db := `{"_type":"relational","package":"test","name":"Db","schemas":[{"name":"default","tables":[{"name":"T","columns":[
		{"name":"A","type":{"_type":"Integer"}},{"name":"A","type":{"_type":"Integer"}}]}]}]}`
	ce := buildError(t, db)
	assert.Contains(t, ce.Message, "Duplicated column 'A' in table 'T'")
}

func TestDatabase_IncludeCycle(t *testing.T) {
	a := `{"_type":"relational","package":"test","name":"A","includedStores":["test::B"],"schemas":[]}`
	b := `{"_type":"relational","package":"test","name":"B","includedStores":["test::A"],"schemas":[]}`
	ce := buildError(t, a, b)
	assert.Contains(t, ce.Message, "Cycle detected in database include hierarchy: test::A -> test::B -> test::A")
}

func TestDatabase_WithoutExtensionIsUnsupported(t *testing.T) {
	doc, err := ast.ParseDocument([]byte(`{"_type":"data","elements":[` + database + `]}`))
	require.NoError(t, err)
	_, err = compiler.Build(doc, compiler.DefaultOptions())
	require.Error(t, err)
	assert.True(t, report.IsUnsupported(err))
}

func TestClassMapping_Build(t *testing.T) {
	m, err := build(t, personClass, database, mappingOf(relationalMapping(columnMapping("name", "NAME"), columnMapping("age", "AGE"))))
	require.NoError(t, err)

	mp, _ := m.Mapping("test::M", report.UnknownSourceInformation)
	require.Len(t, mp.ClassMappings, 1)
	set, ok := mp.ClassMappings[0].(*SetImplementation)
	require.True(t, ok)
	assert.Equal(t, "person", set.ID)
	assert.True(t, set.Root)
	assert.Same(t, mp, set.Parent)
	assert.Equal(t, "PERSON", set.MainTable.Name)

	require.Len(t, set.PropertyMappings, 2)
	col := set.PropertyMappings[0].Detail.(*ColumnMapping).Column
	assert.Equal(t, "NAME", col.Name)
}

func TestClassMapping_UnknownColumn(t *testing.T) {
	ce := buildError(t, personClass, database, mappingOf(relationalMapping(columnMapping("name", "MISSING"))))
	assert.Contains(t, ce.Message, "Can't find column 'MISSING' in table 'PERSON'")
}

func TestClassMapping_UnknownTable(t *testing.T) {
	cm := `{"_type":"relational","id":"person","class":"test::Person","root":true,
		"mainTable":{"database":"test::Db","table":"NOPE"},"propertyMappings":[]}`
	ce := buildError(t, personClass, database, mappingOf(cm))
	assert.Contains(t, ce.Message, "Can't find table 'NOPE' in schema 'default' and database 'test::Db'")
}

func TestClassMapping_ColumnTypeMismatch(t *testing.T) {
	ce := buildError(t, personClass, database, mappingOf(relationalMapping(columnMapping("name", "AGE"))))
	assert.Contains(t, ce.Message, "Column 'AGE' of type 'INTEGER' can't be mapped to property 'name' of type 'String'")
}

func TestRuntime_StoreCoverage(t *testing.T) {
	model := []string{personClass, firmClass, firmSourceClass, database,
		mappingOf(relationalMapping(columnMapping("name", "NAME")), firmInstance)}

	t.Run("missing database", func(t *testing.T) {
		ce := buildError(t, append(model, runtimeOf(modelConnection))...)
		assert.Equal(t, "Runtime does not cover store(s) 'test::Db' in mapping(s) 'test::M'", ce.Message)
		assert.Equal(t, 30, ce.Source.StartLine)
	})
	t.Run("missing both", func(t *testing.T) {
		ce := buildError(t, append(model, runtimeOf())...)
		assert.Equal(t, "Runtime does not cover store(s) 'ModelStore', 'test::Db' in mapping(s) 'test::M'", ce.Message)
	})
	t.Run("covered", func(t *testing.T) {
		m, err := build(t, append(model, runtimeOf(modelConnection, relationalConnection))...)
		require.NoError(t, err)

		rt, _ := m.Runtime("test::R", report.UnknownSourceInformation)
		require.Len(t, rt.Runtime.Connections, 2)
		conn, ok := rt.Runtime.Connections[1].Connections[0].Connection.(*Connection)
		require.True(t, ok)
		assert.Equal(t, "H2", conn.DatabaseType)
		assert.Equal(t, "people", conn.Datasource.DatabaseName)
		assert.Equal(t, "h2Default", conn.Authentication)
		assert.Equal(t, "test::Db", conn.Store.Path())
	})
}

func TestConnection_UnknownDatabaseType(t *testing.T) {
	conn := `{"_type":"connection","package":"test","name":"C","connectionValue":
		{"_type":"RelationalDatabaseConnection","element":"test::Db","type":"Oracle7","datasourceSpecification":{"_type":"static"}}}`
	ce := buildError(t, database, conn)
	assert.Contains(t, ce.Message, "Unknown database type 'Oracle7'")
}

func TestConnection_MustTargetDatabase(t *testing.T) {
	conn := `{"_type":"connection","package":"test","name":"C","connectionValue":
		{"_type":"RelationalDatabaseConnection","element":"ModelStore","type":"H2","datasourceSpecification":{"_type":"static"}}}`
	ce := buildError(t, conn)
	assert.Contains(t, ce.Message, "Relational connection must target a database, found 'ModelStore'")
}

func TestSetStores(t *testing.T) {
	db := &Database{StoreBase: graph.StoreBase{ElementBase: graph.ElementBase{Name: "Db"}}}
	stores, ok := setStores(&SetImplementation{Database: db})
	require.True(t, ok)
	assert.Equal(t, []graph.Store{db}, stores)

	_, ok = setStores(&graph.PureInstanceSetImplementation{})
	assert.False(t, ok)
}

func TestPureType(t *testing.T) {
	assert.Equal(t, "Integer", PureType("BIGINT"))
	assert.Equal(t, "String", PureType("VARCHAR"))
	assert.Equal(t, "StrictDate", PureType("DATE"))
	assert.Equal(t, "", PureType("BINARY"))
	assert.True(t, compatible("Integer", "Number"))
	assert.False(t, compatible("String", "Integer"))
}
