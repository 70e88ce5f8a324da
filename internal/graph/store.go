package graph

import "github.com/foundry-zero/purec/internal/report"

// ModelStorePath is the path of the synthetic store model-to-model mappings
// read from.
const ModelStorePath = "ModelStore"

// Store is a data store. Stores other than the model store are contributed
// by extensions.
type Store interface {
	Element
	Store() *StoreBase
}

// StoreBase is embedded by every store.
type StoreBase struct {
	ElementBase
	Includes []Store
}

func (s *StoreBase) Store() *StoreBase { return s }

// ModelStore is the in-memory store of model instances.
type ModelStore struct {
	StoreBase
}

// NewModelStore creates the model store sentinel.
func NewModelStore() *ModelStore {
	return &ModelStore{StoreBase: StoreBase{ElementBase: ElementBase{Name: ModelStorePath}}}
}

// IsModelStore reports whether s is the model store.
func IsModelStore(s Store) bool {
	_, ok := s.(*ModelStore)
	return ok
}

// Connection is a compiled connection. Every connection serves one store.
type Connection interface {
	Conn() *ConnectionBase
}

// ConnectionBase holds what every connection has.
type ConnectionBase struct {
	Store  Store
	Source report.SourceInformation
}

func (c *ConnectionBase) Conn() *ConnectionBase { return c }

// JSONModelConnection reads instances of Class from JSON at URL.
type JSONModelConnection struct {
	ConnectionBase
	Class *Class
	URL   string
}

// XMLModelConnection reads instances of Class from XML at URL.
type XMLModelConnection struct {
	ConnectionBase
	Class *Class
	URL   string
}

// ModelChainConnection chains model mappings.
type ModelChainConnection struct {
	ConnectionBase
	Mappings []*Mapping
}

// PackageableConnection is a named connection.
type PackageableConnection struct {
	ElementBase
	Connection Connection
}

// PackageableRuntime is a named runtime.
type PackageableRuntime struct {
	ElementBase
	Runtime *Runtime
}

// Runtime lists mappings and the connections serving their stores.
type Runtime struct {
	Mappings    []*Mapping
	Connections []*StoreConnections
	Source      report.SourceInformation
}

// StoreConnections groups the connections of one store.
type StoreConnections struct {
	Store       Store
	Connections []*IdentifiedConnection
}

// IdentifiedConnection is a connection with a runtime-unique id.
type IdentifiedConnection struct {
	ID         string
	Connection Connection
}

// ConnectionsByStore returns the connections serving s.
func (r *Runtime) ConnectionsByStore(s Store) []Connection {
	var out []Connection
	for _, group := range r.Connections {
		for _, c := range group.Connections {
			if c.Connection.Conn().Store == s {
				out = append(out, c.Connection)
			}
		}
	}
	return out
}
