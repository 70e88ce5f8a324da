package ast

import (
	"encoding/json"

	"github.com/foundry-zero/purec/internal/report"
)

// Connection type tags handled by the core.
const (
	ConnectionJSONModel  = "JsonModelConnection"
	ConnectionXMLModel   = "XmlModelConnection"
	ConnectionModelChain = "ModelChainConnection"
	ConnectionPointer    = "connectionPointer"

	RuntimeEngine = "engineRuntime"
)

// Connection is a flat union over connection variants. Raw keeps the original
// object for extension-contributed variants.
type Connection struct {
	Type              string                   `json:"_type"`
	Element           string                   `json:"element,omitempty"`
	Class             string                   `json:"class,omitempty"`
	URL               string                   `json:"url,omitempty"`
	Mappings          []string                 `json:"mappings,omitempty"`
	Connection        string                   `json:"connection,omitempty"`
	ElementSourceInfo report.SourceInformation `json:"elementSourceInformation"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`

	Raw json.RawMessage `json:"-"`
}

func (c *Connection) UnmarshalJSON(data []byte) error {
	type plain Connection
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Connection(v)
	c.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// PackageableConnection is a named, top-level connection.
type PackageableConnection struct {
	ElementBase
	ConnectionValue Connection `json:"connectionValue"`
}

// IdentifiedConnection is a connection with a runtime-unique id.
type IdentifiedConnection struct {
	ID                string                   `json:"id"`
	Connection        Connection               `json:"connection"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// StoreConnections groups the connections declared for one store.
type StoreConnections struct {
	Store             ElementPointer           `json:"store"`
	StoreConnections  []IdentifiedConnection   `json:"storeConnections"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// EngineRuntime lists mappings and the connections that serve their stores.
type EngineRuntime struct {
	Type              string                   `json:"_type,omitempty"`
	Mappings          []ElementPointer         `json:"mappings"`
	Connections       []StoreConnections       `json:"connections"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// PackageableRuntime is a named, top-level runtime.
type PackageableRuntime struct {
	ElementBase
	RuntimeValue EngineRuntime `json:"runtimeValue"`
}
