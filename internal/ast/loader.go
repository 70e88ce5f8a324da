package ast

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadDocument reads and parses a model document JSON file into a Document.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument parses model document JSON into a Document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return &doc, nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     string            `json:"_type"`
		Elements []json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Document{Type: raw.Type}
	for i, el := range raw.Elements {
		if err := d.addElement(el); err != nil {
			return fmt.Errorf("elements[%d]: %w", i, err)
		}
	}
	return nil
}

func (d *Document) addElement(data json.RawMessage) error {
	var head struct {
		Type string `json:"_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	var err error
	switch head.Type {
	case TypeSectionIndex:
		d.Sections, err = appendDecoded(d.Sections, data)
	case TypeProfile:
		d.Profiles, err = appendDecoded(d.Profiles, data)
	case TypeClass:
		d.Classes, err = appendDecoded(d.Classes, data)
	case TypeEnumeration:
		d.Enumerations, err = appendDecoded(d.Enumerations, data)
	case TypeAssociation:
		d.Associations, err = appendDecoded(d.Associations, data)
	case TypeFunction:
		d.Functions, err = appendDecoded(d.Functions, data)
	case TypeMeasure:
		d.Measures, err = appendDecoded(d.Measures, data)
	case TypeMapping:
		d.Mappings, err = appendDecoded(d.Mappings, data)
	case TypeConnection:
		d.Connections, err = appendDecoded(d.Connections, data)
	case TypeRuntime:
		d.Runtimes, err = appendDecoded(d.Runtimes, data)
	case "":
		return fmt.Errorf("element is missing its _type tag")
	default:
		var base ElementBase
		if err := json.Unmarshal(data, &base); err != nil {
			return fmt.Errorf("%s: %w", head.Type, err)
		}
		d.Extensions = append(d.Extensions, ExtensionElement{
			ElementBase: base,
			Type:        head.Type,
			Raw:         append(json.RawMessage(nil), data...),
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", head.Type, err)
	}
	return nil
}

func appendDecoded[T any](list []T, data json.RawMessage) ([]T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return list, err
	}
	return append(list, v), nil
}
