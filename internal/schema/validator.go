// Package schema provides JSON Schema validation for Pure model documents.
package schema

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed all:schemas
var schemaFS embed.FS

// RootSchema is the resource id of the model document schema.
const RootSchema = "pure-model.json"

// SchemaError is one violation of the model document schema. Path is the
// JSON pointer of the offending value, empty for the document itself.
type SchemaError struct {
	Path       string `json:"path"`
	Message    string `json:"message"`
	ParseError bool   `json:"-"` // the input is not JSON at all
}

func (e SchemaError) String() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// SchemaValidator checks model documents against the embedded schemas
// before they are decoded into the AST.
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// schemaRoot is stripped from embedded file names so that resource ids
// match the relative $ref values of the root schema.
const schemaRoot = "schemas/v1/"

// NewSchemaValidator compiles the embedded model document schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	c := jsonschema.NewCompiler()
	if err := fs.WalkDir(schemaFS, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".json") {
			return err
		}
		return addResource(c, path)
	}); err != nil {
		return nil, fmt.Errorf("load embedded schemas: %w", err)
	}

	schema, err := c.Compile(RootSchema)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", RootSchema, err)
	}
	return &SchemaValidator{schema: schema}, nil
}

func addResource(c *jsonschema.Compiler, path string) error {
	f, err := schemaFS.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	doc, err := jsonschema.UnmarshalJSON(f)
	if err != nil {
		return fmt.Errorf("parse embedded schema %s: %w", path, err)
	}
	id := strings.TrimPrefix(path, schemaRoot)
	if err := c.AddResource(id, doc); err != nil {
		return fmt.Errorf("add schema resource %s: %w", id, err)
	}
	return nil
}

// Validate reads the model document at docPath and validates it.
func (v *SchemaValidator) Validate(docPath string) []SchemaError {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return []SchemaError{{Message: fmt.Sprintf("failed to read file: %v", err), ParseError: true}}
	}
	return v.ValidateBytes(data)
}

// ValidateBytes validates raw model document JSON. Input that is not JSON
// yields a single error with ParseError set.
func (v *SchemaValidator) ValidateBytes(data []byte) []SchemaError {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return []SchemaError{{Message: fmt.Sprintf("failed to parse JSON: %v", err), ParseError: true}}
	}
	return v.ValidateDocument(doc)
}

// ValidateDocument validates a document already decoded into generic JSON
// values. It returns one error per violated leaf constraint.
func (v *SchemaValidator) ValidateDocument(doc any) []SchemaError {
	err := v.schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []SchemaError{{Message: err.Error()}}
	}
	return leafErrors(ve)
}

// leafErrors flattens the cause tree of ve, keeping only the innermost
// violations in document order.
func leafErrors(ve *jsonschema.ValidationError) []SchemaError {
	var out []SchemaError
	stack := []*jsonschema.ValidationError{ve}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(e.Causes) > 0 {
			for i := len(e.Causes) - 1; i >= 0; i-- {
				stack = append(stack, e.Causes[i])
			}
			continue
		}
		if msg := e.Error(); msg != "" {
			out = append(out, SchemaError{Path: pointer(e.InstanceLocation), Message: msg})
		}
	}
	return out
}

func pointer(location []string) string {
	if len(location) == 0 {
		return ""
	}
	return "/" + strings.Join(location, "/")
}
