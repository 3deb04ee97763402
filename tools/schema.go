package tools

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// docSchemas holds one compiled JSON Schema per document type accepted by
// create_document/update_document. Schemas are compiled once at Registry
// construction so a malformed schema fails fast at startup rather than on
// the first tool call.
type docSchemas map[string]*jsonschema.Schema

// defaultDocumentSchemas is the built-in schema set for the document types
// the reference scenarios use. Callers may extend this via
// RegisterDocumentSchema for other doc_types.
var defaultDocumentSchemaJSON = map[string]string{
	"tax_return": `{
		"type": "object",
		"properties": {
			"tax_year": {"type": "number"},
			"filing_status": {"type": "string"}
		}
	}`,
	"ira_application": `{
		"type": "object",
		"properties": {
			"beneficiary": {"type": "string"},
			"contribution_amount": {"type": "number"}
		}
	}`,
}

func compileSchema(name, schemaJSON string) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(schemaJSON), &doc); err != nil {
		return nil, fmt.Errorf("tools: unmarshal schema %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	resource := "schema://" + name
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("tools: add schema resource %s: %w", name, err)
	}
	schema, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("tools: compile schema %s: %w", name, err)
	}
	return schema, nil
}

func newDefaultDocSchemas() (docSchemas, error) {
	out := make(docSchemas, len(defaultDocumentSchemaJSON))
	for docType, raw := range defaultDocumentSchemaJSON {
		schema, err := compileSchema(docType, raw)
		if err != nil {
			return nil, err
		}
		out[docType] = schema
	}
	return out, nil
}

// validate checks data against the schema registered for docType. A docType
// with no registered schema is accepted unconditionally (schemas are
// opt-in, not a closed allowlist).
func (d docSchemas) validate(docType string, data map[string]any) error {
	schema, ok := d[docType]
	if !ok {
		return nil
	}
	return schema.Validate(data)
}
