package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaID is the resource name the manifest schema is compiled under.
const SchemaID = "https://github.com/gezibash/hookmeta/manifest.schema.json"

// Schema returns the JSON Schema of a manifest document.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	s := reflector.Reflect(&Document{})
	s.ID = jsonschema.ID(SchemaID)
	s.Title = "hookmeta manifest"

	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return out, nil
}

var compiled = sync.OnceValues(func() (*sjsonschema.Schema, error) {
	raw, err := Schema()
	if err != nil {
		return nil, err
	}
	c := sjsonschema.NewCompiler()
	c.Draft = sjsonschema.Draft2020
	if err := c.AddResource(SchemaID, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(SchemaID)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
})

// validateSchema checks a decoded YAML value against the manifest schema.
// The value is round-tripped through JSON so numbers and maps take the shapes
// the schema validator expects.
func validateSchema(doc any) error {
	sch, err := compiled()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("prepare document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("prepare document: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
