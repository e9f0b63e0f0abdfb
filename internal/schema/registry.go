// Package schema holds the named JSON Schema definitions that drive
// structured extraction. Definitions are embedded at build time and loaded
// once at startup; there are no mutation operations.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Property is a single field definition within a schema.
type Property struct {
	Type        json.RawMessage `json:"type"`
	Description string          `json:"description"`
}

// Definition is a named JSON Schema. It is used both generatively (embedded
// verbatim in the extraction prompt) and for post-hoc validation of model
// output.
type Definition struct {
	Name       string
	Raw        json.RawMessage
	Properties map[string]Property
	Required   []string

	validator *jsonschema.Schema
}

// Validator returns the compiled validator for this definition. It is nil
// when compilation failed at load time; callers then skip validation
// (degraded mode) rather than failing extractions.
func (d *Definition) Validator() *jsonschema.Schema {
	return d.validator
}

// FieldNames returns the schema's property names in sorted order.
func (d *Definition) FieldNames() []string {
	names := make([]string, 0, len(d.Properties))
	for name := range d.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Indented returns the schema document pretty-printed for prompt embedding,
// so the model sees exact field names, types, and descriptions.
func (d *Definition) Indented() (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, d.Raw, "", "  "); err != nil {
		return "", fmt.Errorf("failed to indent schema %s: %w", d.Name, err)
	}
	return buf.String(), nil
}

// Registry holds all schema definitions loaded from the embedded files.
type Registry struct {
	defs   map[string]*Definition
	logger *slog.Logger
}

// NewRegistry loads and compiles every embedded schema definition.
// It fails if any definition is malformed or references a required field
// that is not declared in properties.
func NewRegistry(logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded schemas: %w", err)
	}

	r := &Registry{
		defs:   make(map[string]*Definition, len(entries)),
		logger: logger,
	}

	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		raw, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
		}

		def, err := loadDefinition(name, raw, logger)
		if err != nil {
			return nil, err
		}
		r.defs[name] = def
	}

	logger.Info("schema registry loaded", "schemas", r.Names())
	return r, nil
}

// loadDefinition parses one schema document and compiles its validator.
func loadDefinition(name string, raw []byte, logger *slog.Logger) (*Definition, error) {
	var doc struct {
		Properties map[string]Property `json:"properties"`
		Required   []string            `json:"required"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema %s is not valid JSON: %w", name, err)
	}
	if len(doc.Properties) == 0 {
		return nil, fmt.Errorf("schema %s declares no properties", name)
	}

	// Every required field must exist in properties.
	for _, field := range doc.Required {
		if _, ok := doc.Properties[field]; !ok {
			return nil, fmt.Errorf("schema %s requires undeclared field %q", name, field)
		}
	}

	def := &Definition{
		Name:       name,
		Raw:        json.RawMessage(raw),
		Properties: doc.Properties,
		Required:   doc.Required,
	}

	compiler := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		logger.Warn("schema validator unavailable, validation will be skipped",
			"schema", name, "error", err)
		return def, nil
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		logger.Warn("schema validator compilation failed, validation will be skipped",
			"schema", name, "error", err)
		return def, nil
	}
	def.validator = compiled

	return def, nil
}

// Get returns a definition by exact name. A miss logs the set of valid
// names to aid debugging and returns ok=false; it is a client error, not a
// server fault.
func (r *Registry) Get(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	if !ok {
		r.logger.Error("schema definition not found", "name", name, "available", r.Names())
	}
	return def, ok
}

// Names returns all registered schema names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
