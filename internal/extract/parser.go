package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/codevakure/lonb/internal/schema"
)

// Parser turns raw model output into validated, schema-shaped field maps.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// cleanRawOutput strips surrounding whitespace and markdown code fences.
// Models wrap JSON in fences often enough that this is part of the contract.
func cleanRawOutput(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseAndValidate parses one plain extraction response and returns the
// extracted data normalized to the schema's property set.
func (p *Parser) ParseAndValidate(def *schema.Definition, raw string) (map[string]any, error) {
	data, err := p.parseObject(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validate(def, data); err != nil {
		return nil, err
	}
	return normalizeToSchema(def, data), nil
}

// parseObject cleans and strictly parses raw output into a JSON object.
func (p *Parser) parseObject(raw string) (map[string]any, error) {
	cleaned := cleanRawOutput(raw)
	if !strings.HasPrefix(cleaned, "{") || !strings.HasSuffix(cleaned, "}") {
		p.logger.Error("model output is not a JSON object",
			"output_prefix", prefix(cleaned, 80))
		return nil, fmt.Errorf("%w: output is not a JSON object", ErrParse)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		p.logger.Error("model output failed JSON parsing", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return data, nil
}

// validate checks data against the schema's compiled validator. A nil
// validator means compilation failed at startup; validation is skipped.
func (p *Parser) validate(def *schema.Definition, data map[string]any) error {
	validator := def.Validator()
	if validator == nil {
		p.logger.Warn("schema validation skipped, no compiled validator", "schema", def.Name)
		return nil
	}

	if err := validator.Validate(toJSONValue(data)); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			p.logger.Error("extracted data failed schema validation",
				"schema", def.Name,
				"location", ve.InstanceLocation,
				"error", ve.Message)
			if doc, marshalErr := json.MarshalIndent(data, "", "  "); marshalErr == nil {
				p.logger.Debug("invalid extracted document", "data", string(doc))
			}
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// toJSONValue round-trips data through encoding/json so the validator sees
// canonical JSON types.
func toJSONValue(data map[string]any) any {
	raw, err := json.Marshal(data)
	if err != nil {
		return data
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return data
	}
	return v
}

// normalizeToSchema returns a map holding exactly the schema's property
// names. Fields the model omitted become explicit nulls; keys outside the
// schema are dropped.
func normalizeToSchema(def *schema.Definition, data map[string]any) map[string]any {
	out := make(map[string]any, len(def.Properties))
	for name := range def.Properties {
		out[name] = data[name]
	}
	return out
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
