package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/codevakure/lonb/internal/api"
	"github.com/codevakure/lonb/internal/svcctx"
)

// SchemaSummary describes one registered extraction schema.
type SchemaSummary struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// SchemaDetail is a full schema document.
type SchemaDetail struct {
	Name     string          `json:"name"`
	Required []string        `json:"required"`
	Document json.RawMessage `json:"document"`
}

// ListSchemasEndpoint handles GET /api/schemas.
type ListSchemasEndpoint struct{}

func (e *ListSchemasEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schemas", e.handler
}

func (e *ListSchemasEndpoint) RequiresInit() bool { return true }

func (e *ListSchemasEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	registry := svcctx.SchemasFrom(r.Context())

	summaries := make([]SchemaSummary, 0)
	for _, name := range registry.Names() {
		def, ok := registry.Get(name)
		if !ok {
			continue
		}
		summaries = append(summaries, SchemaSummary{Name: name, Fields: def.FieldNames()})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (e *ListSchemasEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List extraction schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp []SchemaSummary
			if err := client.Get(cmd.Context(), "/api/schemas", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetSchemaEndpoint handles GET /api/schemas/{name}.
type GetSchemaEndpoint struct{}

func (e *GetSchemaEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schemas/{name}", e.handler
}

func (e *GetSchemaEndpoint) RequiresInit() bool { return true }

func (e *GetSchemaEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	registry := svcctx.SchemasFrom(r.Context())

	def, ok := registry.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "schema not found: "+name)
		return
	}
	writeJSON(w, http.StatusOK, SchemaDetail{
		Name:     def.Name,
		Required: def.Required,
		Document: def.Raw,
	})
}

func (e *GetSchemaEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <name>",
		Short: "Get an extraction schema by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SchemaDetail
			if err := client.Get(cmd.Context(), "/api/schemas/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
