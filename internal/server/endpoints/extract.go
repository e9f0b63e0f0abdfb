package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/codevakure/lonb/internal/api"
	"github.com/codevakure/lonb/internal/extract"
	"github.com/codevakure/lonb/internal/svcctx"
)

// ExtractRequest is the body for POST /api/bookings/{id}/extract.
type ExtractRequest struct {
	SchemaName     string   `json:"schema_name"`
	RetrievalQuery string   `json:"retrieval_query,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	MaxTokens      int      `json:"max_tokens,omitempty"`
	Citations      bool     `json:"citations,omitempty"`
}

// ExtractEndpoint handles POST /api/bookings/{id}/extract.
type ExtractEndpoint struct{}

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/bookings/{id}/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	bookingID := r.PathValue("id")

	var body ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.SchemaName == "" {
		writeError(w, http.StatusBadRequest, "schema_name is required")
		return
	}

	extractor := svcctx.ExtractorFrom(r.Context())
	if extractor == nil {
		writeError(w, http.StatusServiceUnavailable, "extraction pipeline is not configured")
		return
	}
	req := extract.Request{
		DocumentID:     bookingID,
		SchemaName:     body.SchemaName,
		RetrievalQuery: body.RetrievalQuery,
		Temperature:    body.Temperature,
		MaxTokens:      body.MaxTokens,
	}

	if body.Citations {
		result, err := extractor.ExtractWithCitations(r.Context(), req)
		if err != nil {
			writeExtractError(w, err)
			return
		}
		e.persist(r, bookingID, result.ExtractedData)
		writeJSON(w, http.StatusOK, result)
		return
	}

	result, err := extractor.Extract(r.Context(), req)
	if err != nil {
		writeExtractError(w, err)
		return
	}
	e.persist(r, bookingID, result.ExtractedData)
	writeJSON(w, http.StatusOK, result)
}

// persist attaches the extraction output to the booking record. Failures
// are logged, not surfaced: the caller already has the extraction result.
func (e *ExtractEndpoint) persist(r *http.Request, bookingID string, data map[string]any) {
	bookings := svcctx.BookingsFrom(r.Context())
	if bookings == nil {
		return
	}
	if err := bookings.SaveExtractedData(r.Context(), bookingID, data); err != nil {
		if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
			logger.Warn("failed to persist extracted data",
				"booking_id", bookingID, "error", err)
		}
	}
}

// writeExtractError maps pipeline failure classes to HTTP statuses.
func writeExtractError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, extract.ErrSchemaNotFound), errors.Is(err, extract.ErrNoChunks):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, extract.ErrRetrieval), errors.Is(err, extract.ErrGeneration):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		query       string
		temperature float64
		maxTokens   int
		citations   bool
	)
	cmd := &cobra.Command{
		Use:   "extract <booking-id> <schema>",
		Short: "Extract structured data from a booking's documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := ExtractRequest{
				SchemaName:     args[1],
				RetrievalQuery: query,
				MaxTokens:      maxTokens,
				Citations:      citations,
			}
			if cmd.Flags().Changed("temperature") {
				body.Temperature = &temperature
			}

			client := api.NewClient(getServerURL())
			var result map[string]any
			if err := client.Post(cmd.Context(), "/api/bookings/"+args[0]+"/extract", body, &result); err != nil {
				return err
			}
			return api.Output(result)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "retrieval query text")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "sampling temperature")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "completion token limit")
	cmd.Flags().BoolVar(&citations, "citations", false, "include per-field citations")
	return cmd
}
