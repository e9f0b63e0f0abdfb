package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codevakure/lonb/internal/api"
	"github.com/codevakure/lonb/internal/extract"
	"github.com/codevakure/lonb/internal/kb"
	"github.com/codevakure/lonb/internal/providers"
	"github.com/codevakure/lonb/internal/schema"
	"github.com/codevakure/lonb/internal/server/endpoints"
	"github.com/codevakure/lonb/internal/svcctx"
)

const validAgreementJSON = `{
  "agreement_date": "2024-03-15",
  "borrower_names": ["Acme Industrial Holdings LLC"],
  "lender_parties": [{"role": "Administrative Agent", "name": "First National Bank"}],
  "total_commitment": 5000000,
  "governing_law": "New York"
}`

// newTestServer builds the real route table over mock-backed services.
func newTestServer(t *testing.T, services *svcctx.Services) *httptest.Server {
	t.Helper()

	registry := api.NewRegistry()
	for _, ep := range endpoints.All() {
		registry.Register(ep)
	}
	mux := http.NewServeMux()
	registry.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if services == nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			next(w, r)
		}
	})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		mux.ServeHTTP(w, r.WithContext(ctx))
	})

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func testServices(t *testing.T, index *kb.MockIndex, llm providers.LLMClient) *svcctx.Services {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry, err := schema.NewRegistry(logger)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return &svcctx.Services{
		Schemas: registry,
		Extractor: extract.NewExtractor(extract.ExtractorConfig{
			Schemas:   registry,
			Retriever: kb.NewRetriever(index, 15, logger),
			LLM:       llm,
			Logger:    logger,
		}),
		Logger: logger,
	}
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, into any) int {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, testServices(t, kb.NewMockIndex(), &providers.MockClient{}))

	var health endpoints.HealthResponse
	if status := getJSON(t, ts.URL+"/health", &health); status != http.StatusOK {
		t.Fatalf("health status = %d", status)
	}
	if health.Status != "ok" {
		t.Errorf("health = %+v", health)
	}

	var ready endpoints.HealthResponse
	if status := getJSON(t, ts.URL+"/ready", &ready); status != http.StatusOK {
		t.Fatalf("ready status = %d", status)
	}
	if len(ready.Schemas) == 0 {
		t.Error("ready response lists no schemas")
	}
}

func TestListAndGetSchemas(t *testing.T) {
	ts := newTestServer(t, testServices(t, kb.NewMockIndex(), &providers.MockClient{}))

	var summaries []endpoints.SchemaSummary
	if status := getJSON(t, ts.URL+"/api/schemas", &summaries); status != http.StatusOK {
		t.Fatalf("schemas status = %d", status)
	}
	names := make(map[string]bool)
	for _, s := range summaries {
		names[s.Name] = true
	}
	if !names["loan_booking_sheet"] || !names["credit_agreement"] {
		t.Errorf("schema names = %v", names)
	}

	var detail endpoints.SchemaDetail
	if status := getJSON(t, ts.URL+"/api/schemas/credit_agreement", &detail); status != http.StatusOK {
		t.Fatalf("schema detail status = %d", status)
	}
	if detail.Name != "credit_agreement" || len(detail.Required) == 0 {
		t.Errorf("schema detail = %+v", detail)
	}

	if status := getJSON(t, ts.URL+"/api/schemas/no_such_schema", nil); status != http.StatusNotFound {
		t.Errorf("missing schema status = %d", status)
	}
}

func TestExtractEndpoint(t *testing.T) {
	index := kb.NewMockIndex()
	index.ChunksByID["booking-123"] = []kb.Chunk{{Text: "credit agreement text"}}
	llm := &providers.MockClient{ResponseText: validAgreementJSON}
	ts := newTestServer(t, testServices(t, index, llm))

	var result extract.Result
	status := postJSON(t, ts.URL+"/api/bookings/booking-123/extract",
		endpoints.ExtractRequest{SchemaName: "credit_agreement"}, &result)
	if status != http.StatusOK {
		t.Fatalf("extract status = %d", status)
	}
	if result.Status != extract.StatusSuccess {
		t.Errorf("extraction status = %q", result.Status)
	}
	if result.ExtractedData["governing_law"] != "New York" {
		t.Errorf("extracted data = %v", result.ExtractedData)
	}
}

func TestExtractEndpointErrors(t *testing.T) {
	index := kb.NewMockIndex()
	index.ChunksByID["booking-123"] = []kb.Chunk{{Text: "chunk"}}
	ts := newTestServer(t, testServices(t, index, &providers.MockClient{ShouldFail: true}))

	tests := []struct {
		name       string
		path       string
		body       endpoints.ExtractRequest
		wantStatus int
	}{
		{
			name:       "missing schema name",
			path:       "/api/bookings/booking-123/extract",
			body:       endpoints.ExtractRequest{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown schema",
			path:       "/api/bookings/booking-123/extract",
			body:       endpoints.ExtractRequest{SchemaName: "no_such_schema"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "document not indexed",
			path:       "/api/bookings/missing-doc/extract",
			body:       endpoints.ExtractRequest{SchemaName: "credit_agreement"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "generation failure",
			path:       "/api/bookings/booking-123/extract",
			body:       endpoints.ExtractRequest{SchemaName: "credit_agreement"},
			wantStatus: http.StatusBadGateway,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if status := postJSON(t, ts.URL+tc.path, tc.body, nil); status != tc.wantStatus {
				t.Errorf("status = %d, want %d", status, tc.wantStatus)
			}
		})
	}
}

func TestExtractEndpointWithCitations(t *testing.T) {
	index := kb.NewMockIndex()
	index.ChunksByID["booking-123"] = []kb.Chunk{{Text: "dated March 15, 2024"}}
	llm := &providers.MockClient{ResponseText: `{
	  "extracted_data": ` + validAgreementJSON + `,
	  "field_citations": {"agreement_date": ["CHUNK_1"]}
	}`}
	ts := newTestServer(t, testServices(t, index, llm))

	var result extract.CitedResult
	status := postJSON(t, ts.URL+"/api/bookings/booking-123/extract",
		endpoints.ExtractRequest{SchemaName: "credit_agreement", Citations: true}, &result)
	if status != http.StatusOK {
		t.Fatalf("extract status = %d", status)
	}
	if len(result.Citations) != 1 {
		t.Errorf("citations = %+v", result.Citations)
	}
	if len(result.FieldCitations["agreement_date"]) != 1 {
		t.Errorf("field citations = %+v", result.FieldCitations)
	}
}

func TestExtractUnavailableWithoutPipeline(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry, err := schema.NewRegistry(logger)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ts := newTestServer(t, &svcctx.Services{Schemas: registry, Logger: logger})

	status := postJSON(t, ts.URL+"/api/bookings/booking-123/extract",
		endpoints.ExtractRequest{SchemaName: "credit_agreement"}, nil)
	if status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", status)
	}
}
