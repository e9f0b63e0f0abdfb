package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/codevakure/lonb/internal/api"
	"github.com/codevakure/lonb/internal/kb"
	"github.com/codevakure/lonb/internal/svcctx"
)

// SyncRequest is the body for POST /api/kb/sync.
type SyncRequest struct {
	// Wait blocks the request until the ingestion job completes or the
	// configured wait budget runs out.
	Wait bool `json:"wait,omitempty"`

	// BookingID, when set, flags the booking as synced after a successful
	// waited sync.
	BookingID string `json:"booking_id,omitempty"`
}

// SyncResponse reports a started or completed ingestion job.
type SyncResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// SyncEndpoint handles POST /api/kb/sync. It starts a knowledge base
// ingestion job for the configured data source.
type SyncEndpoint struct{}

func (e *SyncEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/kb/sync", e.handler
}

func (e *SyncEndpoint) RequiresInit() bool { return true }

func (e *SyncEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var body SyncRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	ingestion := svcctx.IngestionFrom(r.Context())
	if ingestion == nil {
		writeError(w, http.StatusServiceUnavailable, "knowledge base sync is not configured")
		return
	}

	jobID, err := ingestion.StartSync(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if !body.Wait {
		writeJSON(w, http.StatusAccepted, SyncResponse{JobID: jobID, Status: "started"})
		return
	}

	if err := ingestion.WaitForCompletion(r.Context(), jobID); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if body.BookingID != "" {
		if bookings := svcctx.BookingsFrom(r.Context()); bookings != nil {
			if err := bookings.SetSyncCompleted(r.Context(), body.BookingID); err != nil {
				if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
					logger.Warn("failed to flag sync completed",
						"booking_id", body.BookingID, "error", err)
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, SyncResponse{JobID: jobID, Status: "complete"})
}

func (e *SyncEndpoint) Command(getServerURL func() string) *cobra.Command {
	var wait bool
	var bookingID string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Start a knowledge base ingestion job",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SyncResponse
			if err := client.Post(cmd.Context(), "/api/kb/sync", SyncRequest{Wait: wait, BookingID: bookingID}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "block until the job completes")
	cmd.Flags().StringVar(&bookingID, "booking", "", "booking to flag as synced")
	return cmd
}

// SyncStatusEndpoint handles GET /api/kb/sync/{jobID}.
type SyncStatusEndpoint struct{}

func (e *SyncStatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/kb/sync/{jobID}", e.handler
}

func (e *SyncStatusEndpoint) RequiresInit() bool { return true }

func (e *SyncStatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ingestion := svcctx.IngestionFrom(r.Context())
	if ingestion == nil {
		writeError(w, http.StatusServiceUnavailable, "knowledge base sync is not configured")
		return
	}

	status, err := ingestion.Status(r.Context(), r.PathValue("jobID"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (e *SyncStatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-status <job-id>",
		Short: "Get the status of an ingestion job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var status kb.JobStatus
			if err := client.Get(cmd.Context(), "/api/kb/sync/"+args[0], &status); err != nil {
				return err
			}
			return api.Output(status)
		},
	}
}
