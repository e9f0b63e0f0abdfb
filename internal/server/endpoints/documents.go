package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codevakure/lonb/internal/api"
	"github.com/codevakure/lonb/internal/storage"
	"github.com/codevakure/lonb/internal/svcctx"
)

// UploadResponse is returned after a document upload.
type UploadResponse struct {
	Key string `json:"key"`
}

// UploadDocumentEndpoint handles POST /api/bookings/{id}/documents.
// The request body is the raw document; the filename comes from a query
// parameter so arbitrary binary formats pass through untouched.
type UploadDocumentEndpoint struct{}

func (e *UploadDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/bookings/{id}/documents", e.handler
}

func (e *UploadDocumentEndpoint) RequiresInit() bool { return true }

func (e *UploadDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	bookingID := r.PathValue("id")
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "filename query parameter is required")
		return
	}

	store := svcctx.DocumentsFrom(r.Context())
	key, err := store.Upload(r.Context(), bookingID, filename, r.Body, r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Flag update is best effort; the document is already stored.
	if bookings := svcctx.BookingsFrom(r.Context()); bookings != nil {
		if err := bookings.SetDocumentsUploaded(r.Context(), bookingID); err != nil {
			if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
				logger.Warn("failed to flag documents uploaded",
					"booking_id", bookingID, "error", err)
			}
		}
	}

	writeJSON(w, http.StatusCreated, UploadResponse{Key: key})
}

func (e *UploadDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <booking-id> <file>",
		Short: "Upload a loan document for a booking",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[1], err)
			}
			defer f.Close()

			path := fmt.Sprintf("/api/bookings/%s/documents?filename=%s",
				args[0], url.QueryEscape(filepath.Base(args[1])))
			client := api.NewClient(getServerURL())
			var resp UploadResponse
			if err := client.PostRaw(cmd.Context(), path, "application/octet-stream", f, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ListDocumentsEndpoint handles GET /api/bookings/{id}/documents.
type ListDocumentsEndpoint struct{}

func (e *ListDocumentsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/bookings/{id}/documents", e.handler
}

func (e *ListDocumentsEndpoint) RequiresInit() bool { return true }

func (e *ListDocumentsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	bookingID := r.PathValue("id")
	objects, err := svcctx.DocumentsFrom(r.Context()).List(r.Context(), bookingID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if objects == nil {
		objects = []storage.ObjectInfo{}
	}
	writeJSON(w, http.StatusOK, objects)
}

func (e *ListDocumentsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "documents <booking-id>",
		Short: "List documents stored for a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var objects []storage.ObjectInfo
			if err := client.Get(cmd.Context(), "/api/bookings/"+args[0]+"/documents", &objects); err != nil {
				return err
			}
			return api.Output(objects)
		},
	}
}

// DeleteDocumentEndpoint handles DELETE /api/documents. The object key
// arrives as a query parameter because keys contain slashes.
type DeleteDocumentEndpoint struct{}

func (e *DeleteDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/documents", e.handler
}

func (e *DeleteDocumentEndpoint) RequiresInit() bool { return true }

func (e *DeleteDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key query parameter is required")
		return
	}
	if err := svcctx.DocumentsFrom(r.Context()).Delete(r.Context(), key); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-document <key>",
		Short: "Delete a stored document and its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			return client.Delete(cmd.Context(), "/api/documents?key="+url.QueryEscape(args[0]))
		},
	}
}
