package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/codevakure/lonb/internal/api"
	"github.com/codevakure/lonb/internal/booking"
	"github.com/codevakure/lonb/internal/svcctx"
)

// CreateBookingRequest is the body for POST /api/bookings.
type CreateBookingRequest struct {
	LoanBookingID string `json:"loan_booking_id"`
	ProductName   string `json:"product_name"`
	CustomerName  string `json:"customer_name"`
}

// CreateBookingEndpoint handles POST /api/bookings.
type CreateBookingEndpoint struct{}

func (e *CreateBookingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/bookings", e.handler
}

func (e *CreateBookingEndpoint) RequiresInit() bool { return true }

func (e *CreateBookingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var body CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.LoanBookingID == "" {
		writeError(w, http.StatusBadRequest, "loan_booking_id is required")
		return
	}

	rec := booking.Record{
		LoanBookingID: body.LoanBookingID,
		ProductName:   body.ProductName,
		CustomerName:  body.CustomerName,
	}
	if err := svcctx.BookingsFrom(r.Context()).Create(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (e *CreateBookingEndpoint) Command(getServerURL func() string) *cobra.Command {
	var product, customer string
	cmd := &cobra.Command{
		Use:   "create-booking <booking-id>",
		Short: "Create a loan booking record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := CreateBookingRequest{
				LoanBookingID: args[0],
				ProductName:   product,
				CustomerName:  customer,
			}
			client := api.NewClient(getServerURL())
			var rec booking.Record
			if err := client.Post(cmd.Context(), "/api/bookings", body, &rec); err != nil {
				return err
			}
			return api.Output(rec)
		},
	}
	cmd.Flags().StringVar(&product, "product", "", "loan product name")
	cmd.Flags().StringVar(&customer, "customer", "", "customer name")
	return cmd
}

// ListBookingsEndpoint handles GET /api/bookings.
type ListBookingsEndpoint struct{}

func (e *ListBookingsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/bookings", e.handler
}

func (e *ListBookingsEndpoint) RequiresInit() bool { return true }

func (e *ListBookingsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	records, err := svcctx.BookingsFrom(r.Context()).List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []booking.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (e *ListBookingsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "bookings",
		Short: "List loan bookings",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var records []booking.Record
			if err := client.Get(cmd.Context(), "/api/bookings", &records); err != nil {
				return err
			}
			return api.Output(records)
		},
	}
}

// GetBookingEndpoint handles GET /api/bookings/{id}.
type GetBookingEndpoint struct{}

func (e *GetBookingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/bookings/{id}", e.handler
}

func (e *GetBookingEndpoint) RequiresInit() bool { return true }

func (e *GetBookingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := svcctx.BookingsFrom(r.Context()).Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (e *GetBookingEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "booking <booking-id>",
		Short: "Get a loan booking by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var rec booking.Record
			if err := client.Get(cmd.Context(), "/api/bookings/"+args[0], &rec); err != nil {
				return err
			}
			return api.Output(rec)
		},
	}
}
