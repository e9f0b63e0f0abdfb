package endpoints

import (
	"github.com/codevakure/lonb/internal/api"
)

// All returns all endpoint instances. Dependencies flow through the request
// context via svcctx, so endpoints carry no state of their own.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},

		// Schema endpoints
		&ListSchemasEndpoint{},
		&GetSchemaEndpoint{},

		// Booking endpoints
		&CreateBookingEndpoint{},
		&ListBookingsEndpoint{},
		&GetBookingEndpoint{},

		// Document endpoints
		&UploadDocumentEndpoint{},
		&ListDocumentsEndpoint{},
		&DeleteDocumentEndpoint{},

		// Knowledge base sync endpoints
		&SyncEndpoint{},
		&SyncStatusEndpoint{},

		// Extraction endpoint
		&ExtractEndpoint{},
	}
}
