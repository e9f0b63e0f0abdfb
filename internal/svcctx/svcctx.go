// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/codevakure/lonb/internal/booking"
	"github.com/codevakure/lonb/internal/config"
	"github.com/codevakure/lonb/internal/extract"
	"github.com/codevakure/lonb/internal/kb"
	"github.com/codevakure/lonb/internal/schema"
	"github.com/codevakure/lonb/internal/storage"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Schemas       *schema.Registry
	Extractor     *extract.Extractor
	Documents     *storage.Store
	Bookings      *booking.Store
	Ingestion     *kb.Ingestion
	ConfigManager *config.Manager
	Logger        *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// SchemasFrom extracts the schema registry from context.
func SchemasFrom(ctx context.Context) *schema.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Schemas
	}
	return nil
}

// ExtractorFrom extracts the extraction pipeline from context.
func ExtractorFrom(ctx context.Context) *extract.Extractor {
	if s := ServicesFrom(ctx); s != nil {
		return s.Extractor
	}
	return nil
}

// DocumentsFrom extracts the document store from context.
func DocumentsFrom(ctx context.Context) *storage.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Documents
	}
	return nil
}

// BookingsFrom extracts the booking store from context.
func BookingsFrom(ctx context.Context) *booking.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Bookings
	}
	return nil
}

// IngestionFrom extracts the ingestion helper from context.
func IngestionFrom(ctx context.Context) *kb.Ingestion {
	if s := ServicesFrom(ctx); s != nil {
		return s.Ingestion
	}
	return nil
}

// ConfigManagerFrom extracts the config manager from context.
func ConfigManagerFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigManager
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}
