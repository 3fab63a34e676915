package routes

import (
	"github.com/dukerupert/vor/internal/handler/api"
)

// APIDeps contains dependencies for the JSON API routes
type APIDeps struct {
	ValidateHandler *api.ValidateHandler
	BatchHandler    *api.BatchHandler

	// Async is false when no job store is configured; the async batch
	// routes are then not registered.
	Async bool
}
