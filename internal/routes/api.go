package routes

import (
	"github.com/dukerupert/vor/internal/router"
)

// RegisterAPIRoutes registers the address standardization API
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	r.Post("/api/v1/addresses/validate", deps.ValidateHandler.Validate)
	r.Post("/api/v1/batches", deps.BatchHandler.Process)

	if deps.Async {
		r.Post("/api/v1/batches/async", deps.BatchHandler.Enqueue)
		r.Get("/api/v1/batches/{id}", deps.BatchHandler.Get)
	}
}
