package toys

import (
	"net/http"

	"github.com/ToySwap/TS-Backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes builds the listings router. Session, geo-gate, and general
// rate-limit middleware are applied by the caller on the protected group;
// only the stricter creation bucket is wired here.
func SetupRoutes(rl *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Get("/", ListToysHandler)
	r.Get("/{id}", GetToyHandler)
	r.Get("/{id}/similar", SimilarToysHandler)
	r.Patch("/{id}", UpdateToyHandler)
	r.Delete("/{id}", DeleteToyHandler)

	// Creation fans out into signing and geocoding, so it gets its own
	// stricter bucket.
	r.Group(func(r chi.Router) {
		r.Use(rl.ListingCreate())
		r.Post("/", CreateToyHandler)
		r.Post("/upload-url", UploadURLHandler)
	})

	return r
}
