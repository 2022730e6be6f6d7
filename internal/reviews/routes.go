package reviews

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Post("/", CreateReviewHandler)
	r.Get("/user/{id}", ListUserReviewsHandler)

	return r
}
