package auth

import (
	"net/http"

	"github.com/ToySwap/TS-Backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()
	sessionFetcher := SessionInfo{}

	r.Post("/register", RegisterHandler)
	r.Post("/login", LoginHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessionFetcher))
		r.Post("/logout", LogoutHandler)
		r.Get("/me", MeHandler)
		r.Post("/password", UpdatePasswordHandler)
		r.Put("/location", UpdateLocationHandler)
		r.Post("/avatar/upload-url", AvatarUploadURLHandler)
		r.Put("/avatar", SetAvatarHandler)
	})

	return r
}
