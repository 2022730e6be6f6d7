package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/ToySwap/TS-Backend/internal/auth"
	"github.com/ToySwap/TS-Backend/internal/db"
	"github.com/ToySwap/TS-Backend/internal/messages"
	"github.com/ToySwap/TS-Backend/internal/middleware"
	"github.com/ToySwap/TS-Backend/internal/reviews"
	"github.com/ToySwap/TS-Backend/internal/toys"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

const (
	loginPath      = "/login"
	onboardingPath = "/onboarding/location"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")
	db.Connect()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	protectedPrefix := os.Getenv("PROTECTED_PREFIX")
	if protectedPrefix == "" {
		protectedPrefix = "/app"
	}

	auth.Init()
	toys.Init()
	messages.Init()
	reviews.Init()

	rl := middleware.NewRateLimiter()
	defer rl.Stop()

	sessions := auth.SessionInfo{}
	profiles := auth.ProfileInfo{}

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Get("/", RootHandler)

	// Login and onboarding APIs live outside the gate so the gate's
	// redirects can never loop back into it.
	r.Mount("/auth", auth.SetupRoutes())

	// Everything under the protected prefix needs a session AND a
	// geo-complete profile. Non-protected routes skip the profile lookup
	// entirely. The general rate limiter runs after the session middleware,
	// which puts the user ID it keys on into the context.
	r.Route(protectedPrefix, func(r chi.Router) {
		r.Use(middleware.SessionRedirectMiddleware(sessions, loginPath))
		r.Use(middleware.GeoGateMiddleware(profiles, onboardingPath))
		r.Use(rl.General())

		r.Mount("/toys", toys.SetupRoutes(rl))
		r.Mount("/messages", messages.SetupRoutes())
		r.Mount("/reviews", reviews.SetupRoutes())
	})

	fmt.Println("Server listening on port :" + port + "...")

	http.ListenAndServe("0.0.0.0:"+port, r)
}
