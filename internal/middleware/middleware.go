package middleware

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ToySwap/TS-Backend/internal/utils"
)

type SessionFetcher interface {
	FindSessionByID(id string) (utils.SessionData, error)
}

// GeoProfile is the gate's view of a user profile: just the fields that
// decide whether location onboarding is done.
type GeoProfile struct {
	City string
	Lat  float64
	Lng  float64
}

// Complete reports whether city and both coordinates are populated.
func (p GeoProfile) Complete() bool {
	return p.City != "" && p.Lat != 0 && p.Lng != 0
}

type ProfileFetcher interface {
	FindGeoProfileByID(userID string) (GeoProfile, error)
}

// SessionMiddleware authenticates API requests from the session_id cookie
// and rejects with 401 when the session is missing, unknown, or expired.
// On success the user ID lands in the request context.
func SessionMiddleware(fetcher SessionFetcher) func(http.Handler) http.Handler {
	return sessionMiddleware(fetcher, "")
}

// SessionRedirectMiddleware is SessionMiddleware for browser-facing route
// groups: instead of a 401 it sends the caller to the login page.
func SessionRedirectMiddleware(fetcher SessionFetcher, loginPath string) func(http.Handler) http.Handler {
	return sessionMiddleware(fetcher, loginPath)
}

func sessionMiddleware(fetcher SessionFetcher, loginPath string) func(http.Handler) http.Handler {
	deny := func(w http.ResponseWriter, r *http.Request, msg string) {
		if loginPath != "" {
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}
		http.Error(w, msg, http.StatusUnauthorized)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie("session_id")
			if err != nil {
				deny(w, r, "Couldn't find cookie")
				return
			}

			session, err := fetcher.FindSessionByID(cookie.Value)
			if err != nil {
				deny(w, r, "Couldn't find session")
				return
			}

			if session.ExpiresAt.Before(time.Now()) {
				deny(w, r, "Session expired")
				return
			}

			ctx := context.WithValue(r.Context(), utils.ContextUserIDKey, session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GeoGateMiddleware redirects authenticated users whose profile is missing
// city or coordinates to the location-onboarding page. Mount it only on the
// protected route group so every other route skips the profile lookup.
//
// A failed lookup counts as incomplete: a store outage must never wave
// requests through.
func GeoGateMiddleware(profiles ProfileFetcher, onboardingPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized: missing user ID in context", http.StatusUnauthorized)
				return
			}

			profile, err := profiles.FindGeoProfileByID(userID)
			if err != nil || !profile.Complete() {
				http.Redirect(w, r, onboardingPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

var allowed = map[string]struct{}{
	"http://localhost:5173":        {},
	"http://localhost:5174":        {},
	"https://app.toyswap.club":     {},
	"https://staging.toyswap.club": {},
}

func init() {
	// Extra origins for preview deploys, comma-separated.
	for _, origin := range strings.Split(os.Getenv("CORS_EXTRA_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = struct{}{}
		}
	}
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Echo the origin back only if it's on our allow-list
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin") // important for caches
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods",
				"GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers",
				"Content-Type, Authorization")
		}

		w.Header().Set("Access-Control-Expose-Headers", "Retry-After, Cache-Control")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
