package auth_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ToySwap/TS-Backend/internal/auth"
	"github.com/ToySwap/TS-Backend/internal/db"
	"github.com/ToySwap/TS-Backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// dbAvailable tracks whether the database connection was established.
var dbAvailable bool

// testServer is the shared httptest server for all integration tests.
var testServer *httptest.Server

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env.local")

	if os.Getenv("DATABASE_URL") == "" {
		// No database available — every test skips itself.
		os.Exit(m.Run())
	}

	// Plain-HTTP cookies for httptest.
	os.Setenv("APP_ENV", "")

	db.Connect()
	dbAvailable = true

	auth.Init()

	// Mirror the production router: auth outside the gate, a protected
	// group behind session + geo gate.
	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Mount("/auth", auth.SetupRoutes())
	r.Route("/app", func(r chi.Router) {
		r.Use(middleware.SessionRedirectMiddleware(auth.SessionInfo{}, "/login"))
		r.Use(middleware.GeoGateMiddleware(auth.ProfileInfo{}, "/onboarding/location"))
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	testServer = httptest.NewServer(r)
	defer testServer.Close()

	os.Exit(m.Run())
}

func skipWithoutDB(t *testing.T) {
	t.Helper()
	if !dbAvailable {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}
}

// createTestUser inserts a unique user and registers cleanup. Returns the
// username and plaintext password.
func createTestUser(t *testing.T) (username, password string) {
	t.Helper()
	skipWithoutDB(t)

	username = fmt.Sprintf("testuser_%s", uuid.New().String()[:8])
	password = "TestPass123!"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}

	user := auth.User{
		UserID:         uuid.New().String(),
		Username:       username,
		HashedPassword: string(hashed),
	}
	if err := db.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	t.Cleanup(func() {
		db.DB.Where("user_id = ?", user.UserID).Delete(&auth.Session{})
		db.DB.Where("user_id = ?", user.UserID).Delete(&auth.User{})
	})

	return username, password
}

func newClientWithJar(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New: %v", err)
	}
	return &http.Client{
		Jar: jar,
		// Don't follow the gate's redirects; tests assert on them.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func loginUser(t *testing.T, client *http.Client, username, password string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	resp, err := client.Post(testServer.URL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /auth/login: %v", err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

// TestLoginReturnsSessionCookie verifies POST /auth/login with valid
// credentials returns 200, a session_id cookie, and the geo_complete flag.
func TestLoginReturnsSessionCookie(t *testing.T) {
	username, password := createTestUser(t)
	client := newClientWithJar(t)

	resp := loginUser(t, client, username, password)
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var gotCookie bool
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" && c.Value != "" {
			gotCookie = true
		}
	}
	if !gotCookie {
		t.Error("expected a session_id cookie")
	}
	if !strings.Contains(body, `"geo_complete":false`) {
		t.Errorf("expected geo_complete:false for a fresh user, got: %s", body)
	}
}

// TestLoginRejectsBadPassword verifies wrong credentials get a 401.
func TestLoginRejectsBadPassword(t *testing.T) {
	username, _ := createTestUser(t)
	client := newClientWithJar(t)

	resp := loginUser(t, client, username, "wrong-password")
	readBody(t, resp)

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

// TestGateRedirectsWithoutSession verifies an anonymous request to the
// protected prefix is sent to the login page.
func TestGateRedirectsWithoutSession(t *testing.T) {
	skipWithoutDB(t)
	client := newClientWithJar(t)

	resp, err := client.Get(testServer.URL + "/app/ping")
	if err != nil {
		t.Fatalf("GET /app/ping: %v", err)
	}
	readBody(t, resp)

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Errorf("expected redirect to /login, got %q", loc)
	}
}

// TestGateOnboardingFlow verifies a logged-in user without location data is
// redirected to onboarding, and passes through once the location is set.
func TestGateOnboardingFlow(t *testing.T) {
	username, password := createTestUser(t)
	client := newClientWithJar(t)

	resp := loginUser(t, client, username, password)
	readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	// Geo-incomplete: gate redirects to onboarding.
	resp, err := client.Get(testServer.URL + "/app/ping")
	if err != nil {
		t.Fatalf("GET /app/ping: %v", err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 before onboarding, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/onboarding/location" {
		t.Errorf("expected redirect to onboarding, got %q", loc)
	}

	// Complete onboarding with explicit coordinates.
	locBody, _ := json.Marshal(map[string]any{
		"city": "Portland",
		"lat":  45.5152,
		"lng":  -122.6784,
	})
	req, _ := http.NewRequest(http.MethodPut, testServer.URL+"/auth/location", bytes.NewReader(locBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("PUT /auth/location: %v", err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("location update failed: %d: %s", resp.StatusCode, body)
	}

	// Gate now passes through.
	resp, err = client.Get(testServer.URL + "/app/ping")
	if err != nil {
		t.Fatalf("GET /app/ping: %v", err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 after onboarding, got %d", resp.StatusCode)
	}
}

// TestMeReflectsProfile verifies GET /auth/me returns the profile fields and
// geo_complete flips after a location update.
func TestMeReflectsProfile(t *testing.T) {
	username, password := createTestUser(t)
	client := newClientWithJar(t)

	resp := loginUser(t, client, username, password)
	readBody(t, resp)

	resp, err := client.Get(testServer.URL + "/auth/me")
	if err != nil {
		t.Fatalf("GET /auth/me: %v", err)
	}
	var me auth.MeResponse
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		t.Fatalf("decode /auth/me: %v", err)
	}
	resp.Body.Close()

	if me.Username != username {
		t.Errorf("expected username %q, got %q", username, me.Username)
	}
	if me.GeoComplete {
		t.Error("expected geo_complete false for a fresh user")
	}
}

// TestLogoutClearsSession verifies the session row dies with logout.
func TestLogoutClearsSession(t *testing.T) {
	username, password := createTestUser(t)
	client := newClientWithJar(t)

	resp := loginUser(t, client, username, password)
	readBody(t, resp)

	resp, err := client.Post(testServer.URL+"/auth/logout", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /auth/logout: %v", err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout failed: %d", resp.StatusCode)
	}

	resp, err = client.Get(testServer.URL + "/auth/me")
	if err != nil {
		t.Fatalf("GET /auth/me: %v", err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

// TestExpiredSessionRejected verifies a session past its expiry is refused.
func TestExpiredSessionRejected(t *testing.T) {
	username, password := createTestUser(t)
	client := newClientWithJar(t)

	resp := loginUser(t, client, username, password)
	readBody(t, resp)

	// Age the session out from underneath the client.
	var user auth.User
	if err := db.DB.First(&user, "username = ?", username).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if err := db.DB.Model(&auth.Session{}).
		Where("user_id = ?", user.UserID).
		Update("expires_at", time.Now().Add(-1*time.Minute)).Error; err != nil {
		t.Fatalf("expire session: %v", err)
	}

	resp, err := client.Get(testServer.URL + "/auth/me")
	if err != nil {
		t.Fatalf("GET /auth/me: %v", err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for an expired session, got %d", resp.StatusCode)
	}
}
