package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ToySwap/TS-Backend/internal/db"
	"github.com/ToySwap/TS-Backend/internal/storage"
	"github.com/ToySwap/TS-Backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

const sessionTTL = 6 * time.Hour

// sessionCookie builds the session cookie. Secure is off outside production
// so the cookie still works over plain-HTTP localhost and httptest flows.
func sessionCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     "session_id",
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   os.Getenv("APP_ENV") == "production",
	}
}

func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var user User

	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" || user.Password == "" {
		utils.WriteError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	// Check if username is taken
	var existing User
	if err := db.DB.First(&existing, "username = ?", user.Username).Error; err == nil {
		utils.WriteError(w, http.StatusConflict, "Username already taken")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Server error hashing password")
		return
	}
	user.HashedPassword = string(hashed)
	user.UserID = utils.GenerateUUID()
	user.Password = ""

	if err := db.DB.Create(&user).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]string{
		"user_id":  user.UserID,
		"username": user.Username,
	})
}

func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds User

	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	var user User
	if err := db.DB.First(&user, "username = ?", creds.Username).Error; err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(creds.Password)); err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	sessionID := utils.GenerateUUID()
	expires := time.Now().Add(sessionTTL)

	// One session per user: rotate the existing row if there is one.
	var existing Session
	db.DB.Where("user_id = ?", user.UserID).First(&existing)
	if existing.UserID != "" {
		if err := db.DB.Model(&existing).Updates(Session{
			SessionID: sessionID,
			ExpiresAt: expires,
		}).Error; err != nil {
			utils.WriteError(w, http.StatusInternalServerError, "Failed to create session")
			return
		}
	} else {
		session := Session{SessionID: sessionID, UserID: user.UserID, ExpiresAt: expires}
		if err := db.DB.Create(&session).Error; err != nil {
			utils.WriteError(w, http.StatusInternalServerError, "Failed to create session")
			return
		}
	}

	http.SetCookie(w, sessionCookie(sessionID))

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id":      user.UserID,
		"username":     user.Username,
		"geo_complete": user.GeoComplete(),
	})
}

func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("session_id")
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Couldn't find cookie")
		return
	}

	var session Session
	if err := db.DB.First(&session, "session_id = ?", cookie.Value).Error; err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Couldn't find session")
		return
	}

	db.DB.Delete(&session)

	expired := sessionCookie("")
	expired.MaxAge = -1
	http.SetCookie(w, expired)

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

type MeResponse struct {
	UserID      string  `json:"user_id"`
	Username    string  `json:"username"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	GeoComplete bool    `json:"geo_complete"`
	AvatarURL   string  `json:"avatar_url,omitempty"`
}

func MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Missing user ID in context")
		return
	}

	var user User
	if err := db.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Couldn't find user")
		return
	}

	resp := MeResponse{
		UserID:      user.UserID,
		Username:    user.Username,
		City:        user.City,
		Lat:         user.Lat,
		Lng:         user.Lng,
		GeoComplete: user.GeoComplete(),
	}

	if user.AvatarKey != "" {
		svc, err := storage.Shared(r.Context())
		if err == nil && svc.Configured() {
			if grant, err := svc.SignRead(r.Context(), user.AvatarKey); err == nil {
				resp.AvatarURL = grant.URL
			} else {
				log.Println("signing avatar URL:", err)
			}
		}
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}

func UpdatePasswordHandler(w http.ResponseWriter, r *http.Request) {
	type updatePassword struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Missing user ID in context")
		return
	}

	var body updatePassword
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CurrentPassword == "" || body.NewPassword == "" {
		utils.WriteError(w, http.StatusBadRequest, "Current and new password are required")
		return
	}

	var user User
	if err := db.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Couldn't find user")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(body.CurrentPassword)); err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid current password")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Server error hashing password")
		return
	}

	db.DB.Model(&user).Update("hashed_password", string(hashed))

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}
