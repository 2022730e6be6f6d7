package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/ToySwap/TS-Backend/internal/db"
	"github.com/ToySwap/TS-Backend/internal/storage"
	"github.com/ToySwap/TS-Backend/internal/utils"
)

// UpdateLocationHandler is the API behind the location-onboarding page.
// Accepts either a city with explicit coordinates or just a city name, in
// which case we geocode it (when a Maps key is configured).
func UpdateLocationHandler(w http.ResponseWriter, r *http.Request) {
	type locationUpdate struct {
		City string  `json:"city"`
		Lat  float64 `json:"lat"`
		Lng  float64 `json:"lng"`
	}

	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Missing user ID in context")
		return
	}

	var body locationUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	body.City = strings.TrimSpace(body.City)
	if body.City == "" {
		utils.WriteError(w, http.StatusBadRequest, "City is required")
		return
	}

	if body.Lat == 0 || body.Lng == 0 {
		if geocoder == nil {
			utils.WriteError(w, http.StatusBadRequest, "Coordinates are required")
			return
		}
		result, err := geocoder.GeocodeCity(r.Context(), body.City)
		if err != nil {
			log.Println("geocoding city:", err)
			utils.WriteError(w, http.StatusBadRequest, "Couldn't resolve city to coordinates")
			return
		}
		body.City = result.City
		body.Lat = result.Lat
		body.Lng = result.Lng
	}

	var user User
	if err := db.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Couldn't find user")
		return
	}

	updates := map[string]any{"city": body.City, "lat": body.Lat, "lng": body.Lng}
	if err := db.DB.Model(&user).Updates(updates).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to update location")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"city":         body.City,
		"lat":          body.Lat,
		"lng":          body.Lng,
		"geo_complete": true,
	})
}

// AvatarUploadURLHandler issues a short-lived signed PUT URL for an avatar
// image. The client uploads straight to the bucket, then persists the key
// via SetAvatarHandler.
func AvatarUploadURLHandler(w http.ResponseWriter, r *http.Request) {
	type uploadRequest struct {
		ContentType string `json:"content_type"`
	}

	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Missing user ID in context")
		return
	}

	var body uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ContentType == "" {
		utils.WriteError(w, http.StatusBadRequest, "content_type is required")
		return
	}

	svc, err := storage.Shared(r.Context())
	if err != nil {
		log.Println("building storage service:", err)
		utils.WriteError(w, http.StatusInternalServerError, "Image storage unavailable")
		return
	}

	grant, err := svc.SignAvatarWrite(r.Context(), userID, body.ContentType)
	if err != nil {
		if err == storage.ErrNotConfigured {
			utils.WriteError(w, http.StatusServiceUnavailable, "Image storage not configured")
			return
		}
		log.Println("signing avatar upload URL:", err)
		utils.WriteError(w, http.StatusBadRequest, "Couldn't create upload URL")
		return
	}

	utils.WriteJSON(w, http.StatusOK, grant)
}

// SetAvatarHandler persists the uploaded avatar's object key.
func SetAvatarHandler(w http.ResponseWriter, r *http.Request) {
	type setAvatar struct {
		Key string `json:"key"`
	}

	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Missing user ID in context")
		return
	}

	var body setAvatar
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Key == "" {
		utils.WriteError(w, http.StatusBadRequest, "key is required")
		return
	}

	if err := db.DB.Model(&User{}).Where("user_id = ?", userID).
		Update("avatar_key", body.Key).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to save avatar")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "avatar updated"})
}
