package auth

import (
	"github.com/ToySwap/TS-Backend/internal/db"
	"github.com/ToySwap/TS-Backend/internal/middleware"
	"github.com/ToySwap/TS-Backend/internal/utils"
)

// SessionInfo backs the session middleware with the app_auth.sessions table.
type SessionInfo struct{}

func (si SessionInfo) FindSessionByID(id string) (utils.SessionData, error) {
	var session Session

	err := db.DB.First(&session, "session_id = ?", id).Error
	if err != nil {
		return utils.SessionData{}, err
	}

	return utils.SessionData{
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// ProfileInfo backs the geo gate with the app_auth.users table. Only the
// three onboarding fields are selected.
type ProfileInfo struct{}

func (pi ProfileInfo) FindGeoProfileByID(userID string) (middleware.GeoProfile, error) {
	var user User

	err := db.DB.Select("city", "lat", "lng").First(&user, "user_id = ?", userID).Error
	if err != nil {
		return middleware.GeoProfile{}, err
	}

	return middleware.GeoProfile{
		City: user.City,
		Lat:  user.Lat,
		Lng:  user.Lng,
	}, nil
}
