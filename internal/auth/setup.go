package auth

import (
	"log"

	"github.com/ToySwap/TS-Backend/internal/db"
	"github.com/ToySwap/TS-Backend/internal/geocoding"
)

var geocoder *geocoding.Client

func Init() {
	if err := db.EnsureSchema(db.DB, "app_auth"); err != nil {
		log.Fatal("Failed to ensure schema app_auth: ", err)
	}

	if err := db.DB.AutoMigrate(&User{}, &Session{}); err != nil {
		log.Fatal("Failed to auto-migrate tables: ", err)
	}

	var err error
	geocoder, err = geocoding.NewClient()
	if err != nil {
		log.Fatal("Failed to create geocoding client: ", err)
	}
	if geocoder == nil {
		log.Println("GOOGLE_MAPS_API_KEY not set; onboarding requires explicit coordinates")
	}
}
