package reviews

import (
	"log"

	"github.com/ToySwap/TS-Backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "app_reviews"); err != nil {
		log.Fatal("Failed to ensure schema app_reviews: ", err)
	}

	if err := db.DB.AutoMigrate(&Review{}); err != nil {
		log.Fatal("Failed to auto-migrate tables: ", err)
	}

	// Postgres treats NULLs as distinct, so idx_review_once alone lets two
	// general reviews (toy_id IS NULL) through. A partial index closes that.
	if err := db.DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_review_once_general
		ON app_reviews.reviews (reviewer_id, subject_id) WHERE toy_id IS NULL`).Error; err != nil {
		log.Fatal("Failed to create review uniqueness index: ", err)
	}
}
