package toys

import (
	"log"

	"github.com/ToySwap/TS-Backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "app_toys"); err != nil {
		log.Fatal("Failed to ensure schema app_toys: ", err)
	}

	if err := db.DB.AutoMigrate(&Toy{}, &Category{}); err != nil {
		log.Fatal("Failed to auto-migrate tables: ", err)
	}
}
