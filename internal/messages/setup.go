package messages

import (
	"log"

	"github.com/ToySwap/TS-Backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "app_messages"); err != nil {
		log.Fatal("Failed to ensure schema app_messages: ", err)
	}

	if err := db.DB.AutoMigrate(&Conversation{}, &Message{}); err != nil {
		log.Fatal("Failed to auto-migrate tables: ", err)
	}
}
