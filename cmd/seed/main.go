package main

import (
	"flag"
	"log"

	"github.com/ToySwap/TS-Backend/internal/auth"
	"github.com/ToySwap/TS-Backend/internal/db"
	"github.com/ToySwap/TS-Backend/internal/seeds"
	"github.com/ToySwap/TS-Backend/internal/toys"
	"github.com/joho/godotenv"
)

func main() {
	fixture := flag.String("fixture", "seeds/fixtures/catalog.yaml", "path to the YAML fixture")
	flag.Parse()

	_ = godotenv.Load(".env.local")
	db.Connect()

	// Migrations fire in the feature Inits.
	auth.Init()
	toys.Init()

	fx, err := seeds.Load(*fixture)
	if err != nil {
		log.Fatal("Failed to load fixture: ", err)
	}

	if err := seeds.Apply(fx); err != nil {
		log.Fatal("Failed to apply fixture: ", err)
	}

	log.Printf("Seeded %d categories, %d users, %d toys",
		len(fx.Categories), len(fx.Users), len(fx.Toys))
}
