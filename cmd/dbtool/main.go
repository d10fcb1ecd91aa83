package main

import (
	"flag"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"carpark-data-service/internal/adapters/repositories"
	"carpark-data-service/internal/config"
	"carpark-data-service/internal/platform/db"
)

// dbtool manages the Postgres schema outside the server process:
//
//	dbtool -cmd init    create the carpark tables
//	dbtool -cmd seed    init, then load carparks from a JSON fixture
//	dbtool -cmd reset   drop and recreate the carpark tables
func main() {
	cmd := flag.String("cmd", "init", "init | seed | reset")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pg, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pg.Close()

	switch *cmd {
	case "init":
		log.Println("Initializing database schema...")
		if err := repositories.InitSchema(pg); err != nil {
			log.Fatalf("schema initialization failed: %v", err)
		}
		log.Println("Schema ready.")

	case "seed":
		log.Println("Initializing database schema...")
		if err := repositories.InitSchema(pg); err != nil {
			log.Fatalf("schema initialization failed: %v", err)
		}

		seedPath := config.Get("SEED_PATH", "data/seeds/carparks.json")
		log.Printf("Seeding carparks from %s...", seedPath)
		if err := repositories.SeedFromJSON(pg, seedPath); err != nil {
			log.Fatalf("seeding failed: %v", err)
		}
		log.Println("Seeding complete.")

	case "reset":
		log.Println("Dropping carpark tables...")
		if err := repositories.ResetSchema(pg); err != nil {
			log.Fatalf("reset failed: %v", err)
		}
		if err := repositories.InitSchema(pg); err != nil {
			log.Fatalf("schema initialization failed: %v", err)
		}
		log.Println("Reset complete.")

	default:
		log.Fatalf("unknown command %q (want init, seed or reset)", *cmd)
	}
}
