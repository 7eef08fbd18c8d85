package main

import (
	"context"
	"flag"
	"log"
	"time"
	"trip-console/internal/adapters/cache"
	"trip-console/internal/config"
	"trip-console/internal/platform/db"

	"github.com/joho/godotenv"
)

// dbtool prepares the Postgres response cache and removes expired entries.
func main() {
	purge := flag.Bool("purge", false, "delete expired cache entries after ensuring the schema")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := config.Get("DATABASE_URL", "")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	conn, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Println("Initializing response cache schema...")
	if err := cache.InitSchema(ctx, conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	if *purge {
		n, err := cache.NewSQLResponseCache(conn).Purge(ctx)
		if err != nil {
			log.Fatalf("purge failed: %v", err)
		}
		log.Printf("Purged %d expired entries.", n)
	}
}
