package main

import (
	"database/sql"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"ride-pool-service/internal/adapters/cache"
	"ride-pool-service/internal/config"
	"ride-pool-service/internal/platform/db"
)

// cachetool prepares the leg cache schema so the optimizer can start with a
// warm-capable backend. Run it once per environment before pointing
// CACHE_BACKEND at sqlite or postgres.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := config.Load()

	var (
		conn *sql.DB
		err  error
	)
	switch cfg.CacheBackend {
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			log.Fatal("DATABASE_URL is required for the postgres backend")
		}
		conn, err = db.OpenPostgres(cfg.DatabaseURL)
	case "sqlite", "":
		conn, err = db.OpenSQLite(cfg.SQLitePath)
	case "redis":
		log.Println("redis backend needs no schema, nothing to do")
		os.Exit(0)
	default:
		log.Fatalf("unknown cache backend %q", cfg.CacheBackend)
	}
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	log.Println("Initializing leg cache schema...")
	if err := cache.InitSchema(conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")
}
