package main

// Run database migrations:
//   go run ./cmd/migrate             (DATABASE_URL, or SQLITE_PATH when unset)
//   go run ./cmd/migrate -sqlite ./data/dreams.db

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"strings"

	"dream-backend/internal/shared/config"
	"dream-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	sqlitePath := flag.String("sqlite", "", "Migrate this SQLite file instead of DATABASE_URL")
	flag.Parse()

	ctx := context.Background()
	var (
		sqlDB   *sql.DB
		dialect string
		err     error
	)
	switch {
	case strings.TrimSpace(*sqlitePath) != "":
		sqlDB, err = db.OpenSQLite(ctx, *sqlitePath)
		dialect = db.DialectSQLite
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
		dialect = db.DialectPostgres
	default:
		sqlDB, err = db.OpenSQLite(ctx, cfg.SQLitePath)
		dialect = db.DialectSQLite
	}
	if err != nil {
		log.Printf("failed to open database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	log.Printf("migrations applied (%s)", dialect)
}
