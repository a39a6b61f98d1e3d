package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/DoyleJ11/duo-trivia-backend/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	dir := flag.String("dir", "db/migrations", "directory holding the migration files")
	down := flag.Bool("down", false, "roll back every migration instead of applying them")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	m, err := migrate.New("file://"+*dir, mustDatabaseURL())
	if err != nil {
		log.Fatalf("migration setup failed: %v", err)
	}
	defer m.Close()

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("database migration failed: %v", err)
	}
	version, dirty, _ := m.Version()
	log.Printf("database migrations applied (version %d, dirty %v)", version, dirty)
}

func mustDatabaseURL() string {
	for _, key := range []string{config.EnvPrefix + "_DATABASE_URL", "DATABASE_URL"} {
		if dsn := os.Getenv(key); dsn != "" {
			return dsn
		}
	}
	log.Fatal("DATABASE_URL is not set")
	return ""
}
