package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/DoyleJ11/duo-trivia-backend/internal/config"
	"github.com/DoyleJ11/duo-trivia-backend/internal/store"
)

func main() {
	filePath := flag.String("file", "db/questions.yaml", "path to the questions yaml")
	driver := flag.String("driver", store.DriverPostgres, "postgres or sqlite")
	migrate := flag.Bool("migrate", false, "create missing tables before loading")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	questions, err := store.LoadQuestionFile(*filePath)
	if err != nil {
		log.Fatalf("failed to read questions: %v", err)
	}

	st, err := store.Open(*driver, mustDatabaseURL(), store.PoolConfig{})
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer st.Close()

	if *migrate {
		if err := st.Migrate(); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}

	n, err := store.SeedQuestions(context.Background(), st, questions)
	if err != nil {
		log.Fatalf("failed to load questions: %v", err)
	}
	log.Printf("loaded %d questions in %d categories", n, len(questions.Categories))
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
