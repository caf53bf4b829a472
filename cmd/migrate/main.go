package main

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	log.Println("Connected to database, running migrations...")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			position     BIGSERIAL,
			id           TEXT PRIMARY KEY,
			type         TEXT NOT NULL,
			symbol       TEXT NOT NULL DEFAULT '',
			condition    TEXT NOT NULL DEFAULT '',
			threshold    DOUBLE PRECISION NOT NULL,
			active       BOOLEAN NOT NULL DEFAULT TRUE,
			triggered    BOOLEAN NOT NULL DEFAULT FALSE,
			triggered_at TIMESTAMPTZ,
			created_at   TIMESTAMPTZ NOT NULL,
			last_price   DOUBLE PRECISION,
			avg_volume   DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_eligible ON alerts (position) WHERE active AND NOT triggered`,
		`CREATE TABLE IF NOT EXISTS alert_log (
			position        BIGSERIAL PRIMARY KEY,
			time            TIMESTAMPTZ NOT NULL,
			alert_id        TEXT NOT NULL,
			symbol          TEXT NOT NULL DEFAULT '',
			type            TEXT NOT NULL,
			condition       TEXT NOT NULL DEFAULT '',
			value           DOUBLE PRECISION NOT NULL,
			triggered_value DOUBLE PRECISION NOT NULL
		)`,
	}

	for _, migration := range migrations {
		_, err := pool.Exec(ctx, migration)
		if err != nil {
			log.Printf("WARNING: Migration failed: %v", err)
		} else {
			log.Println("✓ Success")
		}
	}

	log.Println("All migrations completed")
}
