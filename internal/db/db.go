package db

import (
	"database/sql"
	_ "embed"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schema string

// Connect opens a Postgres pool and waits for the server to accept pings,
// retrying while the database container is still starting.
func Connect(dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(time.Hour)

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			return db, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("database not ready")
		time.Sleep(time.Duration(500+i*200) * time.Millisecond)
	}
	_ = db.Close()
	return nil, err
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
