package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	config "github.com/tbeaudouin05/subscription-reconciler/api/config"
)

var db *sql.DB

// Initialize connects to Postgres and verifies the connection
func Initialize() error {
	var err error
	dsn := withBinaryParameters(config.AppConfig.DatabaseURL)
	db, err = sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	err = db.Ping()
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Account mutations hold a row lock for the length of one transaction; size the
	// pool so webhook and user traffic do not queue behind each other.
	maxOpen := config.AppConfig.DBMaxOpenConns
	if maxOpen <= 0 {
		maxOpen = config.DefaultDBMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return nil
}

// withBinaryParameters appends binary_parameters=yes to the DSN if not present.
// This nudges lib/pq to avoid server-side prepared statements, which can break with PgBouncer transaction pooling.
func withBinaryParameters(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.Contains(lower, "binary_parameters=") || strings.Contains(lower, "prefer_simple_protocol=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "binary_parameters=yes"
}

// GetDB returns the database connection
func GetDB() *sql.DB {
	return db
}

// Close releases the connection pool.
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}
