package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the seats table when it does not exist yet.  The
// catalog is the only durable table owned by this service; occupancy and
// waitlist state live in Redis.  Soft deletion flips is_active instead of
// removing the row, so a label maps to at most one row for its whole life
// and the UNIQUE KEY on label makes duplicate creation a hard constraint.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const ddl = `CREATE TABLE IF NOT EXISTS seats (
	    id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	    label      INT UNSIGNED    NOT NULL,
	    status     ENUM('available','closed') NOT NULL DEFAULT 'available',
	    is_active  TINYINT(1)      NOT NULL DEFAULT 1,
	    created_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
	    updated_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	    PRIMARY KEY (id),
	    UNIQUE KEY uq_seats_label (label)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	_, err := db.ExecContext(ctx, ddl)
	return err
}
