// Package database holds the gorm stores. jinzhu/gorm v1 takes no context, so
// store methods accept ctx for their callers' interfaces and honor it only at
// the start of a write transaction: a cancelled ctx aborts before any statement.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmlink/internal/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL driver (lib/pq)
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Open connects to the configured database. driver is "sqlite3" or "postgres".
func Open(driver, url string) (*gorm.DB, error) {
	db, err := gorm.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		// sqlite serializes writers; an in-memory database also exists per connection
		db.DB().SetMaxOpenConns(1)
	} else {
		db.DB().SetMaxIdleConns(10)
		db.DB().SetMaxOpenConns(100)
	}
	db.DB().SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate creates or updates every table the service needs.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Order{},
		&models.TrackingEvent{},
		&models.TraceabilityRecord{},
		&models.Product{},
	).Error
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// transaction runs fn in a database transaction, rolling back on error or panic.
func transaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// uniqueViolation reports whether err is a unique constraint failure on either driver.
func uniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
