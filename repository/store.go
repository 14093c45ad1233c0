package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DefaultTimeout caps every store call so a slow database surfaces as an error instead of a hang.
const DefaultTimeout = 5 * time.Second

var (
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrInsufficientPayable = errors.New("claim exceeds payable balance")
)

type store struct {
	db      *gorm.DB
	timeout time.Duration
}

func newStore(db *gorm.DB, timeout time.Duration) store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return store{db: db, timeout: timeout}
}

func (s store) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

// unavailable tags any driver/gorm failure (timeouts included) as ErrStorageUnavailable.
func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// Ping checks the underlying connection within the store timeout.
func Ping(ctx context.Context, db *gorm.DB, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return unavailable("ping", err)
	}
	return unavailable("ping", sqlDB.PingContext(ctx))
}
