package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/campus/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface, implemented by the sqlite and
// postgres drivers. Repositories hang off the Store so a transaction can hand
// out the same repositories bound to itself.
type Store interface {
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// WithTx runs fn inside one transaction: committed when fn returns nil,
	// rolled back otherwise. Refresh rotation goes through here.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is the view of the store inside WithTx. Transactions do not nest.
type Tx interface {
	RefreshTokens() RefreshTokens
}

// RunTx is the WithTx body shared by the SQL drivers. bind wraps the open
// transaction in the driver's repositories.
func RunTx(ctx context.Context, db *sql.DB, bind func(*sql.Tx) Tx, fn func(Tx) error) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// No-op once committed; also covers a panic in fn.
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(bind(sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// RefreshTokens persists refresh tokens keyed by fingerprint. An owner may
// hold any number of live tokens, one per device.
type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	// ErrAlreadyExists if the fingerprint is taken.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// ListRefreshTokensByUser returns every token of the owner, oldest first.
	ListRefreshTokensByUser(ctx context.Context, userID int64) ([]domain.RefreshToken, error)

	// DeleteRefreshToken removes one token. ErrNotFound if nothing was
	// deleted, which rotation uses to detect a concurrent refresh.
	DeleteRefreshToken(ctx context.Context, hash string) error

	// DeleteRefreshTokensByUser removes every token of the owner (logout on
	// all devices) and reports how many went.
	DeleteRefreshTokensByUser(ctx context.Context, userID int64) (int64, error)

	// DeleteExpiredRefreshTokens is housekeeping: removes tokens whose expiry
	// is at or before now.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}
