// Package store persists identity service users in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/campus/internal/identity/domain"
	"github.com/aussiebroadwan/campus/internal/identity/store/migrations"
	"github.com/aussiebroadwan/campus/pkg/migratex"

	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Users is the user repository.
type Users interface {
	CreateUser(ctx context.Context, u domain.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	GetUserByID(ctx context.Context, id int64) (domain.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// SQLite implements Users on a modernc SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens dsn. ":memory:" databases are pinned to one connection.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ApplyMigrations brings the users schema up to date.
func (s *SQLite) ApplyMigrations() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	return migratex.Up(migrations.Migrations, "sqlite", driver)
}

const userColumns = `id, username, password_hash, roles, created_at`

func (s *SQLite) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, roles, created_at) VALUES (?, ?, ?, ?)`,
		u.Username, u.PasswordHash, strings.Join(u.Roles, " "), u.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLite) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (s *SQLite) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *SQLite) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (s *SQLite) getUser(ctx context.Context, query string, arg any) (domain.User, error) {
	var (
		u       domain.User
		roles   string
		created int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &roles, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	u.Roles = strings.Fields(roles)
	u.CreatedAt = time.UnixMilli(created).UTC()
	return u, nil
}
