package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"qwerty/api/models"
)

type PostgresUserStore struct {
	db  *sql.DB
	log *zap.Logger
}

func NewPostgresUserStore(db *sql.DB, log *zap.Logger) *PostgresUserStore {
	return &PostgresUserStore{db: db, log: log}
}

const userColumns = `id, name, email, avatar_url, hashed_password, created_at, updated_at`

func (s *PostgresUserStore) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.AvatarURL,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *PostgresUserStore) CreateUser(ctx context.Context, name, email, avatarURL string, hashedPassword []byte) (*models.User, error) {
	query := `
		INSERT INTO users (name, email, avatar_url, hashed_password)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, name, email, avatarURL, hashedPassword))
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("User created", zap.Int("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

func (s *PostgresUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresUserStore) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (s *PostgresUserStore) UpdateName(ctx context.Context, id int, name string) (*models.User, error) {
	query := `
		UPDATE users
		SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + userColumns
	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, name, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}
