package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/javier/tender-desk/internal/models"
)

var ErrNotFound = errors.New("not found")

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CompanyName  string    `json:"company_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, companyName string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, company_name)
		VALUES ($1, $2, $3)
		RETURNING id, email, password_hash, COALESCE(company_name, ''), created_at
	`, email, passwordHash, nullable(companyName)).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CompanyName, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user failed: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, COALESCE(company_name, ''), created_at
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CompanyName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user failed: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, COALESCE(company_name, ''), created_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CompanyName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user failed: %w", err)
	}
	return &u, nil
}

func (s *Store) AddToWatchlist(ctx context.Context, userID, tenderID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO watchlist (user_id, tender_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, tenderID)
	if err != nil {
		return fmt.Errorf("watchlist insert failed: %w", err)
	}
	return nil
}

func (s *Store) RemoveFromWatchlist(ctx context.Context, userID, tenderID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM watchlist WHERE user_id = $1 AND tender_id = $2
	`, userID, tenderID)
	if err != nil {
		return fmt.Errorf("watchlist delete failed: %w", err)
	}
	return nil
}

func (s *Store) ListWatchlist(ctx context.Context, userID string) ([]models.Tender, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM tenders
		WHERE id IN (SELECT tender_id FROM watchlist WHERE user_id = $1)
		ORDER BY deadline_at ASC NULLS LAST
	`, selectCols)
	rows, err := s.pool.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var tenders []models.Tender
	for rows.Next() {
		t, err := scanTender(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		tenders = append(tenders, t)
	}
	if tenders == nil {
		tenders = []models.Tender{}
	}
	return tenders, rows.Err()
}
