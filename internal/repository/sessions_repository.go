package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSessionNotFound is returned when the bearer token matches no live session.
var ErrSessionNotFound = errors.New("session not found or expired")

// SessionsRepository verifies bearer credentials against the sessions table the
// main application writes. Only the token's SHA-256 is stored.
type SessionsRepository struct {
	db *pgxpool.Pool
}

// NewSessionsRepository creates a new sessions repository.
func NewSessionsRepository(db *pgxpool.Pool) *SessionsRepository {
	return &SessionsRepository{db: db}
}

// ResolveUserID returns the user id for a bearer token, or ErrSessionNotFound
// when the token is unknown or expired.
func (r *SessionsRepository) ResolveUserID(ctx context.Context, token string) (string, error) {
	sum := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(sum[:])

	var userID string

	err := r.db.QueryRow(ctx,
		`SELECT user_id FROM sessions WHERE token_hash = $1 AND expires_at > now()`,
		tokenHash,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSessionNotFound
		}

		return "", fmt.Errorf("resolve session: %w", err)
	}

	return userID, nil
}
