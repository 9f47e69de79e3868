package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"otp-ceremony/backend/internal/challenge/domain"
)

const (
	getChallengeSQL = `SELECT subject, code_hash, issued_at, expires_at
FROM challenge_records
WHERE subject = $1 AND kind = $2 AND delete_at > $3`

	upsertChallengeSQL = `INSERT INTO challenge_records (subject, kind, code_hash, issued_at, expires_at, delete_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (subject, kind) DO UPDATE
SET code_hash = EXCLUDED.code_hash,
    issued_at = EXCLUDED.issued_at,
    expires_at = EXCLUDED.expires_at,
    delete_at = EXCLUDED.delete_at`

	deleteChallengeSQL = `DELETE FROM challenge_records WHERE subject = $1 AND kind = $2`

	deleteExpiredSQL = `DELETE FROM challenge_records WHERE delete_at <= $1`
)

// PostgresRepository is a Repository on the challenge_records table. Rows past delete_at are
// invisible to Get and are removed by DeleteExpired.
type PostgresRepository struct {
	db   *sql.DB
	nowF func() time.Time
}

// NewPostgresRepository returns a challenge store that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, nowF: func() time.Time { return time.Now().UTC() }}
}

// Get returns the record for key, or nil if not found or past its TTL.
func (r *PostgresRepository) Get(ctx context.Context, key domain.Key) (*domain.Record, error) {
	var rec domain.Record
	err := r.db.QueryRowContext(ctx, getChallengeSQL, key.Subject, string(key.Kind), r.nowF()).
		Scan(&rec.Subject, &rec.CodeHash, &rec.IssuedAt, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	rec.IssuedAt = rec.IssuedAt.UTC()
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	return &rec, nil
}

// Put upserts rec; the row becomes invisible after ttl.
func (r *PostgresRepository) Put(ctx context.Context, rec *domain.Record, ttl time.Duration) error {
	k := rec.Key()
	_, err := r.db.ExecContext(ctx, upsertChallengeSQL,
		k.Subject, string(k.Kind), rec.CodeHash, rec.IssuedAt, rec.ExpiresAt, r.nowF().Add(ttl))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes the record for key.
func (r *PostgresRepository) Delete(ctx context.Context, key domain.Key) error {
	if _, err := r.db.ExecContext(ctx, deleteChallengeSQL, key.Subject, string(key.Kind)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteExpired removes rows past their TTL and returns how many were deleted.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteExpiredSQL, r.nowF())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res.RowsAffected()
}

// Ping checks the database connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
