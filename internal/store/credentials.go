package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateCredential is returned when a (provider, secret) pair is already registered.
	ErrDuplicateCredential = errors.New("credential already registered")
	// ErrCredentialNotFound is returned when updating or deleting an unknown credential.
	ErrCredentialNotFound = errors.New("credential not found")
)

// CredentialState describes where a credential sits in its quota lifecycle.
type CredentialState string

const (
	CredentialFresh     CredentialState = "fresh"
	CredentialInUse     CredentialState = "in_use"
	CredentialExhausted CredentialState = "exhausted"
)

// CredentialEntry is one API key with its last known quota snapshot. QuotaUsed is
// advisory: it mirrors what the provider reported after the most recent call.
type CredentialEntry struct {
	Provider   string
	Secret     string
	QuotaUsed  int64
	QuotaTotal int64
	// ResetTime is the provider's next quota reset as epoch seconds; 0 means unknown.
	ResetTime int64
}

// Remaining returns the quota left on the credential, never negative.
func (c CredentialEntry) Remaining() int64 {
	if left := c.QuotaTotal - c.QuotaUsed; left > 0 {
		return left
	}
	return 0
}

// State reports the lifecycle state derived from the quota snapshot.
func (c CredentialEntry) State() CredentialState {
	switch {
	case c.QuotaUsed >= c.QuotaTotal:
		return CredentialExhausted
	case c.QuotaUsed <= 0:
		return CredentialFresh
	default:
		return CredentialInUse
	}
}

// Masked returns the secret with all but the last four characters hidden.
func (c CredentialEntry) Masked() string {
	secret := c.Secret
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

const credentialColumns = "provider, secret, quota_used, quota_total, reset_time"

// ListCredentials returns every credential for provider in registration order.
// An empty provider lists all credentials.
func (s *Store) ListCredentials(ctx context.Context, provider string) ([]CredentialEntry, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + credentialColumns + ` FROM credentials`
	args := []any{}
	if provider != "" {
		query += ` WHERE provider = ?`
		args = append(args, provider)
	}
	query += ` ORDER BY provider, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var entries []CredentialEntry
	for rows.Next() {
		var entry CredentialEntry
		if err := rows.Scan(&entry.Provider, &entry.Secret, &entry.QuotaUsed, &entry.QuotaTotal, &entry.ResetTime); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return entries, nil
}

// InsertCredential registers a new credential.
func (s *Store) InsertCredential(ctx context.Context, entry CredentialEntry) error {
	timestamp := now()
	_, err := s.execWithRetry(ctx,
		`INSERT INTO credentials (`+credentialColumns+`, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Provider,
		entry.Secret,
		entry.QuotaUsed,
		entry.QuotaTotal,
		entry.ResetTime,
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s key %s", ErrDuplicateCredential, entry.Provider, entry.Masked())
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// UpdateCredential overwrites the quota snapshot of an existing credential.
func (s *Store) UpdateCredential(ctx context.Context, entry CredentialEntry) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE credentials
         SET quota_used = ?, quota_total = ?, reset_time = ?, updated_at = ?
         WHERE provider = ? AND secret = ?`,
		entry.QuotaUsed,
		entry.QuotaTotal,
		entry.ResetTime,
		now(),
		entry.Provider,
		entry.Secret,
	)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s key %s", ErrCredentialNotFound, entry.Provider, entry.Masked())
	}
	return nil
}

// DeleteCredential removes a credential. Only administrative commands call this;
// the pipeline never deletes credentials.
func (s *Store) DeleteCredential(ctx context.Context, provider, secret string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM credentials WHERE provider = ? AND secret = ?`, provider, secret)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete credential rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrCredentialNotFound, provider)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
