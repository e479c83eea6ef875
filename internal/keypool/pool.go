package keypool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"clipforge/internal/logging"
	"clipforge/internal/services"
	"clipforge/internal/store"
)

// Provider names used as the credentials table scope.
const (
	ProviderSpeech      = "elevenlabs"
	ProviderTranslation = "deepl"
)

// Repository is the slice of the credential store a pool needs.
type Repository interface {
	ListCredentials(ctx context.Context, provider string) ([]store.CredentialEntry, error)
	InsertCredential(ctx context.Context, entry store.CredentialEntry) error
	UpdateCredential(ctx context.Context, entry store.CredentialEntry) error
}

// Pool selects credentials for one provider. Every call round-trips to the
// repository; the mutex only serializes the read-modify-write of a single call.
type Pool struct {
	provider string
	repo     Repository
	logger   *slog.Logger
	mu       sync.Mutex
}

// New returns a pool scoped to provider.
func New(repo Repository, provider string, logger *slog.Logger) *Pool {
	return &Pool{
		provider: provider,
		repo:     repo,
		logger:   logging.NewComponentLogger(logger, "keypool").With(logging.String("provider", provider)),
	}
}

// Provider returns the provider the pool is scoped to.
func (p *Pool) Provider() string {
	return p.provider
}

// Acquire returns the credential with the smallest QuotaUsed among those with at
// least quotaNeeded remaining. Ties go to the earliest registered credential.
func (p *Pool) Acquire(ctx context.Context, quotaNeeded int64) (store.CredentialEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries, err := p.repo.ListCredentials(ctx, p.provider)
	if err != nil {
		return store.CredentialEntry{}, fmt.Errorf("keypool %s: %w", p.provider, err)
	}
	if len(entries) == 0 {
		return store.CredentialEntry{}, services.Wrap(services.ErrNoCredentials, "keypool", p.provider,
			"register one with `clipforge keys add "+p.provider+" <secret>`", nil)
	}

	best := -1
	for i, entry := range entries {
		if entry.QuotaTotal-entry.QuotaUsed < quotaNeeded {
			continue
		}
		if best < 0 || entry.QuotaUsed < entries[best].QuotaUsed {
			best = i
		}
	}
	if best < 0 {
		return store.CredentialEntry{}, services.Wrap(services.ErrCredentialExhausted, "keypool", p.provider,
			fmt.Sprintf("no credential has %d remaining across %d registered", quotaNeeded, len(entries)), nil)
	}

	chosen := entries[best]
	logging.WithContext(ctx, p.logger).Debug("credential selected",
		logging.String(logging.FieldEventType, "credential_selected"),
		logging.String("key", chosen.Masked()),
		logging.Int64("quota_needed", quotaNeeded),
		logging.Int64("quota_remaining", chosen.Remaining()),
	)
	return chosen, nil
}

// Register inserts a new credential with QuotaUsed = 0. The secret itself is not
// checked; an invalid key surfaces on its first provider call.
func (p *Pool) Register(ctx context.Context, secret string, quotaTotal int64) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return services.Wrap(services.ErrValidation, "keypool", "register", "secret must not be empty", nil)
	}
	if quotaTotal <= 0 {
		return services.Wrap(services.ErrValidation, "keypool", "register",
			fmt.Sprintf("quota must be positive, got %d", quotaTotal), nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.repo.InsertCredential(ctx, store.CredentialEntry{
		Provider:   p.provider,
		Secret:     secret,
		QuotaTotal: quotaTotal,
	})
}

// ReportUsage overwrites the stored snapshot with provider-reported figures.
func (p *Pool) ReportUsage(ctx context.Context, secret string, quotaUsed, quotaTotal, resetTime int64) error {
	if quotaUsed < 0 {
		quotaUsed = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := store.CredentialEntry{
		Provider:   p.provider,
		Secret:     secret,
		QuotaUsed:  quotaUsed,
		QuotaTotal: quotaTotal,
		ResetTime:  resetTime,
	}
	if err := p.repo.UpdateCredential(ctx, entry); err != nil {
		return fmt.Errorf("keypool %s: report usage: %w", p.provider, err)
	}
	logging.WithContext(ctx, p.logger).Debug("quota snapshot updated",
		logging.String(logging.FieldEventType, "quota_reported"),
		logging.String("key", entry.Masked()),
		logging.Int64("quota_used", quotaUsed),
		logging.Int64("quota_total", quotaTotal),
	)
	return nil
}

// List returns every credential for the provider, exhausted ones included.
func (p *Pool) List(ctx context.Context) ([]store.CredentialEntry, error) {
	entries, err := p.repo.ListCredentials(ctx, p.provider)
	if err != nil {
		return nil, fmt.Errorf("keypool %s: %w", p.provider, err)
	}
	if len(entries) == 0 {
		return nil, services.Wrap(services.ErrNoCredentials, "keypool", p.provider, "", nil)
	}
	return entries, nil
}
