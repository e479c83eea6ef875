package keypool

import (
	"context"
	"errors"
	"strings"

	"clipforge/internal/services"
	"clipforge/internal/store"
)

// Bootstrap registers secret with quotaTotal when the pool has no credentials
// yet. It reports whether a credential was added. An empty secret is a no-op.
func (p *Pool) Bootstrap(ctx context.Context, secret string, quotaTotal int64) (bool, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return false, nil
	}
	if _, err := p.List(ctx); err == nil {
		return false, nil
	} else if !errors.Is(err, services.ErrNoCredentials) {
		return false, err
	}
	if err := p.Register(ctx, secret, quotaTotal); err != nil {
		if errors.Is(err, store.ErrDuplicateCredential) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
