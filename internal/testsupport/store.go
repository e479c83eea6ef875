package testsupport

import (
	"context"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustInsertCredential registers a credential with an explicit quota snapshot.
func MustInsertCredential(t testing.TB, st *store.Store, provider, secret string, used, total int64) {
	t.Helper()

	entry := store.CredentialEntry{Provider: provider, Secret: secret, QuotaUsed: used, QuotaTotal: total}
	if err := st.InsertCredential(context.Background(), entry); err != nil {
		t.Fatalf("store.InsertCredential: %v", err)
	}
}
