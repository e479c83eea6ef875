package keypool

import (
	"context"
	"errors"
	"testing"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/store"
)

type memoryRepo struct {
	entries []store.CredentialEntry
}

func (m *memoryRepo) ListCredentials(_ context.Context, provider string) ([]store.CredentialEntry, error) {
	var out []store.CredentialEntry
	for _, entry := range m.entries {
		if entry.Provider == provider {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *memoryRepo) InsertCredential(_ context.Context, entry store.CredentialEntry) error {
	for _, existing := range m.entries {
		if existing.Provider == entry.Provider && existing.Secret == entry.Secret {
			return store.ErrDuplicateCredential
		}
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryRepo) UpdateCredential(_ context.Context, entry store.CredentialEntry) error {
	for i, existing := range m.entries {
		if existing.Provider == entry.Provider && existing.Secret == entry.Secret {
			m.entries[i] = entry
			return nil
		}
	}
	return store.ErrCredentialNotFound
}

func TestRefreshOnlyTouchesElapsedResets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	repo := &memoryRepo{entries: []store.CredentialEntry{
		{Provider: ProviderSpeech, Secret: "elapsed", QuotaUsed: 100, QuotaTotal: 100, ResetTime: now.Unix() - 60},
		{Provider: ProviderSpeech, Secret: "future", QuotaUsed: 100, QuotaTotal: 100, ResetTime: now.Unix() + 3600},
		{Provider: ProviderSpeech, Secret: "unknown", QuotaUsed: 40, QuotaTotal: 100},
	}}
	pool := New(repo, ProviderSpeech, logging.NewNop())

	var queried []string
	refresher := NewRefresher(pool, func(_ context.Context, secret string) (Snapshot, error) {
		queried = append(queried, secret)
		return Snapshot{Used: 0, Total: 100, ResetTime: now.Unix() + 30*24*3600}, nil
	}, logging.NewNop())
	refresher.now = func() time.Time { return now }

	res, err := refresher.Refresh(context.Background(), false)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if res.Checked != 1 || res.Refreshed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(queried) != 1 || queried[0] != "elapsed" {
		t.Fatalf("expected only elapsed credential queried, got %v", queried)
	}
	if repo.entries[0].QuotaUsed != 0 {
		t.Fatalf("expected elapsed credential reset, got %+v", repo.entries[0])
	}
	if repo.entries[1].QuotaUsed != 100 {
		t.Fatal("future credential must not change")
	}

	queried = nil
	res, err = refresher.Refresh(context.Background(), true)
	if err != nil {
		t.Fatalf("forced Refresh failed: %v", err)
	}
	if res.Checked != 3 || len(queried) != 3 {
		t.Fatalf("expected all credentials refreshed with force, got %+v (%v)", res, queried)
	}
}

func TestRefreshReportsTotalFailure(t *testing.T) {
	repo := &memoryRepo{entries: []store.CredentialEntry{
		{Provider: ProviderTranslation, Secret: "bad", QuotaUsed: 1, QuotaTotal: 10},
	}}
	pool := New(repo, ProviderTranslation, logging.NewNop())
	boom := errors.New("403 forbidden")
	refresher := NewRefresher(pool, func(context.Context, string) (Snapshot, error) {
		return Snapshot{}, boom
	}, logging.NewNop())

	res, err := refresher.Refresh(context.Background(), true)
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("expected one failure, got %+v", res)
	}
}

func TestWatchRejectsBadScheduleAndStopsOnCancel(t *testing.T) {
	repo := &memoryRepo{}
	pool := New(repo, ProviderSpeech, logging.NewNop())
	refresher := NewRefresher(pool, func(context.Context, string) (Snapshot, error) {
		return Snapshot{}, nil
	}, logging.NewNop())

	if err := refresher.Watch(context.Background(), "not a schedule"); err == nil {
		t.Fatal("expected invalid schedule error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- refresher.Watch(ctx, "@every 1h") }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestNextRun(t *testing.T) {
	ref := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	next, err := NextRun("0 * * * *", ref)
	if err != nil {
		t.Fatalf("NextRun failed: %v", err)
	}
	if !next.Equal(time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next run: %v", next)
	}
}
