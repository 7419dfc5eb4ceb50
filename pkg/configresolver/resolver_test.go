package configresolver

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestResolver(t *testing.T, store Store) (*Resolver, []byte) {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generating key: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := New(store, Config{MaxEntries: 10, TTL: time.Minute, CredentialKey: key}, logger)
	return r, key
}

func seedConfig(t *testing.T, store Store, key []byte, userID, apiKey string) {
	t.Helper()
	blob, err := EncryptCredential(key, apiKey)
	if err != nil {
		t.Fatalf("EncryptCredential: %v", err)
	}
	if err := store.Create(context.Background(), &StoredConfig{
		UserID:          userID,
		APIKeyIDHash:    HashAPIKeyID(apiKey, "pepper"),
		EncryptedAPIKey: blob,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestResolver_ResolveDecryptsCredential(t *testing.T) {
	store := NewInMemoryStore()
	r, key := newTestResolver(t, store)
	seedConfig(t, store, key, "u1", "secret-key")

	cfg, err := r.Resolve(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.APIKey != "secret-key" {
		t.Fatalf("got %q want secret-key", cfg.APIKey)
	}
}

func TestResolver_CachesAcrossCalls(t *testing.T) {
	store := NewInMemoryStore()
	r, key := newTestResolver(t, store)
	seedConfig(t, store, key, "u1", "secret-key")

	if _, err := r.Resolve(context.Background(), "u1"); err != nil {
		t.Fatalf("Resolve 1: %v", err)
	}

	// Delete from the store; a cached resolve should still succeed.
	_ = store.Delete(context.Background(), "u1")
	if _, err := r.Resolve(context.Background(), "u1"); err != nil {
		t.Fatalf("expected cached resolve to succeed after store delete: %v", err)
	}
}

type countingStore struct {
	Store
	gets int32
}

func (c *countingStore) Get(ctx context.Context, userID string) (*StoredConfig, error) {
	atomic.AddInt32(&c.gets, 1)
	return c.Store.Get(ctx, userID)
}

func TestResolver_CoalescesConcurrentMisses(t *testing.T) {
	base := NewInMemoryStore()
	store := &countingStore{Store: base}
	r, key := newTestResolver(t, store)
	seedConfig(t, base, key, "u1", "secret-key")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(context.Background(), "u1"); err != nil {
				t.Errorf("Resolve: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&store.gets); got != 1 {
		t.Fatalf("expected exactly one store read, got %d", got)
	}
}

func TestResolver_Invalidate(t *testing.T) {
	store := NewInMemoryStore()
	r, key := newTestResolver(t, store)
	seedConfig(t, store, key, "u1", "secret-key")

	if _, err := r.Resolve(context.Background(), "u1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	r.Invalidate("u1")

	_ = store.Delete(context.Background(), "u1")
	if _, err := r.Resolve(context.Background(), "u1"); err == nil {
		t.Fatal("expected resolve to miss the store after invalidate+delete")
	}
}
