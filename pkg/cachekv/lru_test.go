package cachekv

import (
	"context"
	"testing"
	"time"
)

func TestInProcessBackend_SetGet(t *testing.T) {
	b := NewInProcessBackend(10)
	ctx := context.Background()

	if err := b.Set(ctx, "k", []byte("v1"), 60); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok, err := b.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get: val=%q ok=%v err=%v", val, ok, err)
	}
	if string(val) != "v1" {
		t.Fatalf("got %q want v1", val)
	}
}

func TestInProcessBackend_MissingKeyNeverErrors(t *testing.T) {
	b := NewInProcessBackend(10)
	val, ok, err := b.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get on missing key returned error: %v", err)
	}
	if ok || val != nil {
		t.Fatalf("expected miss, got ok=%v val=%q", ok, val)
	}
}

func TestInProcessBackend_ExpiresPastTTL(t *testing.T) {
	b := NewInProcessBackend(10)
	ctx := context.Background()
	if err := b.Set(ctx, "k", []byte("v"), 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	_, ok, _ := b.Get(ctx, "k")
	if ok {
		t.Fatalf("expected key to be expired")
	}
}

func TestInProcessBackend_EvictionOnCapacity(t *testing.T) {
	b := NewInProcessBackend(10)
	ctx := context.Background()

	// Fill with entries that have already expired.
	for i := 0; i < 10; i++ {
		key := string(rune('a' + i))
		if err := b.Set(ctx, key, []byte("v"), 1); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	time.Sleep(1100 * time.Millisecond)

	// Next insert should trigger eviction of the expired entries and succeed.
	if err := b.Set(ctx, "fresh", []byte("v"), 60); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "fresh"); !ok {
		t.Fatalf("expected fresh key to be stored after eviction")
	}
	if b.Evictions() == 0 {
		t.Fatalf("expected evictions to be counted")
	}
}

func TestInProcessBackend_Delete(t *testing.T) {
	b := NewInProcessBackend(10)
	ctx := context.Background()
	_ = b.Set(ctx, "k", []byte("v"), 60)
	if err := b.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Fatalf("expected key to be gone after delete")
	}
}
