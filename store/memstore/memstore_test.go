package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/IvanBrykalov/tiercache/store"
)

func TestStore_LoadSave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New[string, int]()

	if _, err := s.Load(ctx, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Load missing = %v, want ErrNotFound", err)
	}
	if err := s.Save(ctx, "a", 1); err != nil {
		t.Fatal(err)
	}
	if v, err := s.Load(ctx, "a"); err != nil || v != 1 {
		t.Fatalf("Load = %v, %v", v, err)
	}
	if s.Loads() != 2 || s.Saves() != 1 {
		t.Fatalf("loads=%d saves=%d", s.Loads(), s.Saves())
	}
}

func TestStore_Hooks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New[string, int]()
	s.Seed("a", 1)
	boom := errors.New("boom")

	s.OnSave(func(context.Context, string, int) error { return boom })
	if err := s.Save(ctx, "a", 2); !errors.Is(err, boom) {
		t.Fatalf("Save = %v, want boom", err)
	}
	if v, _ := s.Value("a"); v != 1 {
		t.Fatal("failed Save must not change the value")
	}

	s.OnLoad(func(context.Context, string) error { return boom })
	if _, err := s.Load(ctx, "a"); !errors.Is(err, boom) {
		t.Fatalf("Load = %v, want boom", err)
	}

	s.OnLoad(nil)
	s.OnSave(nil)
	if err := s.Save(ctx, "a", 3); err != nil {
		t.Fatal(err)
	}
	if snap := s.Snapshot(); snap["a"] != 3 {
		t.Fatalf("snapshot = %v", snap)
	}
}

func TestStore_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New[string, int]()
	if err := s.Save(ctx, "a", 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("Save = %v, want context.Canceled", err)
	}
}
