package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
)

func newTestLocalStore(t *testing.T, opts ...LocalOption) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLocalStoreSaveGetDelete(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	payload := bytes.Repeat([]byte("png!"), 1024)
	if err := s.Save(ctx, "logo-1", payload); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get(ctx, "logo-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(payload))
	}

	if err := s.Delete(ctx, "logo-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "logo-1"); err != nil {
		t.Fatalf("delete missing should be noop: %v", err)
	}

	got, err = s.Get(ctx, "logo-1")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after delete, got %q", got)
	}
}

func TestLocalStoreRoundTripVariants(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		id   string
		data []byte
	}{
		{name: "empty payload", id: "search-empty", data: []byte{}},
		{name: "binary", id: "blueprint-bin", data: []byte{0, 1, 2, 0xff, 0xfe}},
		{name: "unicode id", id: "blueprint-häuser/logo.png", data: []byte("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Save(ctx, tt.id, tt.data); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := s.Get(ctx, tt.id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got == nil || !bytes.Equal(got, tt.data) {
				t.Fatalf("expected %v, got %v", tt.data, got)
			}
		})
	}
}

func TestLocalStoreOverwriteReplaces(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "logo-1", []byte("first")); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := s.Save(ctx, "logo-1", []byte("second")); err != nil {
		t.Fatalf("save second: %v", err)
	}
	got, err := s.Get(ctx, "logo-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected overwrite, got %q", got)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "logo-1" || list[0].SizeBytes != 6 {
		t.Fatalf("unexpected listing: %#v", list)
	}
}

func TestLocalStoreQuota(t *testing.T) {
	s := newTestLocalStore(t, WithMaxBytes(10))
	ctx := context.Background()

	if err := s.Save(ctx, "a", []byte("12345678")); err != nil {
		t.Fatalf("save a: %v", err)
	}
	err := s.Save(ctx, "b", []byte("123"))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	var storageErr *StorageError
	if !errors.As(err, &storageErr) || storageErr.Op != "save" || storageErr.ID != "b" {
		t.Fatalf("expected StorageError for b, got %#v", err)
	}

	// Overwriting an existing id only counts the new payload.
	if err := s.Save(ctx, "a", []byte("1234567890")); err != nil {
		t.Fatalf("overwrite within quota: %v", err)
	}
}

func TestLocalStoreRejectsInvalidIDs(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	for _, id := range []string{"", "   ", "bad\nid"} {
		if err := s.Save(ctx, id, []byte("x")); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("save %q: expected ErrInvalidID, got %v", id, err)
		}
		if _, err := s.Get(ctx, id); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("get %q: expected ErrInvalidID, got %v", id, err)
		}
	}
}

func TestLocalStoreConcurrentSavesDifferentIDs(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func(i int) {
			errs <- s.Save(ctx, fmt.Sprintf("asset-%02d", i), []byte(fmt.Sprintf("payload-%d", i)))
		}(i)
	}
	for i := 0; i < 16; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent save: %v", err)
		}
	}
	for i := 0; i < 16; i++ {
		got, err := s.Get(ctx, fmt.Sprintf("asset-%02d", i))
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if string(got) != fmt.Sprintf("payload-%d", i) {
			t.Fatalf("asset %d: unexpected payload %q", i, got)
		}
	}
}

func TestLocalStoreCanceledContext(t *testing.T) {
	s := newTestLocalStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Save(ctx, "logo-1", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}
