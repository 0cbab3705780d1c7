package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

const maxIDLength = 512

var (
	// ErrQuotaExceeded reports a save rejected because the configured byte budget is exhausted.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrInvalidID reports an unusable asset id.
	ErrInvalidID = errors.New("invalid asset id")
)

// StorageError wraps quota and I/O failures raised by a Store.
type StorageError struct {
	Op  string
	ID  string
	Err error
}

func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("blob %s %q: %v", e.Op, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Asset describes one stored blob without its payload.
type Asset struct {
	ID        string    `json:"id" yaml:"id"`
	SizeBytes int64     `json:"size_bytes" yaml:"size_bytes"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Store is the binary asset storage contract used by the asset resolver.
//
// Get returns (nil, nil) for an absent id. Delete is idempotent. A Save and a
// concurrent Get on the same id are unordered: last write wins, readers see
// either the old or the new payload.
type Store interface {
	Save(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// Lister is implemented by stores that can enumerate their contents.
type Lister interface {
	List(ctx context.Context) ([]Asset, error)
}

// ValidateID checks that id is usable as a storage key.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidID)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: id too long", ErrInvalidID)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control characters are not allowed", ErrInvalidID)
		}
	}
	return nil
}
