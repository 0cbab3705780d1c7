package blobstore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
)

const (
	objectsDir = "objects"
	tmpDir     = "tmp"
	dataSuffix = ".zst"
	metaSuffix = ".json"
)

type localMeta struct {
	ID        string    `json:"id"`
	SizeBytes int64     `json:"size_bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocalStore keeps assets on disk, one zstd-compressed file per id plus a
// metadata sidecar. Paths derive from a BLAKE2b digest of the id.
type LocalStore struct {
	root     string
	maxBytes int64
	now      func() time.Time

	enc *zstd.Encoder
	dec *zstd.Decoder

	// quotaMu serializes the usage check with the write that follows it.
	quotaMu sync.Mutex
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithMaxBytes caps the total uncompressed bytes the store accepts. Zero disables the cap.
func WithMaxBytes(n int64) LocalOption {
	return func(s *LocalStore) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithNow overrides the timestamp source for metadata.
func WithNow(now func() time.Time) LocalOption {
	return func(s *LocalStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewLocalStore creates a store rooted at root.
func NewLocalStore(root string, opts ...LocalOption) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local blob store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{objectsDir, tmpDir} {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0o755); err != nil {
			return nil, err
		}
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, err
	}

	s := &LocalStore{root: abs, now: time.Now, enc: enc, dec: dec}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases compression resources.
func (s *LocalStore) Close() error {
	if s == nil {
		return nil
	}
	s.dec.Close()
	return s.enc.Close()
}

// Save compresses data and stores it under id, replacing any previous payload.
func (s *LocalStore) Save(ctx context.Context, id string, data []byte) error {
	if s == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.quotaMu.Lock()
	defer s.quotaMu.Unlock()

	if s.maxBytes > 0 {
		used, err := s.usage(ctx, id)
		if err != nil {
			return &StorageError{Op: "save", ID: id, Err: err}
		}
		if used+int64(len(data)) > s.maxBytes {
			return &StorageError{Op: "save", ID: id, Err: ErrQuotaExceeded}
		}
	}

	base := s.basePath(id)
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return &StorageError{Op: "save", ID: id, Err: err}
	}

	compressed := s.enc.EncodeAll(data, make([]byte, 0, len(data)/2+64))
	if err := s.writeAtomic(base+dataSuffix, compressed); err != nil {
		return &StorageError{Op: "save", ID: id, Err: err}
	}

	meta, err := json.Marshal(localMeta{ID: id, SizeBytes: int64(len(data)), UpdatedAt: s.now().UTC()})
	if err != nil {
		return &StorageError{Op: "save", ID: id, Err: err}
	}
	if err := s.writeAtomic(base+metaSuffix, meta); err != nil {
		return &StorageError{Op: "save", ID: id, Err: err}
	}
	return nil
}

// Get returns the payload stored under id, or nil when absent.
func (s *LocalStore) Get(ctx context.Context, id string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compressed, err := os.ReadFile(s.basePath(id) + dataSuffix)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &StorageError{Op: "get", ID: id, Err: err}
	}
	data, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, &StorageError{Op: "get", ID: id, Err: err}
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Delete removes id. Missing ids are ignored.
func (s *LocalStore) Delete(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	base := s.basePath(id)
	for _, path := range []string{base + dataSuffix, base + metaSuffix} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return &StorageError{Op: "delete", ID: id, Err: err}
		}
	}
	return nil
}

// List returns metadata for every stored asset ordered by id.
func (s *LocalStore) List(ctx context.Context) ([]Asset, error) {
	if s == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	metas, err := s.walkMeta(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Asset, 0, len(metas))
	for _, m := range metas {
		out = append(out, Asset{ID: m.ID, SizeBytes: m.SizeBytes, UpdatedAt: m.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *LocalStore) usage(ctx context.Context, excludeID string) (int64, error) {
	metas, err := s.walkMeta(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, m := range metas {
		if m.ID == excludeID {
			continue
		}
		total += m.SizeBytes
	}
	return total, nil
}

func (s *LocalStore) walkMeta(ctx context.Context) ([]localMeta, error) {
	var out []localMeta
	err := filepath.WalkDir(filepath.Join(s.root, objectsDir), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, metaSuffix) {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		var m localMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

func (s *LocalStore) writeAtomic(dst string, payload []byte) error {
	tmp, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "put-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(payload); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *LocalStore) basePath(id string) string {
	sum := blake2b.Sum256([]byte(id))
	digest := hex.EncodeToString(sum[:])
	return filepath.Join(s.root, objectsDir, digest[0:2], digest[2:4], digest)
}
