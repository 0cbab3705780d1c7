package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"blueprint/internal/blobstore"
)

// Save stores data under id, replacing any previous payload.
func (s *Store) Save(ctx context.Context, id string, data []byte) error {
	if err := blobstore.ValidateID(id); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	sum := sha256.Sum256(data)
	now := formatTime(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &blobstore.StorageError{Op: "save", ID: id, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if s.maxBytes > 0 {
		var used int64
		err := tx.QueryRowContext(ctx, "SELECT COALESCE(SUM(size_bytes), 0) FROM assets WHERE id <> ?", id).Scan(&used)
		if err != nil {
			return &blobstore.StorageError{Op: "save", ID: id, Err: err}
		}
		if used+int64(len(data)) > s.maxBytes {
			return &blobstore.StorageError{Op: "save", ID: id, Err: blobstore.ErrQuotaExceeded}
		}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO assets (id, data, size_bytes, sha256, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  data = excluded.data,
  size_bytes = excluded.size_bytes,
  sha256 = excluded.sha256,
  updated_at = excluded.updated_at`,
		id, data, len(data), hex.EncodeToString(sum[:]), now, now)
	if err != nil {
		return &blobstore.StorageError{Op: "save", ID: id, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &blobstore.StorageError{Op: "save", ID: id, Err: err}
	}
	return nil
}

// Get returns the payload stored under id, or nil when absent.
func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	if err := blobstore.ValidateID(id); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM assets WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &blobstore.StorageError{Op: "get", ID: id, Err: err}
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Delete removes id. Missing ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := blobstore.ValidateID(id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id); err != nil {
		return &blobstore.StorageError{Op: "delete", ID: id, Err: err}
	}
	return nil
}

// List returns metadata for every stored asset ordered by id.
func (s *Store) List(ctx context.Context) ([]blobstore.Asset, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, size_bytes, updated_at FROM assets ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []blobstore.Asset
	for rows.Next() {
		var (
			asset     blobstore.Asset
			updatedAt string
		)
		if err := rows.Scan(&asset.ID, &asset.SizeBytes, &updatedAt); err != nil {
			return nil, err
		}
		if asset.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		out = append(out, asset)
	}
	return out, rows.Err()
}
