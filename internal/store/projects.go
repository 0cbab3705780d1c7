package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"blueprint/internal/models"
)

const defaultProjectListLimit = 200

// ProjectExists checks whether a project exists by id.
func (s *Store) ProjectExists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM projects WHERE id = ? LIMIT 1", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateProject inserts a project.
func (s *Store) CreateProject(ctx context.Context, project *models.Project) error {
	if project == nil {
		return fmt.Errorf("project is required")
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (id, name, logo_ref, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		project.ID,
		project.Name,
		nullIfEmpty(project.LogoRef),
		formatTime(project.CreatedAt),
		formatTime(project.UpdatedAt),
	)
	return err
}

// GetProject returns a project by id, or nil when absent.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, name, logo_ref, created_at, updated_at FROM projects WHERE id = ?", id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return project, err
}

// ListProjects returns the most recently updated projects first.
func (s *Store) ListProjects(ctx context.Context, limit int) ([]models.Project, error) {
	if limit <= 0 {
		limit = defaultProjectListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, logo_ref, created_at, updated_at FROM projects ORDER BY updated_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *project)
	}
	return out, rows.Err()
}

// DeleteProject removes a project. Missing ids are ignored.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

// StoreInfo returns schema and row counts.
func (s *Store) StoreInfo(ctx context.Context) (*StoreInfo, error) {
	info := &StoreInfo{}
	version, err := currentVersion(s.db)
	if err != nil {
		return nil, err
	}
	info.SchemaVersion = version
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&info.TotalProjects); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM assets").Scan(&info.TotalAssets, &info.AssetBytes); err != nil {
		return nil, err
	}
	return info, nil
}

func scanProject(scanner interface{ Scan(dest ...any) error }) (*models.Project, error) {
	var (
		project   models.Project
		logoRef   sql.NullString
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&project.ID, &project.Name, &logoRef, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	project.LogoRef = logoRef.String

	var err error
	if project.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if project.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &project, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
