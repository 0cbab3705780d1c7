package store

import (
	"context"

	"blueprint/internal/blobstore"
	"blueprint/internal/models"
)

// ProjectStore abstracts project persistence.
type ProjectStore interface {
	ProjectExists(ctx context.Context, id string) (bool, error)
	GenerateProjectID(ctx context.Context) (string, error)
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context, limit int) ([]models.Project, error)
	DeleteProject(ctx context.Context, id string) error
	StoreInfo(ctx context.Context) (*StoreInfo, error)
}

// StoreInfo summarizes database contents.
type StoreInfo struct {
	SchemaVersion int   `json:"schema_version"`
	TotalProjects int   `json:"total_projects"`
	TotalAssets   int   `json:"total_assets"`
	AssetBytes    int64 `json:"asset_bytes"`
}

var (
	_ ProjectStore     = (*Store)(nil)
	_ blobstore.Store  = (*Store)(nil)
	_ blobstore.Lister = (*Store)(nil)
)
