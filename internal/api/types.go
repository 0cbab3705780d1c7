package api

import (
	"time"

	"blueprint/internal/blobstore"
	"blueprint/internal/models"
	"blueprint/internal/notify"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// InfoResponse is the response from GET /v1/info.
type InfoResponse struct {
	SchemaVersion       int    `json:"schema_version" yaml:"schema_version"`
	AssetBackend        string `json:"asset_backend" yaml:"asset_backend"`
	TotalProjects       int    `json:"total_projects" yaml:"total_projects"`
	TotalAssets         int    `json:"total_assets" yaml:"total_assets"`
	AssetBytes          int64  `json:"asset_bytes" yaml:"asset_bytes"`
	LiveObjectURLs      int    `json:"live_object_urls" yaml:"live_object_urls"`
	ResolutionSessions  int    `json:"resolution_sessions" yaml:"resolution_sessions"`
	PendingDeletions    int    `json:"pending_deletions" yaml:"pending_deletions"`
	ActiveNotifications int    `json:"active_notifications" yaml:"active_notifications"`
}

// AssetResponse describes one stored asset.
type AssetResponse = blobstore.Asset

// ResolutionRequest opens or repoints a resolution session.
type ResolutionRequest struct {
	Ref string `json:"ref"`
}

// ResolutionResponse is the observable state of a resolution session.
type ResolutionResponse struct {
	ID        string `json:"id" yaml:"id"`
	Ref       string `json:"ref" yaml:"ref"`
	Phase     string `json:"phase" yaml:"phase"`
	ObjectURL string `json:"object_url,omitempty" yaml:"object_url,omitempty"`
	IsLoading bool   `json:"is_loading" yaml:"is_loading"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	Attempt   int    `json:"attempt" yaml:"attempt"`
	CanRetry  bool   `json:"can_retry" yaml:"can_retry"`
}

// ProjectCreateRequest is the payload for POST /v1/projects.
type ProjectCreateRequest struct {
	Name    string `json:"name"`
	LogoRef string `json:"logo_ref,omitempty"`
}

// ProjectResponse is a project plus its deletion status.
type ProjectResponse struct {
	models.Project `yaml:",inline"`
	PendingDelete  bool `json:"pending_delete" yaml:"pending_delete"`
}

// DeleteAcceptedResponse is returned when a deletion enters its grace period.
type DeleteAcceptedResponse struct {
	ID            string    `json:"id" yaml:"id"`
	PendingDelete bool      `json:"pending_delete" yaml:"pending_delete"`
	ExecutesAt    time.Time `json:"executes_at" yaml:"executes_at"`
}

// PendingDeletion is one project waiting out its grace period.
type PendingDeletion struct {
	ID          string         `json:"id" yaml:"id"`
	Project     models.Project `json:"project" yaml:"project"`
	ScheduledAt time.Time      `json:"scheduled_at" yaml:"scheduled_at"`
	ExecutesAt  time.Time      `json:"executes_at" yaml:"executes_at"`
}

// RestoreResponse reports whether a pending deletion was cancelled.
type RestoreResponse struct {
	ID       string `json:"id" yaml:"id"`
	Restored bool   `json:"restored" yaml:"restored"`
}

// NotificationResponse is one visible notification.
type NotificationResponse = notify.View

// AnnouncementResponse is the live-region text for assistive output.
type AnnouncementResponse struct {
	Text string `json:"text" yaml:"text"`
}

// NotificationActionResponse reports the outcome of a notification action.
type NotificationActionResponse struct {
	ID      string `json:"id" yaml:"id"`
	Action  string `json:"action" yaml:"action"`
	Applied bool   `json:"applied" yaml:"applied"`
}
