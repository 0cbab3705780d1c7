package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Blob store.
	mux.HandleFunc("GET /v1/assets", s.handleListAssets)
	mux.HandleFunc("PUT /v1/assets/{id}", s.handlePutAsset)
	mux.HandleFunc("GET /v1/assets/{id}", s.handleGetAsset)
	mux.HandleFunc("DELETE /v1/assets/{id}", s.handleDeleteAsset)

	// Resolution sessions and the object URLs they own.
	mux.HandleFunc("POST /v1/resolutions", s.handleCreateResolution)
	mux.HandleFunc("GET /v1/resolutions/{id}", s.handleGetResolution)
	mux.HandleFunc("PUT /v1/resolutions/{id}", s.handleUpdateResolution)
	mux.HandleFunc("DELETE /v1/resolutions/{id}", s.handleCloseResolution)
	mux.HandleFunc("POST /v1/resolutions/{id}/retry", s.handleRetryResolution)
	mux.HandleFunc("GET /v1/objects/{key}", s.handleGetObject)

	// Projects with deferred deletion.
	mux.HandleFunc("POST /v1/projects", s.handleCreateProject)
	mux.HandleFunc("GET /v1/projects", s.handleListProjects)
	mux.HandleFunc("GET /v1/projects/pending", s.handlePendingDeletions)
	mux.HandleFunc("GET /v1/projects/{id}", s.handleGetProject)
	mux.HandleFunc("DELETE /v1/projects/{id}", s.handleDeleteProject)
	mux.HandleFunc("POST /v1/projects/{id}/restore", s.handleRestoreProject)

	// Notifications.
	mux.HandleFunc("GET /v1/notifications", s.handleListNotifications)
	mux.HandleFunc("GET /v1/notifications/announcement", s.handleAnnouncement)
	mux.HandleFunc("POST /v1/notifications/{id}/{action}", s.handleNotificationAction)

	return mux
}
