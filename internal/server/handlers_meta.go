package server

import (
	"net/http"

	"blueprint/internal/api"
	"blueprint/internal/blobstore"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.StoreInfo(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := api.InfoResponse{
		SchemaVersion:       info.SchemaVersion,
		AssetBackend:        s.assetBackend,
		TotalProjects:       info.TotalProjects,
		TotalAssets:         info.TotalAssets,
		AssetBytes:          info.AssetBytes,
		LiveObjectURLs:      s.objects.Live(),
		ResolutionSessions:  s.resolutions.Count(),
		PendingDeletions:    s.service.PendingCount(),
		ActiveNotifications: len(s.notifications.Snapshot()),
	}

	// The project store only counts its own assets table.
	if lister, ok := s.assets.(blobstore.Lister); ok && s.assets != any(s.store) {
		assets, err := lister.List(r.Context())
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		resp.TotalAssets = len(assets)
		resp.AssetBytes = 0
		for _, a := range assets {
			resp.AssetBytes += a.SizeBytes
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}
