package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"blueprint/internal/api"
	"blueprint/internal/blobstore"
)

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.assets.(blobstore.Lister)
	if !ok {
		s.writeErrorReq(w, r, http.StatusNotImplemented, fmt.Errorf("asset backend cannot list contents"))
		return
	}
	assets, err := lister.List(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if assets == nil {
		assets = []blobstore.Asset{}
	}
	s.writeJSON(w, http.StatusOK, assets)
}

func (s *Server) handlePutAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.assetIDOrBadRequest(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("asset larger than %d bytes", s.maxUpload), ErrCodeRequestTooLarge))
			return
		}
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidArgument))
		return
	}

	if err := s.assets.Save(r.Context(), id, data); err != nil {
		if isQuotaExceeded(err) {
			s.writeServiceError(w, r, quotaExceeded(err))
			return
		}
		s.writeStoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.AssetResponse{
		ID:        id,
		SizeBytes: int64(len(data)),
		UpdatedAt: s.clock.Now().UTC(),
	})
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.assetIDOrBadRequest(w, r)
	if !ok {
		return
	}
	data, err := s.assets.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if data == nil {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("asset not found"), ErrCodeAssetNotFound))
		return
	}
	s.writeBytes(w, r, data)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.assetIDOrBadRequest(w, r)
	if !ok {
		return
	}
	if err := s.assets.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	data, ok := s.objects.Open(key)
	if !ok {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("object url is not live"), ErrCodeObjectNotFound))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	s.writeBytes(w, r, data)
}

func (s *Server) writeBytes(w http.ResponseWriter, r *http.Request, data []byte) {
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		s.log().Debug("write asset body", "path", r.URL.Path, "error", err)
	}
}
