package server

import (
	"net/http"

	"blueprint/internal/api"
)

func (s *Server) handleCreateResolution(w http.ResponseWriter, r *http.Request) {
	var req api.ResolutionRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	resp, err := s.resolutions.Open(req.Ref)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetResolution(w http.ResponseWriter, r *http.Request) {
	wait, err := queryBool(r, "wait")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp, err := s.resolutions.Get(r.Context(), r.PathValue("id"), wait)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateResolution(w http.ResponseWriter, r *http.Request) {
	var req api.ResolutionRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	resp, err := s.resolutions.Update(r.PathValue("id"), req.Ref)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRetryResolution(w http.ResponseWriter, r *http.Request) {
	resp, err := s.resolutions.Retry(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseResolution(w http.ResponseWriter, r *http.Request) {
	if err := s.resolutions.CloseSession(r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
