package server

import (
	"net/http"

	"blueprint/internal/api"
)

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req api.ProjectCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	resp, err := s.service.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	limit, err := queryIntDefault(r, "limit", 0)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	includePending, err := queryBool(r, "include_pending")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp, err := s.service.List(r.Context(), limit, includePending)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectIDOrBadRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectIDOrBadRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.service.Delete(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleRestoreProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectIDOrBadRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.service.Restore(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePendingDeletions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Pending())
}
