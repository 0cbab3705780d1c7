package server

import (
	"fmt"
	"net/http"

	"blueprint/internal/api"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.notifications.Snapshot())
}

func (s *Server) handleAnnouncement(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.AnnouncementResponse{Text: s.notifications.Announcement()})
}

func (s *Server) handleNotificationAction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	action := r.PathValue("action")
	if err := validateNotificationAction(action); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if _, ok := s.notifications.Get(id); !ok {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("notification not found"), ErrCodeNotificationNotFound))
		return
	}

	var applied bool
	switch action {
	case "dismiss":
		applied = s.notifications.Dismiss(id)
	case "pause":
		applied = s.notifications.Pause(id)
	case "resume":
		applied = s.notifications.Resume(id)
	case "undo":
		applied = s.notifications.Undo(id)
	}
	s.writeJSON(w, http.StatusOK, api.NotificationActionResponse{ID: id, Action: action, Applied: applied})
}
