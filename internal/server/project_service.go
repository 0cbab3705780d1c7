package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"blueprint/internal/api"
	"blueprint/internal/deletion"
	"blueprint/internal/models"
	"blueprint/internal/notify"
	"blueprint/internal/store"
)

const maxProjectNameLength = 200

// ProjectServiceOptions configures a ProjectService.
type ProjectServiceOptions struct {
	Store  store.ProjectStore
	Bus    notify.Publisher
	Clock  clockwork.Clock
	Grace  time.Duration
	Logger *slog.Logger
}

// ProjectService owns project mutations. Deletes are deferred behind an undo
// window; projects waiting out the window are hidden from listings.
type ProjectService struct {
	store     store.ProjectStore
	clock     clockwork.Clock
	logger    *slog.Logger
	deletions *deletion.Coordinator[models.Project]
}

// NewProjectService builds the service and its deletion coordinator.
func NewProjectService(opts ProjectServiceOptions) (*ProjectService, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("project store is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	svc := &ProjectService{
		store:  opts.Store,
		clock:  opts.Clock,
		logger: logger.With("component", "projects"),
	}

	coordinator, err := deletion.New(deletion.Options[models.Project]{
		GetID:     func(p models.Project) string { return p.ID },
		OnDelete:  svc.commitDelete,
		OnRestore: svc.restored,
		Grace:     opts.Grace,
		Message: func(p models.Project) string {
			return fmt.Sprintf("Deleted %q", p.Name)
		},
		ErrorMessage: func(p models.Project, err error) string {
			return fmt.Sprintf("Failed to delete %q", p.Name)
		},
		Bus:    opts.Bus,
		Clock:  opts.Clock,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	svc.deletions = coordinator
	return svc, nil
}

// Create validates and stores a new project.
func (s *ProjectService) Create(ctx context.Context, req api.ProjectCreateRequest) (api.ProjectResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return api.ProjectResponse{}, badRequestCode(fmt.Errorf("name is required"), ErrCodeMissingRequired)
	}
	if len(name) > maxProjectNameLength {
		return api.ProjectResponse{}, badRequestCode(fmt.Errorf("name must be at most %d characters", maxProjectNameLength), ErrCodeInvalidArgument)
	}
	logoRef := strings.TrimSpace(req.LogoRef)
	if err := validateLogoRef(logoRef); err != nil {
		return api.ProjectResponse{}, err
	}

	id, err := s.store.GenerateProjectID(ctx)
	if err != nil {
		return api.ProjectResponse{}, storeFailure(err)
	}
	now := s.clock.Now().UTC()
	project := &models.Project{
		ID:        id,
		Name:      name,
		LogoRef:   logoRef,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return api.ProjectResponse{}, storeFailure(err)
	}
	s.logger.Info("project created", "id", id)
	return api.ProjectResponse{Project: *project}, nil
}

// Get returns a project, including one whose deletion is pending.
func (s *ProjectService) Get(ctx context.Context, id string) (api.ProjectResponse, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return api.ProjectResponse{}, storeFailure(err)
	}
	if project == nil {
		return api.ProjectResponse{}, notFoundCode(fmt.Errorf("project not found"), ErrCodeProjectNotFound)
	}
	return api.ProjectResponse{Project: *project, PendingDelete: s.deletions.IsPending(id)}, nil
}

// List returns projects. Pending deletions are skipped unless includePending.
func (s *ProjectService) List(ctx context.Context, limit int, includePending bool) ([]api.ProjectResponse, error) {
	projects, err := s.store.ListProjects(ctx, limit)
	if err != nil {
		return nil, storeFailure(err)
	}
	out := make([]api.ProjectResponse, 0, len(projects))
	for _, project := range projects {
		pending := s.deletions.IsPending(project.ID)
		if pending && !includePending {
			continue
		}
		out = append(out, api.ProjectResponse{Project: project, PendingDelete: pending})
	}
	return out, nil
}

// Delete schedules a deferred deletion of id.
func (s *ProjectService) Delete(ctx context.Context, id string) (api.DeleteAcceptedResponse, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return api.DeleteAcceptedResponse{}, storeFailure(err)
	}
	if project == nil {
		return api.DeleteAcceptedResponse{}, notFoundCode(fmt.Errorf("project not found"), ErrCodeProjectNotFound)
	}
	s.deletions.InitiateDelete(*project)

	resp := api.DeleteAcceptedResponse{ID: id, PendingDelete: s.deletions.IsPending(id)}
	for _, p := range s.deletions.PendingList() {
		if p.ID == id {
			resp.ExecutesAt = p.ScheduledAt.Add(p.Grace)
		}
	}
	return resp, nil
}

// Restore cancels the pending deletion of id.
func (s *ProjectService) Restore(id string) (api.RestoreResponse, error) {
	if !s.deletions.Cancel(id) {
		return api.RestoreResponse{}, conflictCode(fmt.Errorf("no pending deletion for %s", id), ErrCodeNothingPending)
	}
	return api.RestoreResponse{ID: id, Restored: true}, nil
}

// Pending lists deletions waiting out their grace period.
func (s *ProjectService) Pending() []api.PendingDeletion {
	list := s.deletions.PendingList()
	out := make([]api.PendingDeletion, 0, len(list))
	for _, p := range list {
		out = append(out, api.PendingDeletion{
			ID:          p.ID,
			Project:     p.Item,
			ScheduledAt: p.ScheduledAt,
			ExecutesAt:  p.ScheduledAt.Add(p.Grace),
		})
	}
	return out
}

// PendingCount returns the number of pending deletions.
func (s *ProjectService) PendingCount() int {
	return len(s.deletions.PendingList())
}

// Close drops pending deletions.
func (s *ProjectService) Close() {
	s.deletions.Close()
}

// commitDelete removes only the project row. Logo assets may be shared by
// other projects and are deleted through the asset API.
func (s *ProjectService) commitDelete(ctx context.Context, project models.Project) error {
	if err := s.store.DeleteProject(ctx, project.ID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *ProjectService) restored(project models.Project) {
	s.logger.Info("project restored", "id", project.ID)
}
