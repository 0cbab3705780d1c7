package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"blueprint/internal/api"
	"blueprint/internal/asset"
	"blueprint/internal/blobstore"
)

const defaultMaxResolutions = 256

// ResolutionService keeps one asset resolver per remote consumer. A session
// owns the object URL its resolver created until it is repointed or closed.
type ResolutionService struct {
	assets     blobstore.Store
	objects    *asset.ObjectURLs
	maxRetries int
	max        int
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*asset.Resolver
	closed   bool
}

// NewResolutionService creates an empty session registry.
func NewResolutionService(assets blobstore.Store, objects *asset.ObjectURLs, maxRetries, maxSessions int, logger *slog.Logger) *ResolutionService {
	if maxSessions <= 0 {
		maxSessions = defaultMaxResolutions
	}
	if maxRetries < 0 {
		maxRetries = asset.DefaultMaxRetries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolutionService{
		assets:     assets,
		objects:    objects,
		maxRetries: maxRetries,
		max:        maxSessions,
		logger:     logger,
		sessions:   make(map[string]*asset.Resolver),
	}
}

// Open starts a session resolving ref.
func (s *ResolutionService) Open(ref string) (api.ResolutionResponse, error) {
	resolver := asset.NewResolver(s.assets, s.objects,
		asset.WithMaxRetries(s.maxRetries),
		asset.WithLogger(s.logger),
	)
	id := uuid.NewString()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return api.ResolutionResponse{}, internalError(fmt.Errorf("server is shutting down"))
	}
	if len(s.sessions) >= s.max {
		s.mu.Unlock()
		return api.ResolutionResponse{}, makeAPIError(http.StatusTooManyRequests, "resource_exhausted", ErrCodeResourceExhausted,
			fmt.Errorf("too many open resolutions"))
	}
	s.sessions[id] = resolver
	s.mu.Unlock()

	resolver.Resolve(ref)
	return s.response(id, resolver), nil
}

// Get returns the session state. With wait set it first blocks until the
// in-flight load settles or ctx ends.
func (s *ResolutionService) Get(ctx context.Context, id string, wait bool) (api.ResolutionResponse, error) {
	resolver, err := s.lookup(id)
	if err != nil {
		return api.ResolutionResponse{}, err
	}
	if wait {
		if err := resolver.Wait(ctx); err != nil {
			return api.ResolutionResponse{}, err
		}
	}
	return s.response(id, resolver), nil
}

// Update repoints the session at ref.
func (s *ResolutionService) Update(id, ref string) (api.ResolutionResponse, error) {
	resolver, err := s.lookup(id)
	if err != nil {
		return api.ResolutionResponse{}, err
	}
	resolver.Resolve(ref)
	return s.response(id, resolver), nil
}

// Retry restarts a failed resolution while the retry budget allows.
func (s *ResolutionService) Retry(id string) (api.ResolutionResponse, error) {
	resolver, err := s.lookup(id)
	if err != nil {
		return api.ResolutionResponse{}, err
	}
	if !resolver.Retry() {
		return api.ResolutionResponse{}, conflictCode(fmt.Errorf("resolution cannot be retried"), ErrCodeRetryUnavailable)
	}
	return s.response(id, resolver), nil
}

// CloseSession tears the session down and revokes its object URL.
func (s *ResolutionService) CloseSession(id string) error {
	s.mu.Lock()
	resolver, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return notFoundCode(fmt.Errorf("resolution not found"), ErrCodeResolutionNotFound)
	}
	resolver.Close()
	return nil
}

// Count returns the number of open sessions.
func (s *ResolutionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close closes every session.
func (s *ResolutionService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*asset.Resolver)
	s.closed = true
	s.mu.Unlock()
	for _, resolver := range sessions {
		resolver.Close()
	}
}

func (s *ResolutionService) lookup(id string) (*asset.Resolver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resolver, ok := s.sessions[id]
	if !ok {
		return nil, notFoundCode(fmt.Errorf("resolution not found"), ErrCodeResolutionNotFound)
	}
	return resolver, nil
}

func (s *ResolutionService) response(id string, resolver *asset.Resolver) api.ResolutionResponse {
	state := resolver.State()
	view := asset.ViewOf(state, s.maxRetries)
	return api.ResolutionResponse{
		ID:        id,
		Ref:       state.Reference,
		Phase:     state.Phase.String(),
		ObjectURL: view.ObjectURL,
		IsLoading: view.IsLoading,
		Error:     view.Error,
		Attempt:   view.Attempt,
		CanRetry:  view.CanRetry,
	}
}
