package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"blueprint/internal/asset"
	"blueprint/internal/blobstore"
	"blueprint/internal/notify"
	"blueprint/internal/store"
)

const (
	allowRemoteEnvKey = "BLUEPRINT_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Options carries the collaborators of a Server. Projects and Assets are
// required.
type Options struct {
	Projects     store.ProjectStore
	Assets       blobstore.Store
	AssetBackend string
	Objects      *asset.ObjectURLs
	Center       *notify.Center
	Bus          notify.Bus
	Clock        clockwork.Clock

	DeletionGrace    time.Duration
	MaxRetries       int
	MaxResolutions   int
	MaxAssetUploadMB int64

	Logger *slog.Logger
}

// Server wraps HTTP handlers for the blueprint API.
type Server struct {
	addr          string
	store         store.ProjectStore
	assets        blobstore.Store
	assetBackend  string
	objects       *asset.ObjectURLs
	notifications *notify.Center
	service       *ProjectService
	resolutions   *ResolutionService
	clock         clockwork.Clock
	maxUpload     int64
	logger        *slog.Logger
}

// New creates a new server instance and attaches its notification center to
// the bus.
func New(addr string, opts Options) (*Server, error) {
	if opts.Projects == nil {
		return nil, errors.New("project store is required")
	}
	if opts.Assets == nil {
		return nil, errors.New("asset store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	objects := opts.Objects
	if objects == nil {
		objects = asset.NewObjectURLs("")
	}
	bus := opts.Bus
	if bus == nil {
		bus = notify.NewLocalBus(logger)
	}
	center := opts.Center
	if center == nil {
		center = notify.NewCenter(notify.CenterOptions{Clock: clock, Logger: logger})
	}
	if err := center.Attach(bus); err != nil {
		return nil, fmt.Errorf("attach notification center: %w", err)
	}

	service, err := NewProjectService(ProjectServiceOptions{
		Store:  opts.Projects,
		Bus:    bus,
		Clock:  clock,
		Grace:  opts.DeletionGrace,
		Logger: logger,
	})
	if err != nil {
		center.Close()
		return nil, err
	}

	maxUpload := opts.MaxAssetUploadMB << 20
	if maxUpload <= 0 {
		maxUpload = defaultAssetMaxBody
	}

	return &Server{
		addr:          addr,
		store:         opts.Projects,
		assets:        opts.Assets,
		assetBackend:  opts.AssetBackend,
		objects:       objects,
		notifications: center,
		service:       service,
		resolutions:   NewResolutionService(opts.Assets, objects, opts.MaxRetries, opts.MaxResolutions, logger),
		clock:         clock,
		maxUpload:     maxUpload,
		logger:        logger,
	}, nil
}

// ListenAndServe starts the HTTP server and blocks until ctx is done or the
// listener fails. Pending deletions are dropped on shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	s.log().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.routes())
}

// Close stops deferred deletions, closes resolution sessions and clears the
// notification center.
func (s *Server) Close() {
	s.service.Close()
	s.resolutions.Close()
	s.notifications.Close()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
