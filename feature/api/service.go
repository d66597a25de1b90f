package api

import (
	"context"
	"sync"

	"asset-pipeline/core/asset"
	"asset-pipeline/core/server"

	"go.uber.org/zap"
)

// StatusReport is the externally visible state of one source path.
type StatusReport struct {
	Path     string `json:"path"`
	ID       string `json:"id,omitempty"`
	State    string `json:"state"`
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Service exposes asset server operations to the HTTP layer. Loads
// started through the API are pinned with a strong handle held by the
// service, so they stay alive until an explicit unload.
type Service struct {
	srv    *server.Server
	logger *zap.Logger

	mu      sync.Mutex
	handles map[string]*asset.Handle
}

// NewService creates a new API service over the asset server.
func NewService(srv *server.Server, logger *zap.Logger) *Service {
	return &Service{
		srv:     srv,
		logger:  logger,
		handles: make(map[string]*asset.Handle),
	}
}

// Load requests the asset at path. Repeated loads of the same path keep
// a single pin.
func (s *Service) Load(path string) StatusReport {
	p := asset.ParsePath(path)
	h := s.srv.LoadPath(p)

	s.mu.Lock()
	if _, ok := s.handles[p.String()]; ok {
		h.Release()
		h = s.handles[p.String()]
	} else {
		s.handles[p.String()] = h
	}
	s.mu.Unlock()

	return s.statusFor(p, h)
}

// Wait blocks until the source at path is terminal, then reports it.
func (s *Service) Wait(ctx context.Context, path string) (StatusReport, error) {
	p := asset.ParsePath(path)
	if _, err := s.srv.WaitFor(ctx, p); err != nil {
		return StatusReport{}, err
	}
	return s.Status(path), nil
}

// Status reports the state of the source at path.
func (s *Service) Status(path string) StatusReport {
	p := asset.ParsePath(path)
	s.mu.Lock()
	h := s.handles[p.String()]
	s.mu.Unlock()
	return s.statusFor(p, h)
}

func (s *Service) statusFor(p asset.Path, h *asset.Handle) StatusReport {
	r := StatusReport{
		Path:     p.String(),
		State:    s.srv.GetLoadState(p).String(),
		Degraded: s.srv.IsDegraded(p),
	}
	if h != nil {
		r.ID = h.ID().String()
	}
	if err := s.srv.LoadError(p); err != nil {
		r.Error = err.Error()
	}
	return r
}

// Reload re-imports the source at path if its content changed.
func (s *Service) Reload(ctx context.Context, path string) error {
	return s.srv.Reload(ctx, asset.ParsePath(path))
}

// Unload drops the API's pin and force-removes the source.
func (s *Service) Unload(path string) {
	p := asset.ParsePath(path)

	s.mu.Lock()
	if h, ok := s.handles[p.String()]; ok {
		h.Release()
		delete(s.handles, p.String())
	}
	s.mu.Unlock()

	s.srv.Unload(p)
}

// Events drains the buffered asset lifecycle events.
func (s *Service) Events() []asset.Event {
	return s.srv.Events()
}

// Collect runs a garbage collection pass over unreferenced assets.
func (s *Service) Collect() {
	s.srv.FreeUnused()
}
