package server

import (
	"context"

	"github.com/kshitij/safepay/backend/internal/intel"
	"github.com/kshitij/safepay/backend/internal/store"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// BackendHealthService verifies intel graph and store connectivity as part of
// health checks. Either backend may be nil and is then skipped.
type BackendHealthService struct {
	Intel intel.Client
	Store *store.Store
}

// Probe implements the HealthService interface.
func (s BackendHealthService) Probe(ctx context.Context) error {
	if s.Intel != nil {
		if err := s.Intel.VerifyConnectivity(ctx); err != nil {
			return err
		}
	}
	if s.Store != nil {
		if err := s.Store.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
