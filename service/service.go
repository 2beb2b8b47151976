package service

import (
	"storefront/store"
)

type Service struct {
	store store.Store
	guard IdempotencyGuard
}

type Option func(*Service)

// WithIdempotencyGuard enables Idempotency-Key handling for purchases.
func WithIdempotencyGuard(g IdempotencyGuard) Option {
	return func(s *Service) { s.guard = g }
}

func NewService(s store.Store, opts ...Option) *Service {
	svc := &Service{store: s}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

var _ ServiceInterface = (*Service)(nil)
