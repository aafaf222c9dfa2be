package customer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
)

// RepositoryPort defines data access methods for customers.
type RepositoryPort interface {
	GetByID(ctx context.Context, id string) (*Customer, error)
	List(ctx context.Context) ([]Customer, error)
	RateCuts(ctx context.Context, customerID string) (map[bullion.Metal]time.Time, error)
	SetRateCut(ctx context.Context, cut RateCut) error
}

// Service handles customer reads and rate-cut maintenance. Balances are
// mutated only by ledger operations.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Get returns one customer with balances.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	if id == "" {
		return nil, errors.New("customer: id required")
	}
	return s.repo.GetByID(ctx, id)
}

// List returns all customers. Degrades to empty on storage failure so the
// directory view stays usable.
func (s *Service) List(ctx context.Context) []Customer {
	out, err := s.repo.List(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("list customers", slog.Any("error", err))
		}
		return nil
	}
	return out
}

// RateCuts returns the per-metal lock dates for a customer.
func (s *Service) RateCuts(ctx context.Context, customerID string) (map[bullion.Metal]time.Time, error) {
	if customerID == "" {
		return nil, errors.New("customer: id required")
	}
	return s.repo.RateCuts(ctx, customerID)
}

// RecordRateCut stores a lock date: transactions dated before it become
// edit-locked for that metal.
func (s *Service) RecordRateCut(ctx context.Context, cut RateCut) error {
	if cut.CustomerID == "" {
		return errors.New("customer: id required")
	}
	if cut.LockedBefore.IsZero() {
		return errors.New("customer: lock date required")
	}
	switch cut.Metal {
	case bullion.MetalGold999, bullion.MetalGold995, bullion.MetalSilver:
	default:
		return errors.New("customer: unknown metal")
	}
	return s.repo.SetRateCut(ctx, cut)
}
