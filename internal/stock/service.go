package stock

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
)

// RepositoryPort defines read access to the stock book.
type RepositoryPort interface {
	List(ctx context.Context) ([]Lot, error)
	ListUnsold(ctx context.Context, item bullion.Item) ([]Lot, error)
}

// Service exposes the stock book to history views. Mutations happen only
// through ledger operations.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Summary aggregates unsold stock per lot kind.
type Summary struct {
	Item        bullion.Item
	LotCount    int
	TotalWeight decimal.Decimal
}

// List returns all lots, degrading to empty on storage failure.
func (s *Service) List(ctx context.Context) []Lot {
	lots, err := s.repo.List(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("list stock lots", slog.Any("error", err))
		}
		return nil
	}
	return lots
}

// Unsold returns unsold lots of one kind, oldest first.
func (s *Service) Unsold(ctx context.Context, item bullion.Item) ([]Lot, error) {
	if !item.IsLot() {
		return nil, ErrNotLotItem
	}
	return s.repo.ListUnsold(ctx, item)
}

// Summaries totals unsold weight per lot kind.
func (s *Service) Summaries(ctx context.Context) []Summary {
	var out []Summary
	for _, item := range []bullion.Item{bullion.ItemRani, bullion.ItemRupu} {
		lots, err := s.repo.ListUnsold(ctx, item)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("summarise stock", slog.String("item", string(item)), slog.Any("error", err))
			}
			continue
		}
		sum := Summary{Item: item}
		for _, l := range lots {
			sum.LotCount++
			sum.TotalWeight = sum.TotalWeight.Add(l.Weight)
		}
		out = append(out, sum)
	}
	return out
}
