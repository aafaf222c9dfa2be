package stock

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
)

type memoryStockRepo struct {
	lots    map[string]*Lot
	listErr error
}

func newMemoryStockRepo() *memoryStockRepo {
	return &memoryStockRepo{lots: make(map[string]*Lot)}
}

func (r *memoryStockRepo) List(ctx context.Context) ([]Lot, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.sorted(func(l *Lot) bool { return true }), nil
}

func (r *memoryStockRepo) ListUnsold(ctx context.Context, item bullion.Item) ([]Lot, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.sorted(func(l *Lot) bool { return l.Item == item && !l.IsSold }), nil
}

func (r *memoryStockRepo) sorted(keep func(*Lot) bool) []Lot {
	var out []Lot
	for _, l := range r.lots {
		if keep(l) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].StockID < out[j].StockID
	})
	return out
}

func TestUnsoldRejectsNonLotItems(t *testing.T) {
	svc := NewService(newMemoryStockRepo(), nil)
	_, err := svc.Unsold(context.Background(), bullion.ItemGold999)
	require.ErrorIs(t, err, ErrNotLotItem)
}

func TestSummariesTotalUnsoldWeight(t *testing.T) {
	repo := newMemoryStockRepo()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	repo.lots["a"] = &Lot{StockID: "a", Item: bullion.ItemRani, Weight: decimal.NewFromInt(10), CreatedAt: base}
	repo.lots["b"] = &Lot{StockID: "b", Item: bullion.ItemRani, Weight: decimal.NewFromInt(5), IsSold: true, CreatedAt: base.Add(time.Hour)}
	repo.lots["c"] = &Lot{StockID: "c", Item: bullion.ItemRupu, Weight: decimal.NewFromInt(100), CreatedAt: base}

	svc := NewService(repo, nil)
	sums := svc.Summaries(context.Background())
	require.Len(t, sums, 2)
	require.Equal(t, bullion.ItemRani, sums[0].Item)
	require.Equal(t, 1, sums[0].LotCount)
	require.True(t, sums[0].TotalWeight.Equal(decimal.NewFromInt(10)))
	require.Equal(t, bullion.ItemRupu, sums[1].Item)
	require.True(t, sums[1].TotalWeight.Equal(decimal.NewFromInt(100)))
}

func TestListDegradesToEmpty(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.listErr = errors.New("storage down")
	svc := NewService(repo, nil)
	require.Empty(t, svc.List(context.Background()))
}
