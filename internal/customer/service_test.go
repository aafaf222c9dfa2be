package customer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
)

type memoryCustomerRepo struct {
	customers map[string]*Customer
	cuts      map[string]map[bullion.Metal]time.Time
	listErr   error
}

func newMemoryCustomerRepo() *memoryCustomerRepo {
	return &memoryCustomerRepo{
		customers: make(map[string]*Customer),
		cuts:      make(map[string]map[bullion.Metal]time.Time),
	}
}

func (r *memoryCustomerRepo) GetByID(ctx context.Context, id string) (*Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (r *memoryCustomerRepo) List(ctx context.Context) ([]Customer, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []Customer
	for _, c := range r.customers {
		out = append(out, *c)
	}
	return out, nil
}

func (r *memoryCustomerRepo) RateCuts(ctx context.Context, customerID string) (map[bullion.Metal]time.Time, error) {
	return r.cuts[customerID], nil
}

func (r *memoryCustomerRepo) SetRateCut(ctx context.Context, cut RateCut) error {
	if r.cuts[cut.CustomerID] == nil {
		r.cuts[cut.CustomerID] = make(map[bullion.Metal]time.Time)
	}
	r.cuts[cut.CustomerID][cut.Metal] = cut.LockedBefore
	return nil
}

func TestGetRequiresID(t *testing.T) {
	svc := NewService(newMemoryCustomerRepo(), nil)
	_, err := svc.Get(context.Background(), "")
	require.Error(t, err)
}

func TestGetNotFound(t *testing.T) {
	svc := NewService(newMemoryCustomerRepo(), nil)
	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListDegradesToEmpty(t *testing.T) {
	repo := newMemoryCustomerRepo()
	repo.listErr = errors.New("storage down")
	svc := NewService(repo, nil)
	require.Empty(t, svc.List(context.Background()))
}

func TestRecordRateCutValidation(t *testing.T) {
	repo := newMemoryCustomerRepo()
	svc := NewService(repo, nil)

	err := svc.RecordRateCut(context.Background(), RateCut{CustomerID: "c1", Metal: "copper", LockedBefore: time.Now()})
	require.Error(t, err)

	err = svc.RecordRateCut(context.Background(), RateCut{CustomerID: "c1", Metal: bullion.MetalGold999})
	require.Error(t, err)

	lock := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	err = svc.RecordRateCut(context.Background(), RateCut{CustomerID: "c1", Metal: bullion.MetalGold999, LockedBefore: lock})
	require.NoError(t, err)

	cuts, err := svc.RateCuts(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, lock, cuts[bullion.MetalGold999])
}

func TestIsZeroEffect(t *testing.T) {
	require.True(t, IsZeroEffect("adjust"))
	require.True(t, IsZeroEffect(" Adjust "))
	require.True(t, IsZeroEffect("expense(kharch)"))
	require.False(t, IsZeroEffect("ramesh jewellers"))
}
