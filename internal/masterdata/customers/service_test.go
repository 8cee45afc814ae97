package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/masterdata/shared"
)

type memoryRepo struct {
	byID   map[int64]Customer
	nextID int64
	seq    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: map[int64]Customer{}}
}

func (m *memoryRepo) List(_ context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	var out []Customer
	for _, c := range m.byID {
		if filters.IsActive != nil && c.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Customer, error) {
	c, ok := m.byID[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) Create(_ context.Context, customer Customer) (Customer, error) {
	for _, existing := range m.byID {
		if existing.Code == customer.Code {
			return Customer{}, shared.ErrDuplicate
		}
	}
	m.nextID++
	customer.ID = m.nextID
	m.byID[customer.ID] = customer
	return customer, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, customer Customer) error {
	existing, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	customer.ID = id
	customer.Code = existing.Code
	m.byID[id] = customer
	return nil
}

func (m *memoryRepo) Deactivate(_ context.Context, id int64) error {
	c, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.IsActive = false
	m.byID[id] = c
	return nil
}

func (m *memoryRepo) NextCodeSeq(context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

func TestCreateGeneratesSequentialCodes(t *testing.T) {
	svc := NewService(newMemoryRepo())

	first, err := svc.Create(context.Background(), Customer{Name: "Acme Trading"})
	require.NoError(t, err)
	require.Equal(t, "CUST-0001", first.Code)
	require.True(t, first.IsActive)

	second, err := svc.Create(context.Background(), Customer{Name: "Globex"})
	require.NoError(t, err)
	require.Equal(t, "CUST-0002", second.Code)
}

func TestCreateKeepsExplicitCode(t *testing.T) {
	svc := NewService(newMemoryRepo())

	c, err := svc.Create(context.Background(), Customer{Name: "Acme", Code: "ACME"})
	require.NoError(t, err)
	require.Equal(t, "ACME", c.Code)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Customer{Name: "Acme", Code: "ACME"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), Customer{Name: "Other", Code: "ACME"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Customer{Name: "   "})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	_, err = svc.Create(context.Background(), Customer{Name: "Acme", Email: "not-an-email"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeactivateIsSoftDelete(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	c, err := svc.Create(context.Background(), Customer{Name: "Acme"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), c.ID))

	got, err := svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
}

func TestGetRejectsInvalidID(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidID)
}
