package product

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/security"
	"stockbook/pkg/logger"
)

type fakeRepo struct {
	byID map[id.ID]*Product
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[id.ID]*Product)}
}

func (f *fakeRepo) Create(ctx context.Context, p *Product) error {
	f.byID[p.ID] = p
	return nil
}

func (f *fakeRepo) Update(ctx context.Context, p *Product) error {
	if _, ok := f.byID[p.ID]; !ok {
		return apperror.NewNotFound("product", p.ID.String())
	}
	f.byID[p.ID] = p
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	p, ok := f.byID[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	clone := *p
	return &clone, nil
}

func (f *fakeRepo) GetByCode(ctx context.Context, code string) (*Product, error) {
	for _, p := range f.byID {
		if p.Code == code {
			clone := *p
			return &clone, nil
		}
	}
	return nil, apperror.NewNotFound("product", code)
}

func (f *fakeRepo) GetByIDs(ctx context.Context, ids []id.ID) ([]*Product, error) {
	out := make([]*Product, 0, len(ids))
	for _, pid := range ids {
		if p, ok := f.byID[pid]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) List(ctx context.Context, filter Filter) ([]*Product, error) {
	out := make([]*Product, 0, len(f.byID))
	for _, p := range f.byID {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	for _, p := range f.byID {
		if p.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func newProductService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)
	repo := newFakeRepo()
	return NewService(repo, log), repo
}

func TestCreateProduct(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := security.WithActor(context.Background(), &security.Actor{ID: "u1", Name: "Operator"})

	p := New("FD-0001", "Dried Shiitake Whole")
	p.UnitWeight = decimal.RequireFromString("0.5")

	created, err := svc.Create(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, created.Status)
	assert.Equal(t, "Operator", created.CreatedBy)

	// Duplicate code rejected.
	_, err = svc.Create(ctx, New("FD-0001", "Another"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestCreateProduct_Invalid(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		p    *Product
	}{
		{"missing code", &Product{Name: "X", Status: StatusActive}},
		{"missing name", &Product{Code: "FD-1", Status: StatusActive}},
		{"bad status", &Product{Code: "FD-1", Name: "X", Status: Status("gone")}},
		{"negative weight", func() *Product {
			p := New("FD-1", "X")
			p.UnitWeight = decimal.RequireFromString("-1")
			return p
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.p)
			require.Error(t, err)
		})
	}
}

func TestUpdateProduct_CodeImmutable(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, New("FD-0001", "Original"))
	require.NoError(t, err)

	update := *created
	update.Code = "FD-9999"
	update.Name = "Renamed"

	updated, err := svc.Update(ctx, &update)
	require.NoError(t, err)
	assert.Equal(t, "FD-0001", updated.Code)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, created.Version+1, updated.Version)
}

func TestSetStatus(t *testing.T) {
	svc, repo := newProductService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, New("FD-0001", "Original"))
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, created.ID, StatusDiscontinued)
	require.NoError(t, err)
	assert.Equal(t, StatusDiscontinued, updated.Status)
	assert.False(t, updated.IsActive())

	// Discontinuing never removes the row.
	_, ok := repo.byID[created.ID]
	assert.True(t, ok)

	_, err = svc.SetStatus(ctx, created.ID, Status("gone"))
	require.Error(t, err)
}

func TestGetByCode(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, New("FD-0001", "Original"))
	require.NoError(t, err)

	p, err := svc.GetByCode(ctx, "FD-0001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, p.ID)

	_, err = svc.GetByCode(ctx, "")
	require.Error(t, err)

	_, err = svc.GetByCode(ctx, "FD-404")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
