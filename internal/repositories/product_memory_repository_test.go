package repositories_test

import (
	"context"
	"testing"

	"catalog/internal/models"
	"catalog/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProductRepository_UnitOfWork(t *testing.T) {
	ctx := context.Background()
	newRepo := repositories.NewMemoryFactory(repositories.NewMemoryStore())

	repo := newRepo()
	bike := product("bike", "Acme", "Cycle", "199.99")
	bell := product("Bell", "Contoso", "Bell", "5.25")
	repo.Add(bike)
	repo.Add(bell)

	staged, err := newRepo().GetAll(ctx, repositories.ProductQuery{})
	require.NoError(t, err)
	assert.Empty(t, staged)

	require.NoError(t, repo.SaveChanges(ctx))
	assert.Equal(t, uint(1), bike.ID)
	assert.Equal(t, uint(2), bell.ID)

	products, err := newRepo().GetAll(ctx, repositories.ProductQuery{})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Bell", products[0].Name)

	products, err = newRepo().GetAll(ctx, repositories.ProductQuery{Sort: "priceDesc"})
	require.NoError(t, err)
	assert.Equal(t, "bike", products[0].Name)

	products, err = newRepo().GetAll(ctx, repositories.ProductQuery{Brand: "acme"})
	require.NoError(t, err)
	require.Len(t, products, 1)

	brands, err := newRepo().Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Contoso"}, brands)
}

func TestMemoryProductRepository_FailedCommitChangesNothing(t *testing.T) {
	ctx := context.Background()
	newRepo := repositories.NewMemoryFactory(repositories.NewMemoryStore())

	bike := product("Bike", "Acme", "Cycle", "1")
	seedRepo := newRepo()
	seedRepo.Add(bike)
	require.NoError(t, seedRepo.SaveChanges(ctx))

	fresh := product("Fresh", "Acme", "Cycle", "1")
	duplicate := &models.Product{ID: bike.ID, Name: "Duplicate", Brand: "Acme", Type: "Cycle"}
	repo := newRepo()
	repo.Add(fresh)
	repo.Add(duplicate)
	err := repo.SaveChanges(ctx)

	assert.ErrorIs(t, err, repositories.ErrConflict)
	assert.Zero(t, fresh.ID)
	products, err := newRepo().GetAll(ctx, repositories.ProductQuery{})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Bike", products[0].Name)
}

func TestMemoryProductRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	newRepo := repositories.NewMemoryFactory(repositories.NewMemoryStore())

	bike := product("Bike", "Acme", "Cycle", "1")
	repo := newRepo()
	repo.Add(bike)
	require.NoError(t, repo.SaveChanges(ctx))

	replacement := product("Bike v2", "Acme", "Cycle", "2")
	replacement.ID = bike.ID
	ghost := product("Ghost", "Acme", "Cycle", "3")
	ghost.ID = 99
	repo.Update(replacement)
	repo.Update(ghost)
	require.NoError(t, repo.SaveChanges(ctx))

	got, err := repo.GetByID(ctx, bike.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bike v2", got.Name)
	ok, err := repo.Exists(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)

	repo.Delete(got)
	require.NoError(t, repo.SaveChanges(ctx))
	_, err = repo.GetByID(ctx, bike.ID)
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)
}

func TestMemoryProductRepository_CanceledCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := repositories.NewMemoryFactory(repositories.NewMemoryStore())()
	repo.Add(product("Bike", "Acme", "Cycle", "1"))
	assert.ErrorIs(t, repo.SaveChanges(ctx), repositories.ErrUnavailable)
}

func TestMemoryProductRepository_FacetsIgnoreCase(t *testing.T) {
	ctx := context.Background()
	newRepo := repositories.NewMemoryFactory(repositories.NewMemoryStore())

	repo := newRepo()
	repo.Add(product("Bike", "Acme", "Cycle", "1"))
	repo.Add(product("Cruiser", "ACME", "cycle", "1"))
	repo.Add(product("Gloves", "Contoso", "Gloves", "1"))
	require.NoError(t, repo.SaveChanges(ctx))

	brands, err := newRepo().Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME", "Contoso"}, brands)

	types, err := newRepo().Types(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cycle", "Gloves"}, types)
}
