package database

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"catalog/internal/models"
	"catalog/internal/repositories"

	"github.com/sirupsen/logrus"
)

//go:embed seed/products.json
var defaultSeed []byte

// LoadSeedFile reads a JSON product list from path, or returns the embedded
// list when path is empty.
func LoadSeedFile(path string) ([]byte, error) {
	if path == "" {
		return defaultSeed, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	return data, nil
}

// SeedProducts loads the JSON product list in data into an empty catalog and
// returns how many products were added. A catalog that already holds products
// is left untouched.
func SeedProducts(ctx context.Context, repo repositories.ProductRepository, data []byte) (int, error) {
	existing, err := repo.GetAll(ctx, repositories.ProductQuery{})
	if err != nil {
		return 0, fmt.Errorf("failed to inspect catalog before seeding: %w", err)
	}
	if len(existing) > 0 {
		logrus.WithField("products", len(existing)).Info("Catalog already populated, skipping seed")
		return 0, nil
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return 0, fmt.Errorf("failed to parse seed data: %w", err)
	}

	for i := range products {
		products[i].ID = 0
		repo.Add(&products[i])
	}
	if err := repo.SaveChanges(ctx); err != nil {
		return 0, fmt.Errorf("failed to seed products: %w", err)
	}

	logrus.WithField("products", len(products)).Info("Seeded catalog")
	return len(products), nil
}
