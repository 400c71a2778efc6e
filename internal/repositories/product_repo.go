package repositories

import (
	"context"
	"strings"

	"catalog/internal/models"
)

// Recognized sort keys for product listings. Anything else sorts by name.
const (
	SortPriceAsc  = "price"
	SortPriceDesc = "priceDesc"
	SortName      = "name"
)

// ProductQuery holds the optional filters and sort key of a product listing.
type ProductQuery struct {
	Brand string
	Type  string
	Sort  string
}

// NormalizeSort maps a client supplied sort token onto one of the recognized
// sort keys. Matching ignores case and unknown tokens fall back to SortName.
func NormalizeSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "price", "priceasc":
		return SortPriceAsc
	case "pricedesc":
		return SortPriceDesc
	default:
		return SortName
	}
}

// ProductRepository defines the interface for product data access.
//
// A ProductRepository is a unit of work scoped to a single request: Add,
// Update and Delete only stage changes, which become visible to other
// requests once SaveChanges commits them in one transaction. Implementations
// are not safe for concurrent use.
type ProductRepository interface {
	GetAll(ctx context.Context, query ProductQuery) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Brands(ctx context.Context) ([]string, error)
	Types(ctx context.Context) ([]string, error)

	Add(product *models.Product)
	Update(product *models.Product)
	Delete(product *models.Product)
	SaveChanges(ctx context.Context) error
}

// Factory opens a new request-scoped ProductRepository.
type Factory func() ProductRepository
