package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var productRepositoryTracer = otel.Tracer("ProductRepository")

type changeKind int

const (
	changeAdd changeKind = iota
	changeUpdate
	changeDelete
)

type stagedChange struct {
	kind    changeKind
	product *models.Product
}

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db      *gorm.DB
	timeout time.Duration
	pending []stagedChange
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
// A non-zero timeout bounds every store round trip.
func NewGORMProductRepository(db *gorm.DB, timeout time.Duration) *GORMProductRepository {
	return &GORMProductRepository{
		db:      db,
		timeout: timeout,
	}
}

// NewGORMFactory returns a Factory handing out one GORMProductRepository per
// call, all sharing the connection pool of db.
func NewGORMFactory(db *gorm.DB, timeout time.Duration) Factory {
	return func() ProductRepository {
		return NewGORMProductRepository(db, timeout)
	}
}

func (r *GORMProductRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetAll retrieves the products matching query, ordered by its sort key.
func (r *GORMProductRepository) GetAll(ctx context.Context, query ProductQuery) ([]models.Product, error) {
	ctx, span := productRepositoryTracer.Start(ctx, "ProductRepository.GetAll")
	defer span.End()
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	brand := strings.TrimSpace(query.Brand)
	productType := strings.TrimSpace(query.Type)
	sort := NormalizeSort(query.Sort)
	span.SetAttributes(
		attribute.String("product.brand", brand),
		attribute.String("product.type", productType),
		attribute.String("product.sort", sort),
	)

	tx := r.db.WithContext(ctx).Model(&models.Product{})
	if brand != "" {
		tx = tx.Where("LOWER(brand) = LOWER(?)", brand)
	}
	if productType != "" {
		tx = tx.Where("LOWER(type) = LOWER(?)", productType)
	}
	switch sort {
	case SortPriceAsc:
		tx = tx.Order("price ASC").Order("id ASC")
	case SortPriceDesc:
		tx = tx.Order("price DESC").Order("id ASC")
	default:
		tx = tx.Order("LOWER(name) ASC").Order("id ASC")
	}

	var products []models.Product
	if err := tx.Find(&products).Error; err != nil {
		fail(span, err)
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	ctx, span := productRepositoryTracer.Start(ctx, "ProductRepository.GetByID")
	defer span.End()
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	span.SetAttributes(attribute.Int64("product.id", int64(id)))

	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		fail(span, err)
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, err)
	}
	return &product, nil
}

// Exists reports whether a product with the given ID is stored.
func (r *GORMProductRepository) Exists(ctx context.Context, id uint) (bool, error) {
	ctx, span := productRepositoryTracer.Start(ctx, "ProductRepository.Exists")
	defer span.End()
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	span.SetAttributes(attribute.Int64("product.id", int64(id)))

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
		fail(span, err)
		return false, fmt.Errorf("failed to check product %d: %w", id, err)
	}
	return count > 0, nil
}

// Brands returns every distinct brand in lexicographic order. Brands that
// differ only in case are listed once, under their smallest spelling.
func (r *GORMProductRepository) Brands(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "brand")
}

// Types returns every distinct product type, grouped like Brands.
func (r *GORMProductRepository) Types(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "type")
}

func (r *GORMProductRepository) distinct(ctx context.Context, column string) ([]string, error) {
	ctx, span := productRepositoryTracer.Start(ctx, "ProductRepository.Distinct")
	defer span.End()
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	span.SetAttributes(attribute.String("product.column", column))

	// Facet filters ignore case, so the lists group the same way.
	representative := "MIN(" + column + ")"
	var values []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Group("LOWER(" + column + ")").
		Order(representative + " ASC").
		Pluck(representative, &values).Error
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("failed to get distinct %s values: %w", column, err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// Add stages product for insertion. Its ID is assigned by the store when
// SaveChanges succeeds.
func (r *GORMProductRepository) Add(product *models.Product) {
	r.pending = append(r.pending, stagedChange{kind: changeAdd, product: product})
}

// Update stages a full overwrite of the stored row with product's ID. A row
// that no longer exists is left alone.
func (r *GORMProductRepository) Update(product *models.Product) {
	r.pending = append(r.pending, stagedChange{kind: changeUpdate, product: product})
}

// Delete stages removal of product.
func (r *GORMProductRepository) Delete(product *models.Product) {
	r.pending = append(r.pending, stagedChange{kind: changeDelete, product: product})
}

// SaveChanges applies every staged change in a single transaction. The staged
// list is cleared whatever the outcome.
func (r *GORMProductRepository) SaveChanges(ctx context.Context) error {
	ctx, span := productRepositoryTracer.Start(ctx, "ProductRepository.SaveChanges")
	defer span.End()

	pending := r.pending
	r.pending = nil
	span.SetAttributes(attribute.Int("changes", len(pending)))
	if len(pending) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, change := range pending {
			if err := change.apply(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// IDs handed out inside the rolled back transaction were never persisted.
		for _, change := range pending {
			if change.kind == changeAdd {
				change.product.ID = 0
			}
		}
		commitErr := newCommitError(err)
		fail(span, commitErr)
		return commitErr
	}
	return nil
}

func (c stagedChange) apply(tx *gorm.DB) error {
	switch c.kind {
	case changeAdd:
		return tx.Create(c.product).Error
	case changeUpdate:
		return tx.Model(c.product).Select("*").Omit("id").Updates(c.product).Error
	case changeDelete:
		return tx.Delete(&models.Product{}, "id = ?", c.product.ID).Error
	}
	return fmt.Errorf("unknown change kind %d", c.kind)
}
