package services

import (
	"context"
	"errors"
	"fmt"

	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/pkg/rabbitmq"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	// ErrIDMismatch is returned when the ID in the request path differs from
	// the ID in the payload.
	ErrIDMismatch = errors.New("product ID in path does not match payload")
	// ErrProductNotExists is returned when updating a product that is not stored.
	ErrProductNotExists = errors.New("cannot update a product that does not exist")
)

// EventPublisher receives catalog events once a change has been committed.
type EventPublisher interface {
	PublishProductEvent(event rabbitmq.Event) error
}

// ProductService handles business logic related to products.
type ProductService struct {
	newRepo  repositories.Factory
	events   EventPublisher
	validate *validator.Validate
}

// NewProductService creates a new ProductService. Every call opens its own
// repository from newRepo. events may be nil.
func NewProductService(newRepo repositories.Factory, events EventPublisher) *ProductService {
	return &ProductService{
		newRepo:  newRepo,
		events:   events,
		validate: newValidator(),
	}
}

// GetProducts lists products, optionally narrowed to a brand and a type and
// ordered by sort.
func (s *ProductService) GetProducts(ctx context.Context, brand, productType, sort string) ([]models.Product, error) {
	return s.newRepo().GetAll(ctx, repositories.ProductQuery{
		Brand: brand,
		Type:  productType,
		Sort:  sort,
	})
}

// GetProductByID retrieves a single product, or repositories.ErrProductNotFound.
func (s *ProductService) GetProductByID(ctx context.Context, id uint) (*models.Product, error) {
	return s.newRepo().GetByID(ctx, id)
}

func (s *ProductService) GetBrands(ctx context.Context) ([]string, error) {
	return s.newRepo().Brands(ctx)
}

func (s *ProductService) GetTypes(ctx context.Context) ([]string, error) {
	return s.newRepo().Types(ctx)
}

func (s *ProductService) ProductExists(ctx context.Context, id uint) (bool, error) {
	return s.newRepo().Exists(ctx, id)
}

// CreateProduct stores a new product. Any ID in the payload is ignored; the
// store-assigned ID is set on product when the call succeeds.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := s.ValidateProduct(product); err != nil {
		return err
	}
	product.ID = 0

	repo := s.newRepo()
	repo.Add(product)
	if err := repo.SaveChanges(ctx); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	s.publish(rabbitmq.EventProductCreated, product.ID, product)
	return nil
}

// UpdateProduct overwrites the stored product id with product.
func (s *ProductService) UpdateProduct(ctx context.Context, id uint, product *models.Product) error {
	if product.ID != id {
		return ErrIDMismatch
	}
	if err := s.ValidateProduct(product); err != nil {
		return err
	}

	repo := s.newRepo()
	exists, err := repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrProductNotExists
	}

	repo.Update(product)
	if err := repo.SaveChanges(ctx); err != nil {
		return fmt.Errorf("failed to update product %d: %w", id, err)
	}

	s.publish(rabbitmq.EventProductUpdated, id, product)
	return nil
}

// DeleteProduct removes a product, or returns repositories.ErrProductNotFound
// without touching the store.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	repo := s.newRepo()
	product, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	repo.Delete(product)
	if err := repo.SaveChanges(ctx); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}

	s.publish(rabbitmq.EventProductDeleted, id, nil)
	return nil
}

func (s *ProductService) publish(eventType string, productID uint, data any) {
	if s.events == nil {
		return
	}
	event := rabbitmq.NewEvent(eventType, productID, data)
	if err := s.events.PublishProductEvent(event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event_type": eventType,
			"product_id": productID,
		}).Warn("Failed to publish catalog event")
	}
}
