package handlers

import (
	"errors"
	"fmt"
	"strings"

	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service: service,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	// Facet routes go before /:id so they are not parsed as IDs.
	productRoutes.Get("/brands", h.HandleGetBrands)
	productRoutes.Get("/types", h.HandleGetTypes)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

func productID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product ID %q", c.Params("id"))
	}
	return uint(id), nil
}

func invalidID(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid product ID",
		"error":   err.Error(),
	})
}

// HandleGetProducts lists products filtered by the brand and type query
// parameters and ordered by sort.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetProducts(c.UserContext(), c.Query("brand"), c.Query("type"), c.Query("sort"))
	if err != nil {
		return h.respondError(c, err, "Could not retrieve products")
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return invalidID(c, err)
	}
	product, err := h.service.GetProductByID(c.UserContext(), id)
	if err != nil {
		return h.respondError(c, err, "Could not retrieve product")
	}
	return c.JSON(product)
}

func (h *ProductHandler) HandleGetBrands(c *fiber.Ctx) error {
	brands, err := h.service.GetBrands(c.UserContext())
	if err != nil {
		return h.respondError(c, err, "Could not retrieve brands")
	}
	return c.JSON(brands)
}

func (h *ProductHandler) HandleGetTypes(c *fiber.Ctx) error {
	types, err := h.service.GetTypes(c.UserContext())
	if err != nil {
		return h.respondError(c, err, "Could not retrieve types")
	}
	return c.JSON(types)
}

// HandleCreateProduct creates a new product and points Location at it.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.service.CreateProduct(c.UserContext(), &product); err != nil {
		return h.respondError(c, err, "Failed to create product")
	}

	c.Location(fmt.Sprintf("%s/%d", strings.TrimSuffix(c.Path(), "/"), product.ID))
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct replaces an existing product with the request body.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return invalidID(c, err)
	}

	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.service.UpdateProduct(c.UserContext(), id, &product); err != nil {
		return h.respondError(c, err, "Failed to update product")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return invalidID(c, err)
	}

	if err := h.service.DeleteProduct(c.UserContext(), id); err != nil {
		return h.respondError(c, err, "Failed to delete product")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// respondError maps service and repository errors onto status codes.
func (h *ProductHandler) respondError(c *fiber.Ctx, err error, message string) error {
	var validationErr *services.ValidationError
	var commitErr *repositories.CommitError

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErr.Fields,
		})
	case errors.Is(err, repositories.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Product not found",
		})
	case errors.Is(err, services.ErrIDMismatch), errors.Is(err, services.ErrProductNotExists):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Cannot update this product",
			"error":   err.Error(),
		})
	case errors.As(err, &commitErr):
		status := fiber.StatusBadRequest
		if commitErr.Reason == repositories.ReasonUnavailable {
			status = fiber.StatusServiceUnavailable
		}
		logrus.WithError(err).WithField("reason", commitErr.Reason).Warn(message)
		return c.Status(status).JSON(fiber.Map{
			"message": message,
			"error":   err.Error(),
			"reason":  commitErr.Reason,
		})
	}

	logrus.WithError(err).Error(message)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}
