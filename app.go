package main

import (
	"catalog/internal/handlers"
	"catalog/internal/middleware"
	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// newApp wires the product routes and the health check onto a Fiber app.
func newApp(db *gorm.DB, productService *services.ProductService) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "catalog",
	})

	// --- Middleware ---
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(recover.New())
	app.Use(middleware.Tracing())
	app.Use(middleware.RequestLogger(logrus.StandardLogger()))

	// --- Routes ---
	handlers.NewHealthHandler(db).RegisterRoutes(app)

	api := app.Group("/api")
	handlers.NewProductHandler(productService).RegisterRoutes(api)

	return app
}
