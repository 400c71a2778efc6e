package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"catalog/internal/config"
	"catalog/internal/database"
	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/pkg/rabbitmq"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRabbitMQClient is a mock implementation of the RabbitMQ client
type MockRabbitMQClient struct {
	mock.Mock
}

func (m *MockRabbitMQClient) PublishProductEvent(event rabbitmq.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func TestMain(m *testing.M) {
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestAppServesHealthAndCatalog(t *testing.T) {
	db, err := database.Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSNOverride:  fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	defer database.Close(db)
	require.NoError(t, database.Migrate(db))

	newRepo := repositories.NewGORMFactory(db, 0)
	seeded, err := database.SeedProducts(t.Context(), newRepo(), mustSeed(t))
	require.NoError(t, err)
	require.Positive(t, seeded)

	mockMQ := new(MockRabbitMQClient)
	app := newApp(db, services.NewProductService(newRepo, mockMQ))

	// --- Health ---
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])

	// --- Seeded catalog ---
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/products", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var products []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	assert.Len(t, products, seeded)

	// --- Delete publishes an event ---
	mockMQ.On("PublishProductEvent", mock.MatchedBy(func(e rabbitmq.Event) bool {
		return e.Type == rabbitmq.EventProductDeleted
	})).Return(nil).Once()

	target := fmt.Sprintf("/api/products/%v", products[0]["id"])
	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	mockMQ.AssertExpectations(t)
}

func mustSeed(t *testing.T) []byte {
	t.Helper()
	data, err := database.LoadSeedFile("")
	require.NoError(t, err)
	return data
}
