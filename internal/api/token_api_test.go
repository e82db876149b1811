package api_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"

	"github.com/tinywideclouds/go-fcm-dispatch/internal/api"
)

// --- Mocks ---
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) RegisterFCM(ctx context.Context, u urn.URN, token string) error {
	return m.Called(ctx, u, token).Error(0)
}
func (m *MockTokenStore) UnregisterFCM(ctx context.Context, u urn.URN, token string) error {
	return m.Called(ctx, u, token).Error(0)
}
func (m *MockTokenStore) Fetch(ctx context.Context, u urn.URN) ([]string, error) {
	args := m.Called(ctx, u)
	return args.Get(0).([]string), args.Error(1)
}

// --- Setup ---
func setupAPI(t *testing.T) (*api.TokenAPI, *MockTokenStore) {
	t.Helper()
	mockStore := new(MockTokenStore)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return api.NewTokenAPI(mockStore, logger), mockStore
}

// withUser simulates the JWT middleware for a token that carries a subject but no handle claim.
func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

// --- Tests ---

func TestRegisterFCM(t *testing.T) {
	targetURN, _ := urn.Parse("urn:test:user:123")

	t.Run("Happy Path - Token stored", func(t *testing.T) {
		apiHandler, mockStore := setupAPI(t)
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/register/fcm", bytes.NewBufferString(`{"token": "fcm-token-abc"}`)), targetURN.String())
		w := httptest.NewRecorder()

		mockStore.On("RegisterFCM", mock.Anything, targetURN, "fcm-token-abc").Return(nil)

		apiHandler.RegisterFCM(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockStore.AssertExpectations(t)
	})

	t.Run("Failure - Empty token", func(t *testing.T) {
		apiHandler, mockStore := setupAPI(t)
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/register/fcm", bytes.NewBufferString(`{"token": ""}`)), targetURN.String())
		w := httptest.NewRecorder()

		apiHandler.RegisterFCM(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockStore.AssertNotCalled(t, "RegisterFCM", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failure - Oversized token", func(t *testing.T) {
		apiHandler, mockStore := setupAPI(t)
		body := `{"token": "` + strings.Repeat("x", 4097) + `"}`
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/register/fcm", bytes.NewBufferString(body)), targetURN.String())
		w := httptest.NewRecorder()

		apiHandler.RegisterFCM(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockStore.AssertNotCalled(t, "RegisterFCM", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failure - Malformed JSON", func(t *testing.T) {
		apiHandler, _ := setupAPI(t)
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/register/fcm", bytes.NewBufferString(`{token`)), targetURN.String())
		w := httptest.NewRecorder()

		apiHandler.RegisterFCM(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Failure - No authenticated user", func(t *testing.T) {
		apiHandler, _ := setupAPI(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/register/fcm", bytes.NewBufferString(`{"token": "x"}`))
		w := httptest.NewRecorder()

		apiHandler.RegisterFCM(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Failure - Authenticated user is not a URN", func(t *testing.T) {
		apiHandler, mockStore := setupAPI(t)
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/register/fcm", bytes.NewBufferString(`{"token": "x"}`)), "urn:sm:user")
		w := httptest.NewRecorder()

		apiHandler.RegisterFCM(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockStore.AssertNotCalled(t, "RegisterFCM", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failure - Store error", func(t *testing.T) {
		apiHandler, mockStore := setupAPI(t)
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/register/fcm", bytes.NewBufferString(`{"token": "x"}`)), targetURN.String())
		w := httptest.NewRecorder()

		mockStore.On("RegisterFCM", mock.Anything, targetURN, "x").Return(assert.AnError)

		apiHandler.RegisterFCM(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestUnregisterFCM(t *testing.T) {
	targetURN, _ := urn.Parse("urn:test:user:123")

	t.Run("Happy Path - Token removed", func(t *testing.T) {
		apiHandler, mockStore := setupAPI(t)
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/unregister/fcm", bytes.NewBufferString(`{"token": "old"}`)), targetURN.String())
		w := httptest.NewRecorder()

		mockStore.On("UnregisterFCM", mock.Anything, targetURN, "old").Return(nil)

		apiHandler.UnregisterFCM(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockStore.AssertExpectations(t)
	})

	t.Run("Store error is not surfaced", func(t *testing.T) {
		apiHandler, mockStore := setupAPI(t)
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/unregister/fcm", bytes.NewBufferString(`{"token": "old"}`)), targetURN.String())
		w := httptest.NewRecorder()

		mockStore.On("UnregisterFCM", mock.Anything, targetURN, "old").Return(assert.AnError)

		apiHandler.UnregisterFCM(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
