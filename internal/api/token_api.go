// Package api exposes the device registration endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"

	"github.com/tinywideclouds/go-fcm-dispatch/pkg/dispatch"
)

var validate = validator.New()

type TokenAPI struct {
	Store  dispatch.TokenStore
	Logger *slog.Logger
}

func NewTokenAPI(store dispatch.TokenStore, logger *slog.Logger) *TokenAPI {
	return &TokenAPI{
		Store:  store,
		Logger: logger.With("component", "TokenAPI"),
	}
}

// TokenRequest is the body of both registration endpoints.
type TokenRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}

// RegisterFCM handles POST /api/v1/register/fcm.
func (api *TokenAPI) RegisterFCM(w http.ResponseWriter, r *http.Request) {
	user, token, ok := api.decode(w, r)
	if !ok {
		return
	}

	if err := api.Store.RegisterFCM(r.Context(), user, token); err != nil {
		api.Logger.Error("Failed to register FCM token", "user", user.String(), "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}
	api.Logger.Debug("FCM token registered", "user", user.String())
	w.WriteHeader(http.StatusNoContent)
}

// UnregisterFCM handles POST /api/v1/unregister/fcm. Store failures are logged only, so
// clients can retry the call freely.
func (api *TokenAPI) UnregisterFCM(w http.ResponseWriter, r *http.Request) {
	user, token, ok := api.decode(w, r)
	if !ok {
		return
	}

	if err := api.Store.UnregisterFCM(r.Context(), user, token); err != nil {
		api.Logger.Warn("Failed to unregister FCM token", "user", user.String(), "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *TokenAPI) decode(w http.ResponseWriter, r *http.Request) (user urn.URN, token string, ok bool) {
	userID, found := middleware.GetUserIDFromContext(r.Context())
	if !found {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return user, "", false
	}
	user, err := urn.Parse(userID)
	if err != nil {
		api.Logger.Warn("Authenticated user is not a valid URN", "user_id", userID, "err", err)
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return user, "", false
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return user, "", false
	}
	if err := validate.Struct(req); err != nil {
		api.Logger.Debug("Rejected token request", "user", user.String(), "err", err)
		response.WriteJSONError(w, http.StatusBadRequest, "invalid token")
		return user, "", false
	}
	return user, req.Token, true
}
