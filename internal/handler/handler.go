// Package handler is the HTTP layer: it binds requests, calls the services
// and maps their typed failures to status codes.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"kestrel/backend/internal/apperr"
	"kestrel/backend/internal/auth"
	"kestrel/backend/internal/catalog"
	"kestrel/backend/internal/comment"
	"kestrel/backend/internal/hub"
	"kestrel/backend/internal/membership"
	"kestrel/backend/internal/models"
)

// Handler serves the API.
type Handler struct {
	catalog    *catalog.Repository
	external   *catalog.External
	membership *membership.Service
	comments   *comment.Service
	gate       *auth.Gate
	hub        *hub.Hub
	verifier   auth.TokenVerifier
}

// Deps are the services a Handler needs.
type Deps struct {
	Catalog    *catalog.Repository
	External   *catalog.External
	Membership *membership.Service
	Comments   *comment.Service
	Gate       *auth.Gate
	Hub        *hub.Hub
	Verifier   auth.TokenVerifier
}

// New creates a Handler.
func New(d Deps) *Handler {
	return &Handler{
		catalog:    d.Catalog,
		external:   d.External,
		membership: d.Membership,
		comments:   d.Comments,
		gate:       d.Gate,
		hub:        d.Hub,
		verifier:   d.Verifier,
	}
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// ConflictResponse is returned when an entity already exists. The entity name key carries the existing id.
type ConflictResponse struct {
	Error string `json:"error" example:"game 7: already exists"`
	Game  uint   `json:"game,omitempty" example:"7"`
	Genre uint   `json:"genre,omitempty"`
}

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Message string `json:"message" example:"Game deleted"`
}

// respondError writes the status and body for err.
func respondError(c *gin.Context, err error) {
	if ce, ok := apperr.AsConflict(err); ok {
		c.JSON(http.StatusConflict, gin.H{"error": ce.Error(), ce.Entity: ce.ExistingID})
		return
	}

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("upstream unavailable")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Game metadata service unavailable"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}

	return uint(id), true
}

// currentUser resolves the authenticated caller to a local user, provisioning it on first sight.
// It writes the error response itself and returns false on failure.
func (h *Handler) currentUser(c *gin.Context) (*models.User, bool) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}

	user, err := h.gate.ResolveUser(c.Request.Context(), *claims)
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	return user, true
}

// optionalUser resolves the caller when a valid token was supplied.
func (h *Handler) optionalUser(c *gin.Context) *models.User {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return nil
	}

	user, err := h.gate.ResolveUser(c.Request.Context(), *claims)
	if err != nil {
		log.Warn().Err(err).Msg("optional user resolution failed")
		return nil
	}

	return user
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}

	return v
}
