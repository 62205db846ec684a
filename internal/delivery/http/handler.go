package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/buyercheck/backend/config"
	"github.com/buyercheck/backend/internal/domain"
	"github.com/buyercheck/backend/internal/usecase"
)

// HighlightSource returns the latest highlight command of a session
type HighlightSource interface {
	Latest(ctx context.Context, sessionID string) (*domain.HighlightCommand, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	entities   *usecase.EntityService
	sessions   *usecase.SessionService
	highlights HighlightSource
	observer   config.ObserverConfig
	logger     *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	entities *usecase.EntityService,
	sessions *usecase.SessionService,
	highlights HighlightSource,
	observer config.ObserverConfig,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		entities:   entities,
		sessions:   sessions,
		highlights: highlights,
		observer:   observer,
		logger:     logger.Named("http"),
	}
}

type fieldDescriptor struct {
	Key   domain.FieldKey `json:"key"`
	Label string          `json:"label"`
}

type observationRequest struct {
	Fields domain.Fields `json:"fields"`
}

type selectionRequest struct {
	Hash string `json:"hash"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "buyercheck-backend",
		"version": "1.0.0",
	})
}

// Fields describes the buyer fields in the order the side panel renders them
// and the pages the extension should observe
func (h *Handler) Fields(c *gin.Context) {
	fields := make([]fieldDescriptor, 0, len(domain.RecognizedKeys))
	for _, key := range domain.RecognizedKeys {
		fields = append(fields, fieldDescriptor{Key: key, Label: key.Label()})
	}

	c.JSON(http.StatusOK, gin.H{
		"fields":           fields,
		"targetUrls":       nonNil(h.observer.TargetURLs),
		"supportedOrigins": nonNil(h.observer.SupportedOrigins),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ListEntities returns the directory in store order, optionally filtered by
// the q query parameter
func (h *Handler) ListEntities(c *gin.Context) {
	records, err := h.entities.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entities": records,
		"count":    len(records),
	})
}

// GetEntity returns one record by identity hash
func (h *Handler) GetEntity(c *gin.Context) {
	rec, err := h.entities.Get(c.Request.Context(), c.Param("hash"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CreateEntity stores a new entity
func (h *Handler) CreateEntity(c *gin.Context) {
	var input domain.EntityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, errors.Join(domain.ErrInvalidRequest, err))
		return
	}

	rec, err := h.entities.Create(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// UpdateEntity replaces an entity's name and fields
func (h *Handler) UpdateEntity(c *gin.Context) {
	var input domain.EntityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, errors.Join(domain.ErrInvalidRequest, err))
		return
	}

	rec, err := h.entities.Update(c.Request.Context(), c.Param("hash"), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteEntity removes an entity
func (h *Handler) DeleteEntity(c *gin.Context) {
	if err := h.entities.Delete(c.Request.Context(), c.Param("hash")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StartSession opens a page session
func (h *Handler) StartSession(c *gin.Context) {
	session, err := h.sessions.Start(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view(session))
}

// GetSession returns the selection state of a session
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(session))
}

// EndSession closes a page session
func (h *Handler) EndSession(c *gin.Context) {
	if err := h.sessions.End(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Observe records the buyer information read from the page
func (h *Handler) Observe(c *gin.Context) {
	var req observationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.Join(domain.ErrInvalidRequest, err))
		return
	}

	session, err := h.sessions.Observe(c.Request.Context(), c.Param("id"), req.Fields)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(session))
}

// Select picks one candidate of an ambiguous match by identity hash
func (h *Handler) Select(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Hash == "" {
		h.respondError(c, errors.Join(domain.ErrInvalidRequest, err))
		return
	}

	session, err := h.sessions.Select(c.Request.Context(), c.Param("id"), req.Hash)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(session))
}

// Deselect returns a user selection to the ambiguous state
func (h *Handler) Deselect(c *gin.Context) {
	session, err := h.sessions.Deselect(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(session))
}

// Highlights returns the latest highlight command of a session
func (h *Handler) Highlights(c *gin.Context) {
	cmd, err := h.highlights.Latest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmd)
}

func view(session *domain.Session) domain.SessionView {
	return domain.SessionView{
		Session: *session,
		Alert:   usecase.AlertFor(session.State),
	}
}

// respondError maps domain errors onto status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEntityNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrCandidateNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateName),
		errors.Is(err, domain.ErrDuplicateContent),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
