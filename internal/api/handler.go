package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"restock-service/internal/models"
	"restock-service/internal/service"
	"restock-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	ownerKey          = "owner_id"
	idempotencyHeader = "Idempotency-Key"
)

// IdempotencyStore remembers responses of retried requests
type IdempotencyStore interface {
	GetIdempotencyKey(ctx context.Context, key string) ([]byte, error)
	SetIdempotencyKey(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Pinger is a dependency checked by the readiness endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures optional handler behaviour
type Options struct {
	OwnerHeader    string
	Idempotency    IdempotencyStore
	IdempotencyTTL time.Duration
	// InlineDrafts renders email drafts in the request instead of waiting
	// for the worker. Set when no event bus is configured.
	InlineDrafts bool
	Checks       map[string]Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	registry *service.Registry
	drafts   *service.EmailDraftService
	opts     Options
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(registry *service.Registry, drafts *service.EmailDraftService, opts Options) *Handler {
	if opts.OwnerHeader == "" {
		opts.OwnerHeader = "X-Owner-ID"
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &Handler{
		registry: registry,
		drafts:   drafts,
		opts:     opts,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(h.requestLogger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", h.requireOwner())
	{
		v1.POST("/sessions", h.startSession)
		v1.GET("/sessions", h.listSessions)
		v1.GET("/sessions/current", h.currentSession)
		v1.DELETE("/sessions/current", h.discardSession)
		v1.POST("/sessions/current/items", h.addItem)
		v1.PATCH("/sessions/current/items/:itemId", h.editItem)
		v1.POST("/sessions/current/items/:itemId/increment", h.incrementQuantity)
		v1.POST("/sessions/current/items/:itemId/decrement", h.decrementQuantity)
		v1.DELETE("/sessions/current/items/:itemId", h.removeItem)
		v1.POST("/sessions/current/finish", h.finishSession)
		v1.POST("/sessions/current/commit", h.commitFinalization)
		v1.POST("/sessions/:id/load", h.loadSession)
		v1.DELETE("/sessions/:id", h.deleteSession)
		v1.GET("/sessions/:id/emails", h.listEmailDrafts)
		v1.POST("/sessions/:id/emails", h.regenerateEmailDrafts)

		v1.GET("/catalog/products", h.filterProducts)
		v1.GET("/catalog/suppliers", h.filterSuppliers)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every configured dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.opts.Checks {
		if err := check.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) startSession(c *gin.Context) {
	owner := c.GetString(ownerKey)

	var session *models.RestockSession
	err := h.registry.WithManager(c.Request.Context(), owner, func(m *service.SessionManager) error {
		var err error
		session, err = m.StartSession(c.Request.Context(), owner)
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *Handler) listSessions(c *gin.Context) {
	owner := c.GetString(ownerKey)

	var sessions []models.RestockSession
	err := h.registry.WithManager(c.Request.Context(), owner, func(m *service.SessionManager) error {
		var err error
		sessions, err = m.UnfinishedSessions(c.Request.Context(), owner)
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *Handler) currentSession(c *gin.Context) {
	var session *models.RestockSession
	err := h.withManager(c, func(m *service.SessionManager) error {
		var err error
		session, err = m.Current()
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *Handler) loadSession(c *gin.Context) {
	owner := c.GetString(ownerKey)

	var session *models.RestockSession
	err := h.withManager(c, func(m *service.SessionManager) error {
		var err error
		session, err = m.LoadSession(c.Request.Context(), owner, c.Param("id"))
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *Handler) discardSession(c *gin.Context) {
	err := h.withManager(c, func(m *service.SessionManager) error {
		return m.DiscardSession(c.Request.Context())
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteSession(c *gin.Context) {
	owner := c.GetString(ownerKey)

	err := h.withManager(c, func(m *service.SessionManager) error {
		return m.DeleteSession(c.Request.Context(), owner, c.Param("id"))
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) listEmailDrafts(c *gin.Context) {
	owner := c.GetString(ownerKey)
	sessionID := c.Param("id")

	err := h.withManager(c, func(m *service.SessionManager) error {
		_, err := m.GetSession(c.Request.Context(), owner, sessionID)
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	drafts, err := h.drafts.ListDrafts(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to list email drafts", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list email drafts",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

// regenerateEmailDrafts rebuilds the drafts of a finalized session, e.g. after
// inline generation failed at commit time
func (h *Handler) regenerateEmailDrafts(c *gin.Context) {
	owner := c.GetString(ownerKey)

	var session *models.RestockSession
	err := h.withManager(c, func(m *service.SessionManager) error {
		var err error
		session, err = m.GetSession(c.Request.Context(), owner, c.Param("id"))
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	drafts, err := h.drafts.RegenerateDrafts(c.Request.Context(), session)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"drafts": drafts})
}

func (h *Handler) addItem(c *gin.Context) {
	var req service.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	owner := c.GetString(ownerKey)
	key := c.GetHeader(idempotencyHeader)
	if key != "" && h.opts.Idempotency != nil {
		key = owner + ":" + key
		if cached := h.lookupIdempotent(c, key); cached != nil {
			c.Data(http.StatusCreated, "application/json; charset=utf-8", cached)
			return
		}
	}

	var item *models.SessionItem
	err := h.withManager(c, func(m *service.SessionManager) error {
		var err error
		item, err = m.AddItem(c.Request.Context(), req)
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	body, err := json.Marshal(item)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if key != "" && h.opts.Idempotency != nil {
		if err := h.opts.Idempotency.SetIdempotencyKey(c.Request.Context(), key, body, h.opts.IdempotencyTTL); err != nil {
			h.logger.Warn("Failed to store idempotency key", zap.Error(err))
		}
	}

	c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
}

func (h *Handler) lookupIdempotent(c *gin.Context, key string) []byte {
	cached, err := h.opts.Idempotency.GetIdempotencyKey(c.Request.Context(), key)
	if err != nil {
		h.logger.Warn("Failed to read idempotency key", zap.Error(err))
		return nil
	}
	if cached != nil {
		h.logger.Info("Idempotent replay of add item", zap.String("owner_id", c.GetString(ownerKey)))
	}
	return cached
}

func (h *Handler) editItem(c *gin.Context) {
	var req service.EditItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	var result *service.EditResult
	err := h.withManager(c, func(m *service.SessionManager) error {
		var err error
		result, err = m.EditItem(c.Request.Context(), c.Param("itemId"), req)
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) incrementQuantity(c *gin.Context) {
	h.adjustQuantity(c, (*service.SessionManager).IncrementQuantity)
}

func (h *Handler) decrementQuantity(c *gin.Context) {
	h.adjustQuantity(c, (*service.SessionManager).DecrementQuantity)
}

func (h *Handler) adjustQuantity(
	c *gin.Context,
	op func(*service.SessionManager, context.Context, string) (*models.SessionItem, error),
) {
	var item *models.SessionItem
	err := h.withManager(c, func(m *service.SessionManager) error {
		var err error
		item, err = op(m, c.Request.Context(), c.Param("itemId"))
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) removeItem(c *gin.Context) {
	var result *service.RemoveResult
	err := h.withManager(c, func(m *service.SessionManager) error {
		var err error
		result, err = m.RemoveItem(c.Request.Context(), c.Param("itemId"))
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) finishSession(c *gin.Context) {
	var summary *service.SessionSummary
	err := h.withManager(c, func(m *service.SessionManager) error {
		var err error
		summary, err = m.FinishSession(c.Request.Context())
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) commitFinalization(c *gin.Context) {
	var payload *models.FinalizedSessionPayload
	err := h.withManager(c, func(m *service.SessionManager) error {
		var err error
		payload, err = m.CommitFinalization(c.Request.Context())
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	if h.opts.InlineDrafts && h.drafts != nil {
		event := &models.SessionFinalizedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeSessionFinalized,
				Timestamp: payload.FinalizedAt,
			},
			Payload: *payload,
		}
		if err := h.drafts.HandleSessionFinalized(c.Request.Context(), event); err != nil {
			h.logger.Error("Failed to generate email drafts, retry with POST /sessions/:id/emails",
				zap.String("session_id", payload.SessionID),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, payload)
}

func (h *Handler) filterProducts(c *gin.Context) {
	var products []models.Product
	err := h.withManager(c, func(m *service.SessionManager) error {
		products = m.FilterProducts(c.Query("q"))
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) filterSuppliers(c *gin.Context) {
	var suppliers []models.Supplier
	err := h.withManager(c, func(m *service.SessionManager) error {
		suppliers = m.FilterSuppliers(c.Query("q"))
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suppliers": suppliers})
}

func (h *Handler) withManager(c *gin.Context, fn func(*service.SessionManager) error) error {
	return h.registry.WithManager(c.Request.Context(), c.GetString(ownerKey), fn)
}

// requireOwner reads the caller identity supplied by the auth proxy
func (h *Handler) requireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(h.opts.OwnerHeader))
		if owner == "" {
			h.writeError(c, service.ErrAuthenticationRequired)
			c.Abort()
			return
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

// writeError maps domain errors to HTTP responses
func (h *Handler) writeError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Validation failed",
			"field": ve.Field,
			"rule":  ve.Rule,
		})
	case errors.Is(err, service.ErrAuthenticationRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSessionFinalized),
		errors.Is(err, service.ErrEmptySession),
		errors.Is(err, service.ErrSessionNotFinalized):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoActiveSession), service.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case service.IsPersistenceError(err):
		h.logger.Error("Persistence failure", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Storage unavailable, please retry",
			"details": err.Error(),
		})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal error",
			"details": err.Error(),
		})
	}
}

// requestLogger logs one line per request through zap
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		h.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
