package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"

	actorKey = "actor"
)

// Handler adapts HTTP requests to core service calls
type Handler struct {
	store       db.Database
	rt          services.Runtime
	plans       []services.MaintenancePlan
	horizonDays int
	logger      *zap.Logger
}

// Options carries the configured maintenance plans used by POST /maintenance/plan
type Options struct {
	Plans       []services.MaintenancePlan
	HorizonDays int
}

// NewHandler constructs the HTTP handler adapter
func NewHandler(store db.Database, rt services.Runtime, opts Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rt.Logger == nil {
		rt.Logger = logger
	}
	return &Handler{
		store:       store,
		rt:          rt,
		plans:       opts.Plans,
		horizonDays: opts.HorizonDays,
		logger:      logger,
	}
}

// Identify reads the caller from the identity headers set by the upstream
// authentication layer and rejects requests without a known role
func (h *Handler) Identify(c *gin.Context) {
	actor := model.Actor{
		ID:   c.GetHeader(HeaderActorID),
		Role: model.Role(c.GetHeader(HeaderActorRole)),
	}
	if actor.ID == "" || !actor.Role.IsValid() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid actor headers"})
		return
	}
	c.Set(actorKey, actor)
	c.Next()
}

func actorFrom(c *gin.Context) model.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(model.Actor); ok {
			return actor
		}
	}
	return model.Actor{}
}

// StatusFor maps a domain error kind to its HTTP status
func StatusFor(kind model.Kind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindConflict:
		return http.StatusConflict
	case model.KindState:
		return http.StatusUnprocessableEntity
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	var domainErr *model.Error
	if errors.As(err, &domainErr) {
		body := gin.H{"error": domainErr.Message, "kind": domainErr.Kind, "op": domainErr.Op}
		if domainErr.Ref != "" {
			body["ref"] = domainErr.Ref
		}
		c.JSON(StatusFor(domainErr.Kind), body)
		return
	}

	h.logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.logger.Debug("invalid request", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}

// bind decodes a JSON body, answering 400 on failure
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.badRequest(c, err)
		return false
	}
	return true
}

// optionalDay parses a YYYY-MM-DD value; empty yields the zero time
func optionalDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return model.ParseDay(s)
}

func optionalDayPtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := model.ParseDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
