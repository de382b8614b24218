package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"smart-factory-backend/internal/notification"
	"smart-factory-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	webpush   *webpush.Options
	notifier  *notification.WorkerPool
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, opts Options) *Handler {
	return &Handler{
		store:     s,
		webpush:   opts.WebPush,
		notifier:  opts.Notifier,
		jwtSecret: opts.JWTSecret,
		tokenTTL:  opts.TokenTTL,
	}
}

// abortStoreError maps the store error taxonomy onto HTTP statuses.
func abortStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// pathID parses the :id path parameter.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// intQuery parses an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func intQuery(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
