package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"smart-factory-backend/internal/model"
	"smart-factory-backend/internal/store"
)

// CreateEvent handles POST /events: validate, normalize and append one ledger
// entry. A recorded stop event additionally queues a push alert for the
// machine's subscribers.
func (h *Handler) CreateEvent(c *gin.Context) {
	var in store.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ev, err := h.store.CreateEvent(c.Request.Context(), in)
	if err != nil {
		abortStoreError(c, err)
		return
	}

	if ev.EventType == model.EventStop && h.notifier != nil {
		h.notifier.Dispatch(ev.MachineID)
	}

	c.JSON(http.StatusCreated, ev)
}

// GetEvent handles GET /events/:id.
func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ev, err := h.store.GetEvent(c.Request.Context(), id)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// ListEvents handles GET /events with optional machine_id, event_type, since,
// until, limit and offset filters.
func (h *Handler) ListEvents(c *gin.Context) {
	f := store.EventFilter{
		EventType: c.Query("event_type"),
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
	}

	if v := c.Query("machine_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine_id"})
			return
		}
		f.MachineID = &id
	}
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'since' timestamp, use RFC3339"})
			return
		}
		f.Since = &t
	}
	if v := c.Query("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'until' timestamp, use RFC3339"})
			return
		}
		f.Until = &t
	}

	events, err := h.store.ListEvents(c.Request.Context(), f)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
