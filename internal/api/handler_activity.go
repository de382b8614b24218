package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RecentActivities handles GET /activities/recent?limit=&minutes= across all
// machines.
func (h *Handler) RecentActivities(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	minutes := intQuery(c, "minutes", 120)

	items, err := h.store.RecentActivity(c.Request.Context(), nil, limit, minutes)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// MachineActivity handles GET /machines/:id/activity?limit=&minutes=.
func (h *Handler) MachineActivity(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 50)
	minutes := intQuery(c, "minutes", 120)

	items, err := h.store.RecentActivity(c.Request.Context(), &id, limit, minutes)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// DashboardSummary handles GET /dashboard/summary?limit_recent=&minutes=.
func (h *Handler) DashboardSummary(c *gin.Context) {
	limitRecent := intQuery(c, "limit_recent", 5)
	minutes := intQuery(c, "minutes", 60)

	summary, err := h.store.Dashboard(c.Request.Context(), limitRecent, minutes)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
