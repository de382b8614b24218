package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MachineKPIs handles GET /machines/:id/kpis?minutes=N.
func (h *Handler) MachineKPIs(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	minutes := intQuery(c, "minutes", 60)

	kpi, err := h.store.MachineKPIs(c.Request.Context(), &id, minutes)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, kpi)
}

// GlobalKPIs handles GET /kpis/global?minutes=N: the same KPI unscoped.
func (h *Handler) GlobalKPIs(c *gin.Context) {
	minutes := intQuery(c, "minutes", 60)

	kpi, err := h.store.MachineKPIs(c.Request.Context(), nil, minutes)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, kpi)
}
