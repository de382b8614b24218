package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smart-factory-backend/internal/model"
)

// ListWorkOrders handles GET /work_orders.
func (h *Handler) ListWorkOrders(c *gin.Context) {
	orders, err := h.store.ListWorkOrders(c.Request.Context())
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

type workOrderCreateRequest struct {
	Number    string  `json:"number" binding:"required"`
	Client    *string `json:"client"`
	PartRef   *string `json:"part_ref"`
	TargetQty int     `json:"target_qty"`
	DueOn     *string `json:"due_on"` // YYYY-MM-DD
}

// CreateWorkOrder handles POST /work_orders. Work orders are immutable after
// creation; there is no update endpoint.
func (h *Handler) CreateWorkOrder(c *gin.Context) {
	var req workOrderCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	wo := model.WorkOrder{
		Number:    req.Number,
		Client:    req.Client,
		PartRef:   req.PartRef,
		TargetQty: req.TargetQty,
	}
	if req.DueOn != nil {
		due, err := time.Parse("2006-01-02", *req.DueOn)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_on date, use YYYY-MM-DD"})
			return
		}
		wo.DueOn = &due
	}

	if err := h.store.CreateWorkOrder(c.Request.Context(), &wo); err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wo)
}
