package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-factory-backend/internal/model"
	"smart-factory-backend/internal/mw"
	"smart-factory-backend/internal/store"
)

// ListMachines handles GET /machines.
func (h *Handler) ListMachines(c *gin.Context) {
	machines, err := h.store.ListMachines(c.Request.Context())
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, machines)
}

// GetMachine handles GET /machines/:id.
func (h *Handler) GetMachine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.store.GetMachine(c.Request.Context(), id)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type machineCreateRequest struct {
	Name              string `json:"name" binding:"required"`
	Code              string `json:"code" binding:"required"`
	Status            string `json:"status"`
	TargetRatePerHour int    `json:"target_rate_per_hour"`
}

// CreateMachine handles POST /machines. The creator is recorded so operator
// ownership checks can apply on later mutations.
func (h *Handler) CreateMachine(c *gin.Context) {
	user, _ := mw.CurrentUser(c)

	var req machineCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	m := model.Machine{
		Name:              req.Name,
		Code:              req.Code,
		Status:            req.Status,
		TargetRatePerHour: req.TargetRatePerHour,
		CreatedBy:         &user.ID,
	}
	if err := h.store.CreateMachine(c.Request.Context(), &m); err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// canMutateMachine applies the ownership refinement on top of the role gate:
// chef and admin may mutate any machine, an operator only machines they
// created themselves.
func canMutateMachine(user model.User, m model.Machine) bool {
	if user.Role == model.RoleChef || user.Role == model.RoleAdmin {
		return true
	}
	return m.CreatedBy != nil && *m.CreatedBy == user.ID
}

// UpdateMachine handles PATCH /machines/:id (partial update).
func (h *Handler) UpdateMachine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, _ := mw.CurrentUser(c)

	m, err := h.store.GetMachine(c.Request.Context(), id)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	if !canMutateMachine(user, m) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the machine owner"})
		return
	}

	var patch store.MachinePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	updated, err := h.store.UpdateMachine(c.Request.Context(), id, patch)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteMachine handles DELETE /machines/:id.
func (h *Handler) DeleteMachine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, _ := mw.CurrentUser(c)

	m, err := h.store.GetMachine(c.Request.Context(), id)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	if !canMutateMachine(user, m) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the machine owner"})
		return
	}

	if err := h.store.DeleteMachine(c.Request.Context(), id); err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
