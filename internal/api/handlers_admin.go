package api

import (
	"net/http"

	"agentmarket/server/internal/auth"
	"agentmarket/server/internal/models"

	"github.com/gin-gonic/gin"
)

// GetPlatformStats returns entity counts by status for the admin
// dashboard.
func (h *Handler) GetPlatformStats(c *gin.Context) {
	taskCounts := make(map[string]int64)
	for _, status := range []string{
		models.TaskStatusPending,
		models.TaskStatusProcessing,
		models.TaskStatusCompleted,
		models.TaskStatusFailed,
	} {
		var count int64
		h.db.Model(&models.Task{}).Where("status = ?", status).Count(&count)
		taskCounts[status] = count
	}

	agentCounts := make(map[string]int64)
	for _, status := range []string{
		models.AgentStatusPending,
		models.AgentStatusApproved,
		models.AgentStatusRejected,
	} {
		var count int64
		h.db.Model(&models.Agent{}).Where("status = ?", status).Count(&count)
		agentCounts[status] = count
	}

	var userCount, reviewCount int64
	h.db.Model(&models.Profile{}).Count(&userCount)
	h.db.Model(&models.TaskReview{}).Count(&reviewCount)

	c.JSON(http.StatusOK, gin.H{
		"tasks":   taskCounts,
		"agents":  agentCounts,
		"users":   userCount,
		"reviews": reviewCount,
	})
}

// ListPendingAgents returns listings awaiting moderation.
func (h *Handler) ListPendingAgents(c *gin.Context) {
	list, err := h.agents.ListPending(c.Request.Context(), auth.FromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": list})
}

// ApproveAgent moves a listing into the public catalog.
func (h *Handler) ApproveAgent(c *gin.Context) {
	agent, err := h.agents.Approve(c.Request.Context(), auth.FromGin(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// RejectAgent declines a listing.
func (h *Handler) RejectAgent(c *gin.Context) {
	agent, err := h.agents.Reject(c.Request.Context(), auth.FromGin(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// RoleUpdateRequest represents a role change
type RoleUpdateRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateProfileRole changes a user's role.
func (h *Handler) UpdateProfileRole(c *gin.Context) {
	var req RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.profiles.UpdateRole(c.Request.Context(), auth.FromGin(c), c.Param("id"), req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
