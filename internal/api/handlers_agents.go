package api

import (
	"net/http"
	"strconv"

	"agentmarket/server/internal/agents"
	"agentmarket/server/internal/auth"

	"github.com/gin-gonic/gin"
)

// ListAgents returns the public catalog of approved agents.
func (h *Handler) ListAgents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	list, err := h.agents.ListApproved(c.Request.Context(), agents.CatalogFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Limit:    limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": list})
}

// GetAgent returns a single agent.
func (h *Handler) GetAgent(c *gin.Context) {
	agent, err := h.agents.GetByID(c.Request.Context(), auth.FromGin(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// CreateAgent registers a new listing for moderation.
func (h *Handler) CreateAgent(c *gin.Context) {
	var req agents.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agent, err := h.agents.Create(c.Request.Context(), auth.FromGin(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, agent)
}

// ListMyAgents returns the caller's own listings.
func (h *Handler) ListMyAgents(c *gin.Context) {
	list, err := h.agents.ListMine(c.Request.Context(), auth.FromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": list})
}

// ListAgentReviews returns an agent's reviews, newest first.
func (h *Handler) ListAgentReviews(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	list, err := h.reviews.ListByAgent(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}
