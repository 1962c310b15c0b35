package api

import (
	"net/http"

	"agentmarket/server/internal/auth"
	"agentmarket/server/internal/reviews"

	"github.com/gin-gonic/gin"
)

// SubmitReviewRequest represents a review submission
type SubmitReviewRequest struct {
	Rating     int     `json:"rating"`
	ReviewText *string `json:"review_text"`
}

// SubmitReview upserts the review for a completed task.
func (h *Handler) SubmitReview(c *gin.Context) {
	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := h.reviews.Submit(c.Request.Context(), auth.FromGin(c), reviews.SubmitInput{
		TaskID:     c.Param("id"),
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// GetTaskReview returns the caller's review for a task.
func (h *Handler) GetTaskReview(c *gin.Context) {
	review, err := h.reviews.GetByTaskID(c.Request.Context(), auth.FromGin(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}
