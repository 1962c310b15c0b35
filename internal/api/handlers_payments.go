package api

import (
	"context"
	"net/http"
	"time"

	"agentmarket/server/internal/auth"
	"agentmarket/server/internal/events"
	"agentmarket/server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// InitiatePaymentRequest starts a simulated payment for a task
type InitiatePaymentRequest struct {
	TaskID string `json:"task_id" binding:"required"`
}

// InitiatePayment generates a payment identifier for a task and logs
// the pending payment. The id is what the client renders as a QR code.
func (h *Handler) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.tasks.GetByID(c.Request.Context(), auth.FromGin(c), req.TaskID)
	if err != nil {
		respondError(c, err)
		return
	}

	paymentID := h.payments.GeneratePaymentID()
	if err := h.payments.RecordPayment(c.Request.Context(), paymentID, task.ID, task.Price, models.PaymentStatusPending); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id": paymentID,
		"task_id":    task.ID,
		"amount":     task.Price,
	})
}

// VerifyPaymentRequest checks a payment's outcome
type VerifyPaymentRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	TaskID    string `json:"task_id" binding:"required"`
}

// VerifyPayment resolves the simulated payment, updates the task's
// payment status and kicks off processing on completion.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.tasks.GetByID(c.Request.Context(), auth.FromGin(c), req.TaskID)
	if err != nil {
		respondError(c, err)
		return
	}

	status, err := h.payments.VerifyPayment(c.Request.Context(), req.PaymentID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.payments.RecordPayment(c.Request.Context(), req.PaymentID, task.ID, task.Price, status); err != nil {
		respondError(c, err)
		return
	}
	if err := h.payments.UpdateTaskPaymentStatus(c.Request.Context(), task.ID, status); err != nil {
		respondError(c, err)
		return
	}

	h.hub.Publish(events.Event{TaskID: task.ID, Type: events.TypePayment, Task: gin.H{
		"payment_id":     req.PaymentID,
		"payment_status": status,
	}})

	// Payment confirmation is the processing trigger. Fire and forget;
	// the client follows progress over the task socket.
	if status == models.PaymentStatusCompleted {
		taskID := task.ID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			result := h.processor.Process(ctx, taskID)
			if !result.Success {
				logrus.WithFields(logrus.Fields{
					"task_id": taskID,
					"message": result.Message,
				}).Warn("post-payment processing did not complete")
			}
		}()
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id": req.PaymentID,
		"status":     status,
	})
}
