package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"agentmarket/server/internal/auth"
	"agentmarket/server/internal/events"
	"agentmarket/server/internal/models"
	"agentmarket/server/internal/tasks"

	"github.com/gin-gonic/gin"
)

// CreateTask submits a new task.
func (h *Handler) CreateTask(c *gin.Context) {
	var req tasks.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, warning, err := h.tasks.Create(c.Request.Context(), auth.FromGin(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"task": task}
	if warning != "" {
		resp["warning"] = warning
	}
	c.JSON(http.StatusCreated, resp)
}

// ListTasks returns the caller's tasks, newest first.
func (h *Handler) ListTasks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	filter := tasks.Filter{
		Status:  c.Query("status"),
		AgentID: c.Query("agent_id"),
		Limit:   limit,
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = &t
		}
	}

	list, err := h.tasks.List(c.Request.Context(), auth.FromGin(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": list, "limit": filter.Limit})
}

// GetTask returns a single task, owner-scoped.
func (h *Handler) GetTask(c *gin.Context) {
	task, err := h.tasks.GetByID(c.Request.Context(), auth.FromGin(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// ListTaskRevisions returns archived revision snapshots, newest first.
func (h *Handler) ListTaskRevisions(c *gin.Context) {
	revisions, err := h.tasks.ListRevisions(c.Request.Context(), auth.FromGin(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, revisions)
}

// RevisionRequest represents a revision request payload
type RevisionRequest struct {
	Feedback string `json:"feedback"`
}

// RequestRevision asks for a bounded re-run of a task.
func (h *Handler) RequestRevision(c *gin.Context) {
	var req RevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.tasks.RequestRevision(c.Request.Context(), auth.FromGin(c), c.Param("id"), req.Feedback)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CancelTask marks a task failed with a fixed cancellation result.
func (h *Handler) CancelTask(c *gin.Context) {
	task, err := h.tasks.Cancel(c.Request.Context(), auth.FromGin(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// ProcessTask triggers the processing pipeline for a task and reports
// the outcome. The response envelope is always 200 with success/message.
func (h *Handler) ProcessTask(c *gin.Context) {
	// Ownership check before handing the id to the processor
	task, err := h.tasks.GetByID(c.Request.Context(), auth.FromGin(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	result := h.processor.Process(c.Request.Context(), task.ID)
	c.JSON(http.StatusOK, result)
}

// FieldUpdateRequest represents a single-field metadata update
type FieldUpdateRequest struct {
	Value string `json:"value" binding:"required"`
}

// UpdateOutputFormat changes a task's requested output format.
func (h *Handler) UpdateOutputFormat(c *gin.Context) {
	var req FieldUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tasks.UpdateOutputFormat(c.Request.Context(), auth.FromGin(c), c.Param("id"), req.Value); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UpdateNotificationChannel changes a task's notification channel.
func (h *Handler) UpdateNotificationChannel(c *gin.Context) {
	var req FieldUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tasks.UpdateNotificationChannel(c.Request.Context(), auth.FromGin(c), c.Param("id"), req.Value); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TaskSocket streams task update events over a websocket. The JWT is
// carried in the token query parameter.
func (h *Handler) TaskSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}

	claims, err := h.jwt.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	caller := auth.Context{UserID: claims.UserID, Role: claims.Role}
	task, err := h.tasks.GetByID(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	events.ServeTaskSocket(c.Writer, c.Request, h.hub, task.ID)
}

// UploadAttachment stores an uploaded file and returns its record.
func (h *Handler) UploadAttachment(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()

	attachmentID, hash, size, err := h.storage.SaveAttachment(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	attachment := &models.Attachment{
		ID:          attachmentID,
		Name:        file.Filename,
		Size:        size,
		ContentType: file.Header.Get("Content-Type"),
		Hash:        hash,
		UploadedBy:  c.GetString("user_id"),
		CreatedAt:   time.Now(),
	}
	if err := h.db.Create(attachment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, attachment)
}

// DownloadAttachment streams a stored attachment back to the caller.
func (h *Handler) DownloadAttachment(c *gin.Context) {
	attachmentID := c.Param("id")

	var attachment models.Attachment
	if err := h.db.First(&attachment, "id = ?", attachmentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
		return
	}

	reader, err := h.storage.GetAttachment(attachmentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", `attachment; filename="`+attachment.Name+`"`)
	c.Header("Content-Type", attachment.ContentType)
	c.Header("Content-Length", strconv.FormatInt(attachment.Size, 10))

	io.Copy(c.Writer, reader)
}
