package api

import (
	"errors"
	"net/http"

	"agentmarket/server/internal/errs"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error kind to an HTTP status and writes
// the error envelope.
func respondError(c *gin.Context, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": string(errs.KindDependency)})
		return
	}

	status := http.StatusInternalServerError
	switch e.Kind {
	case errs.KindValidation:
		status = http.StatusBadRequest
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindRevisionLimit:
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{"error": e.Message, "code": string(e.Kind)})
}
