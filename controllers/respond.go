package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pddapp/backend/apperrors"
)

// respondError maps error kinds to HTTP statuses. Anything without a kind is
// logged and reported as a bare internal error.
func respondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.Internal {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	var status int
	switch kind {
	case apperrors.Conflict:
		status = http.StatusConflict
	case apperrors.Unauthorized:
		status = http.StatusUnauthorized
	case apperrors.Forbidden:
		status = http.StatusForbidden
	case apperrors.NotFound:
		status = http.StatusNotFound
	case apperrors.InvalidState, apperrors.InsufficientData:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"error": err.Error(), "code": kind.String()})
}
