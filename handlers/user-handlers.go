package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/NotJalaAl00/Flint/internal/users"
	"github.com/NotJalaAl00/Flint/pkg/ctxmanage"
	"github.com/NotJalaAl00/Flint/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// UpdateProfile overwrites the caller's profile fields. Empty fields in the
// payload leave the stored value untouched.
func (h *Handler) UpdateProfile(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var req struct {
		UserData users.NewUser `json:"userData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	user, err := h.u.UpdateProfile(c.Request.Context(), claims.Subject, req.UserData)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User does not exist"})
			return
		}
		slog.Error("failed to update profile", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DeleteUser removes the caller's account.
func (h *Handler) DeleteUser(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	if err := h.u.DeleteUser(c.Request.Context(), claims.Subject); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User does not exist"})
			return
		}
		slog.Error("failed to delete user", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
