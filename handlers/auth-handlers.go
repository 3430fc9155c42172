package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/NotJalaAl00/Flint/internal/otp"
	"github.com/NotJalaAl00/Flint/internal/users"
	"github.com/NotJalaAl00/Flint/pkg/ctxmanage"
	"github.com/NotJalaAl00/Flint/pkg/logkey"

	"github.com/gin-gonic/gin"
)

type signupRequest struct {
	UserData users.NewUser `json:"userData"`
	Otp      string        `json:"otp"`
}

// SignupOTP validates the profile payload, stages a fresh OTP for the email
// and mails it. Account creation happens only after SignupValidate.
func (h *Handler) SignupOTP(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}
	if err := h.validate.Struct(req.UserData); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	code, err := h.otp.Generate(c.Request.Context(), req.UserData.Email)
	if err != nil {
		slog.Error("failed to stage otp", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	err = h.mailer.Send(req.UserData.Email, "E-mail verification for Flint",
		fmt.Sprintf("Your otp for your Flint account creation is %s. Please do not share it with anyone.", code))
	if err != nil {
		slog.Error("failed to mail otp", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SignupValidate consumes the OTP and creates the account.
func (h *Handler) SignupValidate(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}
	if err := h.validate.Struct(req.UserData); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	if err := h.otp.Verify(c.Request.Context(), req.UserData.Email, req.Otp); err != nil {
		if errors.Is(err, otp.ErrInvalidOTP) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Otp expired or incorrect"})
			return
		}
		slog.Error("otp verification failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	user, err := h.u.InsertUser(c.Request.Context(), req.UserData)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
			return
		}
		slog.Error("failed to insert user", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	token, err := h.keys.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		slog.Error("failed to sign token", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// Signin exchanges email + password for a session token.
func (h *Handler) Signin(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req struct {
		UserData struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"userData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserData.Email == "" || req.UserData.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	user, err := h.u.Authenticate(c.Request.Context(), req.UserData.Email, req.UserData.Password)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User does not exist"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Either email or password are incorrect"})
		return
	}

	token, err := h.keys.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		slog.Error("failed to sign token", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// PasswordResetOTP stages and mails an OTP for an existing account.
func (h *Handler) PasswordResetOTP(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	if _, err := h.u.GetUserByEmail(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User does not exist"})
			return
		}
		slog.Error("failed to load user", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	code, err := h.otp.Generate(c.Request.Context(), req.Email)
	if err != nil {
		slog.Error("failed to stage otp", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	err = h.mailer.Send(req.Email, "Otp for updating Flint account password",
		fmt.Sprintf("Your otp for updating your Flint account password is %s. Please do not share it with anyone.", code))
	if err != nil {
		slog.Error("failed to mail otp", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PasswordResetVerify consumes the OTP and returns a short-lived token
// scoped to exactly one password update.
func (h *Handler) PasswordResetVerify(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req struct {
		Email string `json:"email"`
		Otp   string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	if err := h.otp.Verify(c.Request.Context(), req.Email, req.Otp); err != nil {
		if errors.Is(err, otp.ErrInvalidOTP) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Otp expired or does not exist"})
			return
		}
		slog.Error("otp verification failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	user, err := h.u.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User does not exist"})
			return
		}
		slog.Error("failed to load user", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	token, err := h.keys.GenerateResetToken(user.ID, user.Email)
	if err != nil {
		slog.Error("failed to sign reset token", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// UpdatePassword is reachable only through a reset-scoped token.
func (h *Handler) UpdatePassword(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.NewPassword) < 8 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	if err := h.u.UpdatePassword(c.Request.Context(), claims.Subject, req.NewPassword); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User does not exist"})
			return
		}
		slog.Error("failed to update password", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
