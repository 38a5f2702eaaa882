package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/metagameshop/shop-backend/internal/services"
	"golang.org/x/exp/slog"
)

// respondError maps a service error onto the HTTP status and the public
// message. Unknown errors are logged and reported without detail.
func respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var balanceErr *services.InsufficientBalanceError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": validationErr.Message,
			"field":   validationErr.Field,
		})
	case errors.As(err, &balanceErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"message":   balanceErr.Error(),
			"available": balanceErr.Available,
			"required":  balanceErr.Required,
			"shortfall": balanceErr.Shortfall(),
		})
	case errors.Is(err, services.ErrInsufficientBalance):
		failure(c, http.StatusBadRequest, "Insufficient balance")
	case errors.Is(err, services.ErrDuplicateTransaction):
		failure(c, http.StatusConflict, "This transaction ID has already been used")
	case errors.Is(err, services.ErrRecordNotFound):
		failure(c, http.StatusNotFound, "Balance record not found")
	case errors.Is(err, services.ErrNotFound):
		failure(c, http.StatusNotFound, "Payment request not found")
	case errors.Is(err, services.ErrAlreadyProcessed):
		failure(c, http.StatusConflict, "Payment request has already been processed")
	case errors.Is(err, services.ErrUnauthorized):
		failure(c, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, services.ErrForbidden):
		failure(c, http.StatusForbidden, "Admin access required")
	default:
		_ = c.Error(err)
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
		failure(c, http.StatusInternalServerError, "Internal server error")
	}
}

func failure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}
