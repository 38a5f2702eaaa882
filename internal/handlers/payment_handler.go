package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/services"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment request endpoints
type PaymentHandler struct {
	paymentService services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// CreatePaymentRequest is the body of POST /payments/create
type CreatePaymentRequest struct {
	UserID          string          `json:"userId"`
	UserEmail       string          `json:"userEmail"`
	UserName        string          `json:"userName"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionID   string          `json:"transactionId"`
	SenderNumber    string          `json:"senderNumber"`
	UserBkashNumber string          `json:"userBkashNumber"`
}

// CreatePayment handles POST /payments/create
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.paymentService.Submit(c.Request.Context(), services.SubmitPaymentInput{
		UserID:          req.UserID,
		UserEmail:       req.UserEmail,
		UserName:        req.UserName,
		Amount:          req.Amount,
		TransactionID:   req.TransactionID,
		SenderNumber:    req.SenderNumber,
		UserBkashNumber: req.UserBkashNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Payment request submitted and awaiting verification",
		"payment": result.Payment,
		"balance": result.Balance,
	})
}

// GetBalance handles GET /payments/balance/:userId
func (h *PaymentHandler) GetBalance(c *gin.Context) {
	profile := models.UserProfile{
		Email:       c.Query("email"),
		DisplayName: c.Query("name"),
	}
	balance, err := h.paymentService.GetBalance(c.Request.Context(), c.Param("userId"), profile)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": balance,
	})
}

// GetUserPayments handles GET /payments/user/:userId
func (h *PaymentHandler) GetUserPayments(c *gin.Context) {
	payments, err := h.paymentService.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"payments": payments,
	})
}

// GetPendingPayments handles GET /payments/admin/pending
func (h *PaymentHandler) GetPendingPayments(c *gin.Context) {
	payments, err := h.paymentService.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"payments": payments,
		"count":    len(payments),
	})
}
