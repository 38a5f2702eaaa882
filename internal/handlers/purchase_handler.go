package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/services"
	"github.com/shopspring/decimal"
)

// PurchaseHandler handles balance-funded purchases
type PurchaseHandler struct {
	purchaseService services.PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler
func NewPurchaseHandler(purchaseService services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
	}
}

// CreatePurchaseRequest is the body of POST /purchases. Price is accepted as
// an alias of unitPrice; quantity defaults to 1.
type CreatePurchaseRequest struct {
	UserID        string           `json:"userId"`
	UserEmail     string           `json:"userEmail"`
	UserName      string           `json:"userName"`
	ProductID     string           `json:"productId"`
	ProductName   string           `json:"productName"`
	Category      string           `json:"category"`
	Quantity      *int             `json:"quantity"`
	UnitPrice     decimal.Decimal  `json:"unitPrice"`
	Price         decimal.Decimal  `json:"price"`
	TotalAmount   *decimal.Decimal `json:"totalAmount"`
	PlayerID      string           `json:"playerId"`
	GameUsername  string           `json:"gameUsername"`
	ContactNumber string           `json:"contactNumber"`
}

func (r CreatePurchaseRequest) toInput() services.PurchaseInput {
	quantity := 1
	if r.Quantity != nil {
		quantity = *r.Quantity
	}
	unitPrice := r.UnitPrice
	if unitPrice.IsZero() {
		unitPrice = r.Price
	}
	return services.PurchaseInput{
		UserID:      r.UserID,
		UserEmail:   r.UserEmail,
		UserName:    r.UserName,
		ProductID:   r.ProductID,
		ProductName: r.ProductName,
		Category:    r.Category,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalAmount: r.TotalAmount,
		Fulfillment: models.FulfillmentInfo{
			PlayerID:      r.PlayerID,
			GameUsername:  r.GameUsername,
			ContactNumber: r.ContactNumber,
		},
	}
}

// CreatePurchase handles POST /purchases
func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.purchaseService.Purchase(c.Request.Context(), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":         true,
		"message":         "Purchase completed",
		"orderId":         result.Purchase.OrderID,
		"purchase":        result.Purchase,
		"previousBalance": result.PreviousBalance,
		"newBalance":      result.NewBalance,
	})
}
