package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PurchaseStatus is the fulfillment state of an order
type PurchaseStatus string

const (
	PurchaseStatusPending    PurchaseStatus = "pending"
	PurchaseStatusProcessing PurchaseStatus = "processing"
	PurchaseStatusCompleted  PurchaseStatus = "completed"
	PurchaseStatusFailed     PurchaseStatus = "failed"
)

// PaymentMethodBalance marks orders paid from the wallet balance.
const PaymentMethodBalance = "balance"

// FulfillmentInfo is what the shop needs to deliver an in-game product.
type FulfillmentInfo struct {
	PlayerID      string `bson:"playerId" json:"playerId"`
	GameUsername  string `bson:"gameUsername,omitempty" json:"gameUsername,omitempty"`
	ContactNumber string `bson:"contactNumber,omitempty" json:"contactNumber,omitempty"`
}

// Purchase is an order paid from available balance. Immutable after creation.
type Purchase struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrderID         string             `bson:"orderId" json:"orderId"`
	UserID          string             `bson:"userId" json:"userId"`
	UserEmail       string             `bson:"userEmail,omitempty" json:"userEmail,omitempty"`
	ProductID       string             `bson:"productId,omitempty" json:"productId,omitempty"`
	ProductName     string             `bson:"productName" json:"productName"`
	Category        string             `bson:"category,omitempty" json:"category,omitempty"`
	Quantity        int                `bson:"quantity" json:"quantity"`
	UnitPrice       decimal.Decimal    `bson:"unitPrice" json:"unitPrice"`
	TotalAmount     decimal.Decimal    `bson:"totalAmount" json:"totalAmount"`
	FulfillmentInfo `bson:",inline"`
	Status          PurchaseStatus  `bson:"status" json:"status"`
	PaymentMethod   string          `bson:"paymentMethod" json:"paymentMethod"`
	PreviousBalance decimal.Decimal `bson:"previousBalance" json:"previousBalance"`
	NewBalance      decimal.Decimal `bson:"newBalance" json:"newBalance"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// OrderStats summarizes a user's order history.
type OrderStats struct {
	TotalOrders      int64           `json:"totalOrders"`
	CompletedOrders  int64           `json:"completedOrders"`
	PendingOrders    int64           `json:"pendingOrders"`
	ProcessingOrders int64           `json:"processingOrders"`
	FailedOrders     int64           `json:"failedOrders"`
	TotalSpent       decimal.Decimal `json:"totalSpent"`
	LastOrderAt      *time.Time      `json:"lastOrderAt,omitempty"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPagination fills the derived fields for a page.
func NewPagination(page, limit int, total int64) Pagination {
	var pages int64
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    int64(page) < pages,
		HasPrev:    page > 1,
	}
}
