package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	// The storefront reads balances as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// UserProfile is the denormalized identity snapshot copied onto ledger documents.
// It comes from the identity provider and may be stale.
type UserProfile struct {
	Email       string `bson:"email,omitempty" json:"email,omitempty"`
	DisplayName string `bson:"displayName,omitempty" json:"displayName,omitempty"`
}

// BalanceRecord is the per-user ledger aggregate. One document per userId.
type BalanceRecord struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID           string             `bson:"userId" json:"userId"`
	Email            string             `bson:"email,omitempty" json:"email,omitempty"`
	DisplayName      string             `bson:"displayName,omitempty" json:"displayName,omitempty"`
	AvailableBalance decimal.Decimal    `bson:"availableBalance" json:"availableBalance"`
	PendingBalance   decimal.Decimal    `bson:"pendingBalance" json:"pendingBalance"`
	TotalAdded       decimal.Decimal    `bson:"totalAdded" json:"totalAdded"`
	TotalSpent       decimal.Decimal    `bson:"totalSpent" json:"totalSpent"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Clamp forces every monetary field to be >= 0.
func (b *BalanceRecord) Clamp() {
	b.AvailableBalance = NonNegative(b.AvailableBalance)
	b.PendingBalance = NonNegative(b.PendingBalance)
	b.TotalAdded = NonNegative(b.TotalAdded)
	b.TotalSpent = NonNegative(b.TotalSpent)
}

// NonNegative returns d, or zero when d is negative.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// LedgerSummary aggregates every balance record for the admin dashboard.
type LedgerSummary struct {
	Users          int64           `json:"users"`
	TotalAvailable decimal.Decimal `json:"totalAvailable"`
	TotalPending   decimal.Decimal `json:"totalPending"`
	TotalAdded     decimal.Decimal `json:"totalAdded"`
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	PendingCount   int64           `json:"pendingPayments"`
}
