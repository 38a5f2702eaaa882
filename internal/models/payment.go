package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus is the state of a payment request.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusApproved, PaymentStatusRejected:
		return true
	}
	return false
}

// PaymentMethodBkash is the only funding channel the shop accepts.
const PaymentMethodBkash = "bkash"

// PaymentRequest is a user's claim that money was sent over bKash.
// TransactionID is the idempotency key and is stored uppercase.
type PaymentRequest struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	TransactionID   string             `bson:"transactionId" json:"transactionId"`
	Amount          decimal.Decimal    `bson:"amount" json:"amount"`
	SenderNumber    string             `bson:"senderNumber" json:"senderNumber"`
	UserBkashNumber string             `bson:"userBkashNumber,omitempty" json:"userBkashNumber,omitempty"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	UserID          string             `bson:"userId" json:"userId"`
	UserEmail       string             `bson:"userEmail,omitempty" json:"userEmail,omitempty"`
	UserName        string             `bson:"userName,omitempty" json:"userName,omitempty"`
	Status          PaymentStatus      `bson:"status" json:"status"`

	ApprovedBy     string     `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedByName string     `bson:"approvedByName,omitempty" json:"approvedByName,omitempty"`
	ApprovedAt     *time.Time `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`

	RejectedBy      string     `bson:"rejectedBy,omitempty" json:"rejectedBy,omitempty"`
	RejectedByName  string     `bson:"rejectedByName,omitempty" json:"rejectedByName,omitempty"`
	RejectedAt      *time.Time `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	RejectionReason string     `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PaymentDecision carries the metadata written when an admin settles a request.
type PaymentDecision struct {
	Status  PaymentStatus
	ActorID string
	Actor   string
	Reason  string
	At      time.Time
}

// Actor is the authenticated caller of an admin operation.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// RoleAdmin is the role required for ledger-mutating admin actions.
const RoleAdmin = "admin"
