package mongodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PaymentCollection holds payment requests.
const PaymentCollection = "payment_requests"

// caseInsensitive matches the collation of the unique transactionId index.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// Compile-time check to ensure PaymentRepository implements the interface
var _ repositories.PaymentRepository = (*PaymentRepository)(nil)

// PaymentRepository implements repositories.PaymentRepository
type PaymentRepository struct {
	collection *mongo.Collection
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{
		collection: db.Collection(PaymentCollection),
	}
}

// Create inserts a new payment request
func (r *PaymentRepository) Create(ctx context.Context, payment *models.PaymentRequest) error {
	payment.ID = primitive.NewObjectID()
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	_, err := r.collection.InsertOne(ctx, payment)
	return mapError(err)
}

// FindByID finds a payment request by ID
func (r *PaymentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.PaymentRequest, error) {
	var payment models.PaymentRequest
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&payment); err != nil {
		return nil, mapError(err)
	}
	return &payment, nil
}

// FindByTransactionID finds a payment request by bKash transaction id, ignoring case
func (r *PaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.PaymentRequest, error) {
	var payment models.PaymentRequest
	filter := bson.M{"transactionId": strings.ToUpper(strings.TrimSpace(transactionID))}
	opts := options.FindOne().SetCollation(caseInsensitive)
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&payment); err != nil {
		return nil, mapError(err)
	}
	return &payment, nil
}

// FindByUserID lists a user's payment requests, newest first
func (r *PaymentRepository) FindByUserID(ctx context.Context, userID string) ([]*models.PaymentRequest, error) {
	return r.find(ctx, bson.M{"userId": userID}, -1)
}

// FindByStatus lists payment requests in a status. Pending requests come
// oldest first so admins work the queue in order.
func (r *PaymentRepository) FindByStatus(ctx context.Context, status models.PaymentStatus) ([]*models.PaymentRequest, error) {
	order := -1
	if status == models.PaymentStatusPending {
		order = 1
	}
	return r.find(ctx, bson.M{"status": status}, order)
}

// Settle transitions a pending request to approved or rejected. The status
// guard in the filter makes a second settle attempt fail instead of re-applying.
func (r *PaymentRepository) Settle(ctx context.Context, id primitive.ObjectID, decision models.PaymentDecision) (*models.PaymentRequest, error) {
	set := bson.M{
		"status":    decision.Status,
		"updatedAt": decision.At,
	}
	switch decision.Status {
	case models.PaymentStatusApproved:
		set["approvedBy"] = decision.ActorID
		set["approvedByName"] = decision.Actor
		set["approvedAt"] = decision.At
	case models.PaymentStatusRejected:
		set["rejectedBy"] = decision.ActorID
		set["rejectedByName"] = decision.Actor
		set["rejectedAt"] = decision.At
		set["rejectionReason"] = decision.Reason
	default:
		return nil, errors.New("settle: status must be approved or rejected")
	}

	filter := bson.M{"_id": id, "status": models.PaymentStatusPending}
	var payment models.PaymentRequest
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, returnAfter).Decode(&payment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, repositories.ErrStatusConflict
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &payment, nil
}

// CountByStatus returns how many requests are in status and their total amount.
func (r *PaymentRepository) CountByStatus(ctx context.Context, status models.PaymentStatus) (int64, decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": status}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, decimal.Zero, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Count int64           `bson:"count"`
		Total decimal.Decimal `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, decimal.Zero, err
	}
	if len(rows) == 0 {
		return 0, decimal.Zero, nil
	}
	return rows[0].Count, rows[0].Total, nil
}

func (r *PaymentRepository) find(ctx context.Context, filter bson.M, order int) ([]*models.PaymentRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: order}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var payments []*models.PaymentRequest
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	// Return empty slice instead of nil if no documents found
	if payments == nil {
		payments = []*models.PaymentRequest{}
	}
	return payments, nil
}
