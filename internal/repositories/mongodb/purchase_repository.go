package mongodb

import (
	"context"
	"time"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PurchaseCollection holds orders.
const PurchaseCollection = "purchases"

// Compile-time check to ensure PurchaseRepository implements the interface
var _ repositories.PurchaseRepository = (*PurchaseRepository)(nil)

// PurchaseRepository handles MongoDB operations for Purchase
type PurchaseRepository struct {
	collection *mongo.Collection
}

// NewPurchaseRepository creates a new PurchaseRepository
func NewPurchaseRepository(db *mongo.Database) *PurchaseRepository {
	return &PurchaseRepository{
		collection: db.Collection(PurchaseCollection),
	}
}

// Create inserts a new purchase record
func (r *PurchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	purchase.ID = primitive.NewObjectID()
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now()
	}
	purchase.UpdatedAt = purchase.CreatedAt
	_, err := r.collection.InsertOne(ctx, purchase)
	return mapError(err)
}

// FindByOrderID finds a purchase by its order id
func (r *PurchaseRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&purchase); err != nil {
		return nil, mapError(err)
	}
	return &purchase, nil
}

// FindByUserID finds purchases for a user with pagination, newest first
func (r *PurchaseRepository) FindByUserID(ctx context.Context, userID string, page, limit int) ([]*models.Purchase, int64, error) {
	filter := bson.M{"userId": userID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var purchases []*models.Purchase
	if err := cursor.All(ctx, &purchases); err != nil {
		return nil, 0, err
	}
	if purchases == nil {
		purchases = []*models.Purchase{}
	}
	return purchases, total, nil
}

// StatsByUserID aggregates a user's orders per status
func (r *PurchaseRepository) StatsByUserID(ctx context.Context, userID string) (*models.OrderStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$totalAmount"}}},
			{Key: "last", Value: bson.D{{Key: "$max", Value: "$createdAt"}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.PurchaseStatus `bson:"_id"`
		Count  int64                 `bson:"count"`
		Total  decimal.Decimal       `bson:"total"`
		Last   time.Time             `bson:"last"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	stats := &models.OrderStats{TotalSpent: decimal.Zero}
	for _, row := range rows {
		stats.TotalOrders += row.Count
		switch row.Status {
		case models.PurchaseStatusCompleted:
			stats.CompletedOrders += row.Count
			stats.TotalSpent = stats.TotalSpent.Add(row.Total)
		case models.PurchaseStatusPending:
			stats.PendingOrders += row.Count
		case models.PurchaseStatusProcessing:
			stats.ProcessingOrders += row.Count
		case models.PurchaseStatusFailed:
			stats.FailedOrders += row.Count
		}
		if last := row.Last; !last.IsZero() && (stats.LastOrderAt == nil || last.After(*stats.LastOrderAt)) {
			stats.LastOrderAt = &last
		}
	}
	return stats, nil
}
