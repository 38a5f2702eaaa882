package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/repositories"
	mongopkg "github.com/metagameshop/shop-backend/pkg/mongodb"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BalanceCollection holds one document per user.
const BalanceCollection = "balances"

// Compile-time check to ensure BalanceRepository implements the interface
var _ repositories.BalanceRepository = (*BalanceRepository)(nil)

// BalanceRepository handles MongoDB operations for BalanceRecord.
// Mutations are single-document updates, so they are atomic without locks.
type BalanceRepository struct {
	collection *mongo.Collection
}

// NewBalanceRepository creates a new BalanceRepository
func NewBalanceRepository(db *mongo.Database) *BalanceRepository {
	return &BalanceRepository{
		collection: db.Collection(BalanceCollection),
	}
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

var zeroDecimal128, _ = primitive.ParseDecimal128("0")

// GetOrCreate upserts the record for userID.
func (r *BalanceRepository) GetOrCreate(ctx context.Context, userID string, profile models.UserProfile, signupCredit decimal.Decimal) (*models.BalanceRecord, error) {
	now := time.Now()
	credit, err := mongopkg.Decimal128(models.NonNegative(signupCredit))
	if err != nil {
		return nil, fmt.Errorf("signup credit: %w", err)
	}

	set := bson.M{"updatedAt": now}
	if profile.Email != "" {
		set["email"] = profile.Email
	}
	if profile.DisplayName != "" {
		set["displayName"] = profile.DisplayName
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"availableBalance": credit,
			"pendingBalance":   zeroDecimal128,
			"totalAdded":       credit,
			"totalSpent":       zeroDecimal128,
			"createdAt":        now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var record models.BalanceRecord
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&record)
	if mongo.IsDuplicateKeyError(err) && mongo.SessionFromContext(ctx) == nil {
		// Two upserts raced on the unique userId index; the loser retries and
		// now matches the winner's document. Inside a session the server has
		// already aborted the transaction, so the error goes back to the caller.
		err = r.collection.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&record)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &record, nil
}

// FindByUserID finds a balance record by user id
func (r *BalanceRepository) FindByUserID(ctx context.Context, userID string) (*models.BalanceRecord, error) {
	var record models.BalanceRecord
	if err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&record); err != nil {
		return nil, mapError(err)
	}
	return &record, nil
}

// AdjustPending adds delta to pendingBalance, never going below zero.
func (r *BalanceRepository) AdjustPending(ctx context.Context, userID string, delta decimal.Decimal) (*models.BalanceRecord, error) {
	pending, err := clampedAdd("$pendingBalance", delta)
	if err != nil {
		return nil, err
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "pendingBalance", Value: pending},
			{Key: "updatedAt", Value: time.Now()},
		}}},
	}
	return r.findOneAndUpdate(ctx, bson.M{"userId": userID}, update)
}

// TransferPendingToAvailable moves amount from pending to available in one write.
func (r *BalanceRepository) TransferPendingToAvailable(ctx context.Context, userID string, amount decimal.Decimal) (*models.BalanceRecord, error) {
	if !amount.IsPositive() {
		return nil, repositories.ErrInvalidAmount
	}
	pending, err := clampedAdd("$pendingBalance", amount.Neg())
	if err != nil {
		return nil, err
	}
	available, err := clampedAdd("$availableBalance", amount)
	if err != nil {
		return nil, err
	}
	added, err := clampedAdd("$totalAdded", amount)
	if err != nil {
		return nil, err
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "pendingBalance", Value: pending},
			{Key: "availableBalance", Value: available},
			{Key: "totalAdded", Value: added},
			{Key: "updatedAt", Value: time.Now()},
		}}},
	}
	return r.findOneAndUpdate(ctx, bson.M{"userId": userID}, update)
}

// Debit takes amount from availableBalance only when enough is available.
// The balance check is part of the filter, so concurrent debits cannot both pass it.
func (r *BalanceRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) (*models.BalanceRecord, error) {
	if !amount.IsPositive() {
		return nil, repositories.ErrInvalidAmount
	}
	value, err := mongopkg.Decimal128(amount)
	if err != nil {
		return nil, err
	}
	negated, err := mongopkg.Decimal128(amount.Neg())
	if err != nil {
		return nil, err
	}
	filter := bson.M{
		"userId":           userID,
		"availableBalance": bson.M{"$gte": value},
	}
	update := bson.M{
		"$inc": bson.M{
			"availableBalance": negated,
			"totalSpent":       value,
		},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	record, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, repositories.ErrInsufficientFunds
	}
	return record, err
}

// FindAll retrieves all balance records, most recently active first
func (r *BalanceRepository) FindAll(ctx context.Context) ([]*models.BalanceRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*models.BalanceRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.BalanceRecord{}
	}
	return records, nil
}

// Summary totals every balance record.
func (r *BalanceRepository) Summary(ctx context.Context) (*models.LedgerSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "users", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalAvailable", Value: bson.D{{Key: "$sum", Value: "$availableBalance"}}},
			{Key: "totalPending", Value: bson.D{{Key: "$sum", Value: "$pendingBalance"}}},
			{Key: "totalAdded", Value: bson.D{{Key: "$sum", Value: "$totalAdded"}}},
			{Key: "totalSpent", Value: bson.D{{Key: "$sum", Value: "$totalSpent"}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Users          int64           `bson:"users"`
		TotalAvailable decimal.Decimal `bson:"totalAvailable"`
		TotalPending   decimal.Decimal `bson:"totalPending"`
		TotalAdded     decimal.Decimal `bson:"totalAdded"`
		TotalSpent     decimal.Decimal `bson:"totalSpent"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	summary := &models.LedgerSummary{}
	if len(rows) > 0 {
		summary.Users = rows[0].Users
		summary.TotalAvailable = rows[0].TotalAvailable
		summary.TotalPending = rows[0].TotalPending
		summary.TotalAdded = rows[0].TotalAdded
		summary.TotalSpent = rows[0].TotalSpent
	}
	return summary, nil
}

func (r *BalanceRepository) findOneAndUpdate(ctx context.Context, filter, update interface{}) (*models.BalanceRecord, error) {
	var record models.BalanceRecord
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, returnAfter).Decode(&record); err != nil {
		return nil, mapError(err)
	}
	return &record, nil
}

// clampedAdd builds the aggregation expression max(0, field + delta).
func clampedAdd(field string, delta decimal.Decimal) (bson.D, error) {
	d, err := mongopkg.Decimal128(delta)
	if err != nil {
		return nil, err
	}
	return bson.D{{Key: "$max", Value: bson.A{
		zeroDecimal128,
		bson.D{{Key: "$add", Value: bson.A{field, d}}},
	}}}, nil
}
