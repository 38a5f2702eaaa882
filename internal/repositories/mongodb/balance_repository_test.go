package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/repositories"
	mongopkg "github.com/metagameshop/shop-backend/pkg/mongodb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newMockT returns an mtest harness whose clients answer from queued mock
// responses and decode decimals the way the production client does.
func newMockT(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().
		ClientType(mtest.Mock).
		ClientOptions(options.Client().SetRegistry(mongopkg.NewRegistry())))
}

func d128(s string) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(s)
	if err != nil {
		panic(err)
	}
	return v
}

func balanceDoc(userID, available, pending, added, spent string) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "userId", Value: userID},
		{Key: "availableBalance", Value: d128(available)},
		{Key: "pendingBalance", Value: d128(pending)},
		{Key: "totalAdded", Value: d128(added)},
		{Key: "totalSpent", Value: d128(spent)},
		{Key: "createdAt", Value: time.Now()},
		{Key: "updatedAt", Value: time.Now()},
	}
}

func modified(doc bson.D) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc})
}

func noMatch() bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})
}

func duplicateKey() bson.D {
	return mtest.CreateCommandErrorResponse(mtest.CommandError{
		Code:    11000,
		Message: "E11000 duplicate key error collection: shop.balances index: userId_1",
		Name:    "DuplicateKey",
	})
}

func TestBalanceRepository_Debit(t *testing.T) {
	mt := newMockT(t)
	defer mt.Close()

	mt.Run("balance check is part of the filter", func(mt *mtest.T) {
		repo := NewBalanceRepository(mt.DB)
		mt.AddMockResponses(modified(balanceDoc("u1", "70", "0", "100", "30")))

		rec, err := repo.Debit(context.Background(), "u1", decimal.NewFromInt(30))
		require.NoError(mt, err)
		assert.True(mt, rec.AvailableBalance.Equal(decimal.NewFromInt(70)))
		assert.True(mt, rec.TotalSpent.Equal(decimal.NewFromInt(30)))

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, BalanceCollection, cmd.Lookup("findAndModify").StringValue())
		assert.Equal(mt, "u1", cmd.Lookup("query", "userId").StringValue())
		assert.Equal(mt, "30", cmd.Lookup("query", "availableBalance", "$gte").Decimal128().String())
		assert.Equal(mt, "-30", cmd.Lookup("update", "$inc", "availableBalance").Decimal128().String())
		assert.Equal(mt, "30", cmd.Lookup("update", "$inc", "totalSpent").Decimal128().String())
		assert.True(mt, cmd.Lookup("new").Boolean())
	})

	mt.Run("no matching document means insufficient funds", func(mt *mtest.T) {
		repo := NewBalanceRepository(mt.DB)
		mt.AddMockResponses(noMatch())

		_, err := repo.Debit(context.Background(), "u1", decimal.NewFromInt(500))
		assert.ErrorIs(mt, err, repositories.ErrInsufficientFunds)
	})

	mt.Run("non-positive amounts never reach the server", func(mt *mtest.T) {
		repo := NewBalanceRepository(mt.DB)

		_, err := repo.Debit(context.Background(), "u1", decimal.Zero)
		assert.ErrorIs(mt, err, repositories.ErrInvalidAmount)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("unrepresentable amount is an error", func(mt *mtest.T) {
		repo := NewBalanceRepository(mt.DB)

		_, err := repo.Debit(context.Background(), "u1", decimal.RequireFromString("0.12345678901234567890123456789012345678"))
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "Decimal128")
		assert.Nil(mt, mt.GetStartedEvent())
	})
}

func TestBalanceRepository_AdjustPendingClampPipeline(t *testing.T) {
	mt := newMockT(t)
	defer mt.Close()

	mt.Run("pending is max(0, pending + delta)", func(mt *mtest.T) {
		repo := NewBalanceRepository(mt.DB)
		mt.AddMockResponses(modified(balanceDoc("u1", "0", "0", "0", "0")))

		rec, err := repo.AdjustPending(context.Background(), "u1", decimal.NewFromInt(-250))
		require.NoError(mt, err)
		assert.True(mt, rec.PendingBalance.IsZero())

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, "u1", cmd.Lookup("query", "userId").StringValue())

		clamp := []string{"update", "0", "$set", "pendingBalance", "$max"}
		assert.Equal(mt, "0", cmd.Lookup(append(clamp, "0")...).Decimal128().String())
		assert.Equal(mt, "$pendingBalance", cmd.Lookup(append(clamp, "1", "$add", "0")...).StringValue())
		assert.Equal(mt, "-250", cmd.Lookup(append(clamp, "1", "$add", "1")...).Decimal128().String())
	})

	mt.Run("missing record", func(mt *mtest.T) {
		repo := NewBalanceRepository(mt.DB)
		mt.AddMockResponses(noMatch())

		_, err := repo.AdjustPending(context.Background(), "ghost", decimal.NewFromInt(10))
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
	})
}

func TestBalanceRepository_TransferPipeline(t *testing.T) {
	mt := newMockT(t)
	defer mt.Close()

	mt.Run("every field is clamped in one update", func(mt *mtest.T) {
		repo := NewBalanceRepository(mt.DB)
		mt.AddMockResponses(modified(balanceDoc("u1", "500", "0", "500", "0")))

		rec, err := repo.TransferPendingToAvailable(context.Background(), "u1", decimal.NewFromInt(500))
		require.NoError(mt, err)
		assert.True(mt, rec.AvailableBalance.Equal(decimal.NewFromInt(500)))

		cmd := mt.GetStartedEvent().Command
		want := map[string]string{
			"pendingBalance":   "-500",
			"availableBalance": "500",
			"totalAdded":       "500",
		}
		for field, delta := range want {
			clamp := []string{"update", "0", "$set", field, "$max"}
			assert.Equal(mt, "0", cmd.Lookup(append(clamp, "0")...).Decimal128().String(), field)
			assert.Equal(mt, "$"+field, cmd.Lookup(append(clamp, "1", "$add", "0")...).StringValue(), field)
			assert.Equal(mt, delta, cmd.Lookup(append(clamp, "1", "$add", "1")...).Decimal128().String(), field)
		}
	})
}

func TestBalanceRepository_GetOrCreate(t *testing.T) {
	mt := newMockT(t)
	defer mt.Close()

	profile := models.UserProfile{Email: "u1@example.com"}

	mt.Run("upsert grants the signup credit on insert only", func(mt *mtest.T) {
		repo := NewBalanceRepository(mt.DB)
		mt.AddMockResponses(modified(balanceDoc("u1", "50", "0", "50", "0")))

		rec, err := repo.GetOrCreate(context.Background(), "u1", profile, decimal.NewFromInt(50))
		require.NoError(mt, err)
		assert.True(mt, rec.AvailableBalance.Equal(decimal.NewFromInt(50)))

		cmd := mt.GetStartedEvent().Command
		assert.True(mt, cmd.Lookup("upsert").Boolean())
		assert.Equal(mt, "u1@example.com", cmd.Lookup("update", "$set", "email").StringValue())
		assert.Equal(mt, "50", cmd.Lookup("update", "$setOnInsert", "availableBalance").Decimal128().String())
		assert.Equal(mt, "50", cmd.Lookup("update", "$setOnInsert", "totalAdded").Decimal128().String())
		assert.Equal(mt, "0", cmd.Lookup("update", "$setOnInsert", "pendingBalance").Decimal128().String())
	})

	mt.Run("racing upsert is retried outside a session", func(mt *mtest.T) {
		repo := NewBalanceRepository(mt.DB)
		mt.AddMockResponses(duplicateKey(), modified(balanceDoc("u1", "0", "0", "0", "0")))

		rec, err := repo.GetOrCreate(context.Background(), "u1", profile, decimal.Zero)
		require.NoError(mt, err)
		assert.Equal(mt, "u1", rec.UserID)
		assert.Len(mt, mt.GetAllStartedEvents(), 2)
	})

	mt.Run("racing upsert inside a session goes back to the caller", func(mt *mtest.T) {
		repo := NewBalanceRepository(mt.DB)
		mt.AddMockResponses(duplicateKey())

		sess, err := mt.Client.StartSession()
		require.NoError(mt, err)
		defer sess.EndSession(context.Background())
		ctx := mongo.NewSessionContext(context.Background(), sess)

		_, err = repo.GetOrCreate(ctx, "u1", profile, decimal.Zero)
		assert.ErrorIs(mt, err, repositories.ErrDuplicateKey)
		assert.Len(mt, mt.GetAllStartedEvents(), 1)
	})
}
