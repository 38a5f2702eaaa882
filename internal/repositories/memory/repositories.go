package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repositories.BalanceRepository  = (*BalanceRepository)(nil)
	_ repositories.PaymentRepository  = (*PaymentRepository)(nil)
	_ repositories.PurchaseRepository = (*PurchaseRepository)(nil)
)

// BalanceRepository is the in-memory Balance Record Store.
type BalanceRepository struct {
	s *Store
}

// GetOrCreate returns the record for userID, creating it with signupCredit.
func (r *BalanceRepository) GetOrCreate(ctx context.Context, userID string, profile models.UserProfile, signupCredit decimal.Decimal) (*models.BalanceRecord, error) {
	defer r.s.lock(ctx)()

	now := time.Now()
	row, ok := r.s.balances[userID]
	if !ok {
		credit := models.NonNegative(signupCredit)
		row = balanceRow{
			rec: models.BalanceRecord{
				ID:               primitive.NewObjectID(),
				UserID:           userID,
				AvailableBalance: credit,
				PendingBalance:   decimal.Zero,
				TotalAdded:       credit,
				TotalSpent:       decimal.Zero,
				CreatedAt:        now,
			},
			seq: r.s.nextSeq(),
		}
	}
	if profile.Email != "" {
		row.rec.Email = profile.Email
	}
	if profile.DisplayName != "" {
		row.rec.DisplayName = profile.DisplayName
	}
	row.rec.UpdatedAt = now
	r.s.balances[userID] = row

	rec := row.rec
	return &rec, nil
}

// FindByUserID returns a copy of the record, or ErrNotFound.
func (r *BalanceRepository) FindByUserID(ctx context.Context, userID string) (*models.BalanceRecord, error) {
	defer r.s.lock(ctx)()

	row, ok := r.s.balances[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	rec := row.rec
	return &rec, nil
}

// AdjustPending adds delta to pendingBalance.
func (r *BalanceRepository) AdjustPending(ctx context.Context, userID string, delta decimal.Decimal) (*models.BalanceRecord, error) {
	return r.update(ctx, userID, func(rec *models.BalanceRecord) error {
		rec.PendingBalance = rec.PendingBalance.Add(delta)
		return nil
	})
}

// TransferPendingToAvailable moves amount from pending to available.
func (r *BalanceRepository) TransferPendingToAvailable(ctx context.Context, userID string, amount decimal.Decimal) (*models.BalanceRecord, error) {
	if !amount.IsPositive() {
		return nil, repositories.ErrInvalidAmount
	}
	return r.update(ctx, userID, func(rec *models.BalanceRecord) error {
		rec.PendingBalance = rec.PendingBalance.Sub(amount)
		rec.AvailableBalance = rec.AvailableBalance.Add(amount)
		rec.TotalAdded = rec.TotalAdded.Add(amount)
		return nil
	})
}

// Debit takes amount from availableBalance when enough is available.
func (r *BalanceRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) (*models.BalanceRecord, error) {
	if !amount.IsPositive() {
		return nil, repositories.ErrInvalidAmount
	}
	rec, err := r.update(ctx, userID, func(rec *models.BalanceRecord) error {
		if rec.AvailableBalance.LessThan(amount) {
			return repositories.ErrInsufficientFunds
		}
		rec.AvailableBalance = rec.AvailableBalance.Sub(amount)
		rec.TotalSpent = rec.TotalSpent.Add(amount)
		return nil
	})
	if err == repositories.ErrNotFound {
		return nil, repositories.ErrInsufficientFunds
	}
	return rec, err
}

// FindAll lists every record, most recently updated first.
func (r *BalanceRepository) FindAll(ctx context.Context) ([]*models.BalanceRecord, error) {
	unlock := r.s.lock(ctx)
	rows := make([]balanceRow, 0, len(r.s.balances))
	for _, row := range r.s.balances {
		rows = append(rows, row)
	}
	unlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].rec.UpdatedAt.Equal(rows[j].rec.UpdatedAt) {
			return rows[i].rec.UpdatedAt.After(rows[j].rec.UpdatedAt)
		}
		return rows[i].seq > rows[j].seq
	})

	records := make([]*models.BalanceRecord, 0, len(rows))
	for i := range rows {
		rec := rows[i].rec
		records = append(records, &rec)
	}
	return records, nil
}

// Summary totals every record.
func (r *BalanceRepository) Summary(ctx context.Context) (*models.LedgerSummary, error) {
	defer r.s.lock(ctx)()

	summary := &models.LedgerSummary{
		TotalAvailable: decimal.Zero,
		TotalPending:   decimal.Zero,
		TotalAdded:     decimal.Zero,
		TotalSpent:     decimal.Zero,
	}
	for _, row := range r.s.balances {
		summary.Users++
		summary.TotalAvailable = summary.TotalAvailable.Add(row.rec.AvailableBalance)
		summary.TotalPending = summary.TotalPending.Add(row.rec.PendingBalance)
		summary.TotalAdded = summary.TotalAdded.Add(row.rec.TotalAdded)
		summary.TotalSpent = summary.TotalSpent.Add(row.rec.TotalSpent)
	}
	return summary, nil
}

// update applies fn to a copy of the record and stores it with every
// balance clamped at zero.
func (r *BalanceRepository) update(ctx context.Context, userID string, fn func(rec *models.BalanceRecord) error) (*models.BalanceRecord, error) {
	defer r.s.lock(ctx)()

	row, ok := r.s.balances[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	rec := row.rec
	if err := fn(&rec); err != nil {
		return nil, err
	}
	rec.Clamp()
	rec.UpdatedAt = time.Now()
	row.rec = rec
	r.s.balances[userID] = row

	out := rec
	return &out, nil
}

// PaymentRepository is the in-memory payment request store.
type PaymentRepository struct {
	s *Store
}

// Create stores payment; the transaction id is unique ignoring case.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.PaymentRequest) error {
	defer r.s.lock(ctx)()

	key := normalizeTxID(payment.TransactionID)
	for _, row := range r.s.payments {
		if normalizeTxID(row.rec.TransactionID) == key {
			return repositories.ErrDuplicateKey
		}
	}

	payment.ID = primitive.NewObjectID()
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	r.s.payments[payment.ID] = paymentRow{rec: *payment, seq: r.s.nextSeq()}
	return nil
}

// FindByID returns the request with id, or ErrNotFound.
func (r *PaymentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.PaymentRequest, error) {
	defer r.s.lock(ctx)()

	row, ok := r.s.payments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	rec := row.rec
	return &rec, nil
}

// FindByTransactionID matches case-insensitively.
func (r *PaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.PaymentRequest, error) {
	defer r.s.lock(ctx)()

	key := normalizeTxID(transactionID)
	for _, row := range r.s.payments {
		if normalizeTxID(row.rec.TransactionID) == key {
			rec := row.rec
			return &rec, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// FindByUserID lists a user's requests, newest first.
func (r *PaymentRepository) FindByUserID(ctx context.Context, userID string) ([]*models.PaymentRequest, error) {
	return r.find(ctx, func(p *models.PaymentRequest) bool { return p.UserID == userID }, false), nil
}

// FindByStatus lists requests in status. Pending requests come oldest first.
func (r *PaymentRepository) FindByStatus(ctx context.Context, status models.PaymentStatus) ([]*models.PaymentRequest, error) {
	ascending := status == models.PaymentStatusPending
	return r.find(ctx, func(p *models.PaymentRequest) bool { return p.Status == status }, ascending), nil
}

// Settle moves a pending request to decision.Status.
func (r *PaymentRepository) Settle(ctx context.Context, id primitive.ObjectID, decision models.PaymentDecision) (*models.PaymentRequest, error) {
	defer r.s.lock(ctx)()

	row, ok := r.s.payments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if row.rec.Status != models.PaymentStatusPending {
		return nil, repositories.ErrStatusConflict
	}

	rec := row.rec
	at := decision.At
	switch decision.Status {
	case models.PaymentStatusApproved:
		rec.ApprovedBy = decision.ActorID
		rec.ApprovedByName = decision.Actor
		rec.ApprovedAt = &at
	case models.PaymentStatusRejected:
		rec.RejectedBy = decision.ActorID
		rec.RejectedByName = decision.Actor
		rec.RejectedAt = &at
		rec.RejectionReason = decision.Reason
	default:
		return nil, repositories.ErrStatusConflict
	}
	rec.Status = decision.Status
	rec.UpdatedAt = decision.At
	row.rec = rec
	r.s.payments[id] = row

	out := rec
	return &out, nil
}

// CountByStatus returns the count and total amount of requests in status.
func (r *PaymentRepository) CountByStatus(ctx context.Context, status models.PaymentStatus) (int64, decimal.Decimal, error) {
	defer r.s.lock(ctx)()

	var count int64
	total := decimal.Zero
	for _, row := range r.s.payments {
		if row.rec.Status == status {
			count++
			total = total.Add(row.rec.Amount)
		}
	}
	return count, total, nil
}

func (r *PaymentRepository) find(ctx context.Context, match func(*models.PaymentRequest) bool, ascending bool) []*models.PaymentRequest {
	unlock := r.s.lock(ctx)
	var rows []paymentRow
	for _, row := range r.s.payments {
		if match(&row.rec) {
			rows = append(rows, row)
		}
	}
	unlock()

	sort.Slice(rows, func(i, j int) bool {
		if ascending {
			return rows[i].seq < rows[j].seq
		}
		return rows[i].seq > rows[j].seq
	})

	payments := make([]*models.PaymentRequest, 0, len(rows))
	for i := range rows {
		rec := rows[i].rec
		payments = append(payments, &rec)
	}
	return payments
}

func normalizeTxID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// PurchaseRepository is the in-memory order store.
type PurchaseRepository struct {
	s *Store
}

// Create stores purchase; order ids are unique.
func (r *PurchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	defer r.s.lock(ctx)()

	if _, exists := r.s.purchases[purchase.OrderID]; exists {
		return repositories.ErrDuplicateKey
	}
	purchase.ID = primitive.NewObjectID()
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now()
	}
	purchase.UpdatedAt = purchase.CreatedAt
	r.s.purchases[purchase.OrderID] = purchaseRow{rec: *purchase, seq: r.s.nextSeq()}
	return nil
}

// FindByOrderID returns the order, or ErrNotFound.
func (r *PurchaseRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Purchase, error) {
	defer r.s.lock(ctx)()

	row, ok := r.s.purchases[orderID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	rec := row.rec
	return &rec, nil
}

// FindByUserID returns one page of a user's orders, newest first, and the total count.
func (r *PurchaseRepository) FindByUserID(ctx context.Context, userID string, page, limit int) ([]*models.Purchase, int64, error) {
	unlock := r.s.lock(ctx)
	var rows []purchaseRow
	for _, row := range r.s.purchases {
		if row.rec.UserID == userID {
			rows = append(rows, row)
		}
	}
	unlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	total := int64(len(rows))
	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	if start > len(rows) {
		start = len(rows)
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}

	purchases := make([]*models.Purchase, 0, end-start)
	for i := start; i < end; i++ {
		rec := rows[i].rec
		purchases = append(purchases, &rec)
	}
	return purchases, total, nil
}

// StatsByUserID summarizes a user's orders.
func (r *PurchaseRepository) StatsByUserID(ctx context.Context, userID string) (*models.OrderStats, error) {
	defer r.s.lock(ctx)()

	stats := &models.OrderStats{TotalSpent: decimal.Zero}
	for _, row := range r.s.purchases {
		p := row.rec
		if p.UserID != userID {
			continue
		}
		stats.TotalOrders++
		switch p.Status {
		case models.PurchaseStatusCompleted:
			stats.CompletedOrders++
			stats.TotalSpent = stats.TotalSpent.Add(p.TotalAmount)
		case models.PurchaseStatusPending:
			stats.PendingOrders++
		case models.PurchaseStatusProcessing:
			stats.ProcessingOrders++
		case models.PurchaseStatusFailed:
			stats.FailedOrders++
		}
		if created := p.CreatedAt; stats.LastOrderAt == nil || created.After(*stats.LastOrderAt) {
			stats.LastOrderAt = &created
		}
	}
	return stats, nil
}
