// Package memory is an in-process implementation of the repositories, used by
// tests and by the "memory" storage driver for local development. Data is lost
// on restart.
package memory

import (
	"context"
	"sync"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure Store implements the interface
var _ repositories.Transactor = (*Store)(nil)

type txKey struct{}

// Store holds the three ledger collections behind one mutex.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	seq  int64

	balances  map[string]balanceRow
	payments  map[primitive.ObjectID]paymentRow
	purchases map[string]purchaseRow
}

type balanceRow struct {
	rec models.BalanceRecord
	seq int64
}

type paymentRow struct {
	rec models.PaymentRequest
	seq int64
}

type purchaseRow struct {
	rec models.Purchase
	seq int64
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		balances:  make(map[string]balanceRow),
		payments:  make(map[primitive.ObjectID]paymentRow),
		purchases: make(map[string]purchaseRow),
	}
}

// Balances returns the Balance Record Store view.
func (s *Store) Balances() *BalanceRepository { return &BalanceRepository{s: s} }

// Payments returns the payment request view.
func (s *Store) Payments() *PaymentRepository { return &PaymentRepository{s: s} }

// Purchases returns the order view.
func (s *Store) Purchases() *PurchaseRepository { return &PurchaseRepository{s: s} }

// WithinTransaction serializes units of work and rolls every collection back
// when fn fails. Nested calls join the outer unit.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	balances  map[string]balanceRow
	payments  map[primitive.ObjectID]paymentRow
	purchases map[string]purchaseRow
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		balances:  make(map[string]balanceRow, len(s.balances)),
		payments:  make(map[primitive.ObjectID]paymentRow, len(s.payments)),
		purchases: make(map[string]purchaseRow, len(s.purchases)),
	}
	for k, v := range s.balances {
		snap.balances[k] = v
	}
	for k, v := range s.payments {
		snap.payments[k] = v
	}
	for k, v := range s.purchases {
		snap.purchases[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances = snap.balances
	s.payments = snap.payments
	s.purchases = snap.purchases
}

// nextSeq must be called with mu held.
func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// exclusive serializes work done outside a transaction with running
// transactions.
func (s *Store) exclusive(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

// lock takes txMu unless ctx is inside a transaction, then mu. Holding txMu
// keeps reads from seeing writes that a running transaction may roll back.
func (s *Store) lock(ctx context.Context) func() {
	release := s.exclusive(ctx)
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		release()
	}
}
