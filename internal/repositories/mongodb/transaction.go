package mongodb

import (
	"context"
	"fmt"

	"github.com/metagameshop/shop-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// Compile-time check to ensure Transactor implements the interface
var _ repositories.Transactor = (*Transactor)(nil)

// Transactor runs units of work inside multi-document MongoDB transactions.
// Transactions need a replica set; with enabled=false the work runs directly
// and each step relies on its own conditional write.
type Transactor struct {
	client  *mongo.Client
	enabled bool
}

// NewTransactor creates a new Transactor
func NewTransactor(client *mongo.Client, enabled bool) *Transactor {
	return &Transactor{client: client, enabled: enabled}
}

// WithinTransaction runs fn in a transaction. The driver retries fn on
// transient errors such as write conflicts, so fn must be safe to re-run.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.New(writeconcern.WMajority()))

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, opts)
	return err
}
