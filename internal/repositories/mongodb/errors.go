package mongodb

import (
	"errors"

	"github.com/metagameshop/shop-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
)

// mapError translates driver errors into repository errors so services never
// depend on the driver.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repositories.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repositories.ErrDuplicateKey
	default:
		return err
	}
}
