package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository aggregates the per-entity repositories behind a single handle
// that services depend on.
type Repository interface {
	Session() SessionRepository
	Result() ResultRepository
	Chat() ChatRepository

	// WithTransaction runs fn inside a database transaction. The Repository
	// passed to fn is bound to that transaction.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// IsNotFoundError reports whether err means the requested row does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
