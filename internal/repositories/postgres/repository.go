package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/mcq-genie/mcq-service/internal/repositories"
)

// Repository is the gorm-backed aggregate of all per-entity repositories.
type Repository struct {
	db      *gorm.DB
	session repositories.SessionRepository
	result  repositories.ResultRepository
	chat    repositories.ChatRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		db:      db,
		session: NewSessionPostgreSQL(db),
		result:  NewResultPostgreSQL(db),
		chat:    NewChatPostgreSQL(db),
	}
}

func (r *Repository) Session() repositories.SessionRepository { return r.session }
func (r *Repository) Result() repositories.ResultRepository   { return r.result }
func (r *Repository) Chat() repositories.ChatRepository       { return r.chat }

func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
