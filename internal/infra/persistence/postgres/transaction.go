package postgres

import (
	"context"

	"sopmaker/internal/domain/repository"
	"sopmaker/internal/errors"

	"gorm.io/gorm"
)

type gormTransactionManager struct {
	db *gorm.DB
}

// txFactory builds repositories on a single *gorm.DB transaction handle.
type txFactory struct {
	tx *gorm.DB
}

func (f txFactory) NewUserRepository() repository.UserRepository { return NewUserRepository(f.tx) }
func (f txFactory) NewAuthRepository() repository.AuthRepository { return NewAuthRepository(f.tx) }
func (f txFactory) NewRoleRepository() repository.RoleRepository { return NewRoleRepository(f.tx) }
func (f txFactory) NewSOPRepository() repository.SOPRepository { return NewSOPRepository(f.tx) }
func (f txFactory) NewRefreshTokenRepository() repository.RefreshTokenRepository {
	return NewRefreshTokenRepository(f.tx)
}

// NewTransactionManager is the constructor for gormTransactionManager.
func NewTransactionManager(db *gorm.DB) repository.TransactionManager {
	return &gormTransactionManager{db: db}
}

// Execute delegates to gorm's Transaction, which rolls back on error or panic.
// Errors from fn come back unwrapped so callers can still match domain errors.
func (tm *gormTransactionManager) Execute(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
	var fnErr error
	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(txFactory{tx: tx})

		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}

	return errors.Wrap(err, "session store transaction")
}
