package repository

import "context"

// TransactionManager runs a unit of work against the session store atomically.
// Sign-up (user, credential, role rows) and refresh rotation (revoke old, insert
// new) go through it.
type TransactionManager interface {
	// Execute commits when fn returns nil and rolls back otherwise. Repositories
	// obtained from the factory share the transaction.
	Execute(ctx context.Context, fn func(txRepoFactory RepositoryFactory) error) error
}

// RepositoryFactory hands out repositories bound to one transaction.
type RepositoryFactory interface {
	NewUserRepository() UserRepository
	NewAuthRepository() AuthRepository
	NewRoleRepository() RoleRepository
	NewRefreshTokenRepository() RefreshTokenRepository
	NewSOPRepository() SOPRepository
}
