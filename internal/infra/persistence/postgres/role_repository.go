package postgres

import (
	"context"
	"time"

	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/repository"
	"sopmaker/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository is the constructor for roleRepository.
func NewRoleRepository(db *gorm.DB) repository.RoleRepository {
	return &roleRepository{db: db}
}

// FindByUserID returns the stored role or repository.ErrRoleNotFound.
func (repo *roleRepository) FindByUserID(ctx context.Context, userID string) (*entity.UserRole, error) {
	var roleM model.UserRoleModel
	if err := repo.db.WithContext(ctx).Where("user_id = ?", userID).First(&roleM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoleNotFound
		}

		return nil, errors.Wrap(err, "failed to find role by user id")
	}

	return toUserRoleDomain(&roleM), nil
}

// FindByUserIDs returns the stored roles for the given users. Users without a row are absent.
func (repo *roleRepository) FindByUserIDs(ctx context.Context, userIDs []string) (map[string]entity.Role, error) {
	roles := make(map[string]entity.Role, len(userIDs))
	if len(userIDs) == 0 {
		return roles, nil
	}

	var models []model.UserRoleModel
	if err := repo.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find roles by user ids")
	}

	for i := range models {
		roles[models[i].UserID] = entity.Role(models[i].Role)
	}

	return roles, nil
}

// Upsert inserts or replaces the role row for userID.
func (repo *roleRepository) Upsert(ctx context.Context, userID string, role entity.Role) error {
	roleM := &model.UserRoleModel{
		UserID:    userID,
		Role:      role.String(),
		UpdatedAt: time.Now(),
	}

	err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(roleM).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to upsert role")
	}

	return nil
}

func toUserRoleDomain(data *model.UserRoleModel) *entity.UserRole {
	return &entity.UserRole{
		UserID:    data.UserID,
		Role:      entity.Role(data.Role),
		UpdatedAt: data.UpdatedAt,
	}
}
