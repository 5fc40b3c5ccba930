package postgres

import (
	"context"

	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/repository"
	"sopmaker/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type sopRepository struct {
	db *gorm.DB
}

// NewSOPRepository is the constructor for sopRepository.
func NewSOPRepository(db *gorm.DB) repository.SOPRepository {
	return &sopRepository{db: db}
}

func (repo *sopRepository) Create(ctx context.Context, sop *entity.SOP) error {
	if sop.ID == uuid.Nil {
		sop.ID = uuid.New()
	}
	sopM := fromSOPDomain(sop)
	// Steps are written separately with CreateStep.
	sopM.Steps = nil

	if err := repo.db.WithContext(ctx).Create(sopM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create sop")
	}

	sop.CreatedAt = sopM.CreatedAt
	sop.UpdatedAt = sopM.UpdatedAt

	return nil
}

func (repo *sopRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SOP, error) {
	return repo.findOne(ctx, "id = ?", id)
}

func (repo *sopRepository) FindByShareToken(ctx context.Context, token string) (*entity.SOP, error) {
	return repo.findOne(ctx, "share_token = ?", token)
}

func (repo *sopRepository) findOne(ctx context.Context, query string, arg any) (*entity.SOP, error) {
	var sopM model.SOPModel
	err := repo.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where(query, arg).
		First(&sopM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSOPNotFound
		}

		return nil, errors.Wrap(err, "failed to find sop")
	}

	return toSOPDomain(&sopM), nil
}

func (repo *sopRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.SOP, error) {
	var models []model.SOPModel
	if err := repo.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list sops")
	}

	sops := make([]*entity.SOP, 0, len(models))
	for i := range models {
		sops = append(sops, toSOPDomain(&models[i]))
	}

	return sops, nil
}

func (repo *sopRepository) Update(ctx context.Context, sop *entity.SOP) error {
	result := repo.db.WithContext(ctx).Model(&model.SOPModel{ID: sop.ID}).Updates(map[string]any{
		"title":       sop.Title,
		"description": sop.Description,
		"share_token": sop.ShareToken,
	})
	if result.Error != nil {
		if isUniqueConstraintViolation(result.Error) {
			return domainerrors.ErrInternalError.WrapMessage("share token collision")
		}

		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update sop")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSOPNotFound
	}

	return nil
}

func (repo *sopRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sop_id = ?", id).Delete(&model.StepModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.SOPModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrSOPNotFound
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrSOPNotFound) {
			return repository.ErrSOPNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to delete sop")
	}

	return nil
}

func (repo *sopRepository) CreateStep(ctx context.Context, step *entity.Step) error {
	if step.ID == uuid.Nil {
		step.ID = uuid.New()
	}
	stepM := fromStepDomain(step)

	if err := repo.db.WithContext(ctx).Create(stepM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrSOPNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create step")
	}

	step.CreatedAt = stepM.CreatedAt
	step.UpdatedAt = stepM.UpdatedAt

	return nil
}

func (repo *sopRepository) UpdateStepPositions(ctx context.Context, sopID uuid.UUID, positions map[uuid.UUID]int) error {
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for stepID, position := range positions {
			result := tx.Model(&model.StepModel{}).
				Where("id = ? AND sop_id = ?", stepID, sopID).
				Update("position", position)
			if result.Error != nil {
				return result.Error
			}
		}

		return tx.Model(&model.SOPModel{ID: sopID}).Update("updated_at", gorm.Expr("NOW()")).Error
	})
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to reorder steps")
	}

	return nil
}

func toSOPDomain(data *model.SOPModel) *entity.SOP {
	steps := make([]*entity.Step, 0, len(data.Steps))
	for i := range data.Steps {
		steps = append(steps, toStepDomain(&data.Steps[i]))
	}

	return &entity.SOP{
		ID:          data.ID,
		OwnerID:     data.OwnerID,
		Title:       data.Title,
		Description: data.Description,
		ShareToken:  data.ShareToken,
		Steps:       steps,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
}

func fromSOPDomain(data *entity.SOP) *model.SOPModel {
	steps := make([]model.StepModel, 0, len(data.Steps))
	for _, s := range data.Steps {
		steps = append(steps, *fromStepDomain(s))
	}

	return &model.SOPModel{
		ID:          data.ID,
		OwnerID:     data.OwnerID,
		Title:       data.Title,
		Description: data.Description,
		ShareToken:  data.ShareToken,
		Steps:       steps,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
}

func toStepDomain(data *model.StepModel) *entity.Step {
	return &entity.Step{
		ID:           data.ID,
		SOPID:        data.SOPID,
		Position:     data.Position,
		Title:        data.Title,
		Instructions: data.Instructions,
		MediaURL:     data.MediaURL,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}

func fromStepDomain(data *entity.Step) *model.StepModel {
	return &model.StepModel{
		ID:           data.ID,
		SOPID:        data.SOPID,
		Position:     data.Position,
		Title:        data.Title,
		Instructions: data.Instructions,
		MediaURL:     data.MediaURL,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}
