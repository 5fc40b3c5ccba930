package impl

import (
	"context"
	"log/slog"
	"strings"

	"sopmaker/config"
	deliverycontext "sopmaker/internal/delivery/context"
	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/repository"
	"sopmaker/internal/domain/service"
	"sopmaker/internal/errors"
	"sopmaker/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

const sharePathPrefix = "/share/"

// sopService implements the SOPUsecase interface.
type sopService struct {
	txManager repository.TransactionManager
	sopRepo   repository.SOPRepository
	qrService service.QRCodeService
	baseURL   string
	logger    *slog.Logger
}

// SOPServiceParams holds dependencies for SOPService, injected by Fx.
type SOPServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	SOPRepo   repository.SOPRepository
	QRService service.QRCodeService
	Config    *config.Config
	Logger    *slog.Logger
}

// NewSOPService is the constructor for sopService.
func NewSOPService(params SOPServiceParams) usecase.SOPUsecase {
	return &sopService{
		txManager: params.TxManager,
		sopRepo:   params.SOPRepo,
		qrService: params.QRService,
		baseURL:   strings.TrimRight(params.Config.App.BaseURL, "/"),
		logger:    params.Logger,
	}
}

func (srv *sopService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

func (srv *sopService) Create(ctx context.Context, actor *entity.SessionState, input *usecase.CreateSOPInput) (*entity.SOP, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("title is required")
	}

	sop := &entity.SOP{
		ID:          uuid.New(),
		OwnerID:     actor.UserID,
		Title:       title,
		Description: input.Description,
	}
	if err := srv.sopRepo.Create(ctx, sop); err != nil {
		return nil, errors.Wrap(err, "failed to create sop")
	}
	srv.log(ctx).Info("SOP created", slog.Any("sopID", sop.ID), slog.String("ownerID", actor.UserID))

	return sop, nil
}

// List returns the SOPs the actor owns.
func (srv *sopService) List(ctx context.Context, actor *entity.SessionState) ([]*entity.SOP, error) {
	if actor == nil {
		return nil, domainerrors.ErrAuthenticationRequired
	}

	sops, err := srv.sopRepo.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sops")
	}

	return sops, nil
}

// Get lets any signed-in user read an SOP.
func (srv *sopService) Get(ctx context.Context, actor *entity.SessionState, id uuid.UUID) (*entity.SOP, error) {
	if actor == nil {
		return nil, domainerrors.ErrAuthenticationRequired
	}

	return findSOP(ctx, srv.sopRepo, id)
}

func (srv *sopService) Update(ctx context.Context, actor *entity.SessionState, id uuid.UUID, input *usecase.UpdateSOPInput) (*entity.SOP, error) {
	sop, err := srv.loadEditable(ctx, srv.sopRepo, actor, id)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("title is required")
	}
	sop.Title = title
	sop.Description = input.Description

	if err := srv.sopRepo.Update(ctx, sop); err != nil {
		return nil, errors.Wrap(err, "failed to update sop")
	}

	return sop, nil
}

func (srv *sopService) Delete(ctx context.Context, actor *entity.SessionState, id uuid.UUID) error {
	if _, err := srv.loadEditable(ctx, srv.sopRepo, actor, id); err != nil {
		return err
	}

	if err := srv.sopRepo.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "failed to delete sop")
	}
	srv.log(ctx).Info("SOP deleted", slog.Any("sopID", id), slog.String("actorID", actor.UserID))

	return nil
}

// AddStep appends a step after the current last position.
func (srv *sopService) AddStep(ctx context.Context, actor *entity.SessionState, id uuid.UUID, input *usecase.AddStepInput) (*entity.Step, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("step title is required")
	}

	var step *entity.Step
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sopRepo := repoFactory.NewSOPRepository()

		sop, err := srv.loadEditable(ctx, sopRepo, actor, id)
		if err != nil {
			return err
		}

		position := 1
		for _, existing := range sop.Steps {
			position = max(position, existing.Position+1)
		}

		step = &entity.Step{
			ID:           uuid.New(),
			SOPID:        sop.ID,
			Position:     position,
			Title:        title,
			Instructions: input.Instructions,
			MediaURL:     input.MediaURL,
		}

		return errors.Wrap(sopRepo.CreateStep(ctx, step), "failed to create step")
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute add step transaction")
	}

	return step, nil
}

// ReorderSteps renumbers steps from 1 in the given order.
func (srv *sopService) ReorderSteps(ctx context.Context, actor *entity.SessionState, id uuid.UUID, order []uuid.UUID) (*entity.SOP, error) {
	var reordered *entity.SOP
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sopRepo := repoFactory.NewSOPRepository()

		sop, err := srv.loadEditable(ctx, sopRepo, actor, id)
		if err != nil {
			return err
		}

		positions, err := stepPositions(sop.Steps, order)
		if err != nil {
			return err
		}

		if err := sopRepo.UpdateStepPositions(ctx, sop.ID, positions); err != nil {
			return errors.Wrap(err, "failed to update step positions")
		}

		reordered, err = findSOP(ctx, sopRepo, id)

		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute reorder transaction")
	}

	return reordered, nil
}

// stepPositions checks that order is a permutation of the step ids.
func stepPositions(steps []*entity.Step, order []uuid.UUID) (map[uuid.UUID]int, error) {
	if len(order) != len(steps) {
		return nil, domainerrors.ErrInvalidStepOrder
	}

	known := make(map[uuid.UUID]bool, len(steps))
	for _, step := range steps {
		known[step.ID] = true
	}

	positions := make(map[uuid.UUID]int, len(order))
	for i, stepID := range order {
		if !known[stepID] {
			return nil, domainerrors.ErrInvalidStepOrder.WithDetails("unknown step " + stepID.String())
		}
		if _, dup := positions[stepID]; dup {
			return nil, domainerrors.ErrInvalidStepOrder.WithDetails("duplicate step " + stepID.String())
		}
		positions[stepID] = i + 1
	}

	return positions, nil
}

// Share returns the SOP's public URL, creating the token on first use.
func (srv *sopService) Share(ctx context.Context, actor *entity.SessionState, id uuid.UUID) (string, error) {
	sop, err := srv.loadEditable(ctx, srv.sopRepo, actor, id)
	if err != nil {
		return "", err
	}

	if !sop.IsShared() {
		token := strings.ReplaceAll(uuid.NewString(), "-", "")
		sop.ShareToken = &token

		if err := srv.sopRepo.Update(ctx, sop); err != nil {
			return "", errors.Wrap(err, "failed to store share token")
		}
		srv.log(ctx).Info("SOP shared", slog.Any("sopID", sop.ID))
	}

	return srv.shareURL(*sop.ShareToken), nil
}

func (srv *sopService) ShareQRCode(ctx context.Context, actor *entity.SessionState, id uuid.UUID) ([]byte, error) {
	shareURL, err := srv.Share(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	png, err := srv.qrService.GenerateShareQR(shareURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render share qr code")
	}

	return png, nil
}

func (srv *sopService) GetShared(ctx context.Context, token string) (*entity.SOP, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domainerrors.ErrSOPNotFound
	}

	sop, err := srv.sopRepo.FindByShareToken(ctx, token)
	if errors.Is(err, repository.ErrSOPNotFound) {
		return nil, domainerrors.ErrSOPNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find shared sop")
	}

	return sop, nil
}

func (srv *sopService) shareURL(token string) string {
	return srv.baseURL + sharePathPrefix + token
}

// loadEditable loads the SOP and checks the actor may change it: an editor owner or any admin.
func (srv *sopService) loadEditable(ctx context.Context, sopRepo repository.SOPRepository, actor *entity.SessionState, id uuid.UUID) (*entity.SOP, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}

	sop, err := findSOP(ctx, sopRepo, id)
	if err != nil {
		return nil, err
	}

	if sop.OwnerID != actor.UserID && !actor.Role.IsAdmin() {
		srv.log(ctx).Warn("SOP change by non-owner rejected", slog.Any("sopID", id), slog.String("actorID", actor.UserID))

		return nil, domainerrors.ErrForbidden.WithDetails("only the owner or an admin may change this sop")
	}

	return sop, nil
}

func requireEditor(actor *entity.SessionState) error {
	if actor == nil {
		return domainerrors.ErrAuthenticationRequired
	}
	if !actor.Role.CanEdit() {
		return domainerrors.ErrForbidden.WithDetails("editor role required")
	}

	return nil
}

func findSOP(ctx context.Context, sopRepo repository.SOPRepository, id uuid.UUID) (*entity.SOP, error) {
	sop, err := sopRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrSOPNotFound) {
		return nil, domainerrors.ErrSOPNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find sop")
	}

	return sop, nil
}
