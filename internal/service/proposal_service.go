package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/nexus226/backend/internal/catproposal"
	"github.com/nexus226/backend/internal/logger"
	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/pkg/apperror"
	"github.com/nexus226/backend/internal/ratelimit"
	"github.com/nexus226/backend/internal/validation"
)

type ServiceRepository interface {
	Create(ctx context.Context, svc *models.Service) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
	ListActive(ctx context.Context, categoryID *uuid.UUID, limit, offset int) ([]models.Service, error)
	Search(ctx context.Context, query string, limit int) ([]models.Service, error)
	Update(ctx context.Context, svc *models.Service) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ProposalRepository interface {
	Create(ctx context.Context, proposal *models.ServiceProposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceProposal, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.ServiceProposal, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.ServiceProposal, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ServiceProposal, error)
	UpdateMessage(ctx context.Context, id uuid.UUID, message string) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	AcceptForService(ctx context.Context, serviceID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CategoryReader interface {
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// ProposalLimiter ограничивает частоту подачи заявок.
type ProposalLimiter interface {
	Take(ctx context.Context, key string) (ratelimit.Status, error)
	Release(ctx context.Context, key string) error
}

// Типы заявок в выдаче
const (
	ProposalKindService  = "service"
	ProposalKindCategory = "category"
	ProposalKindCorrupt  = "corrupt"
)

// ProposalView заявка с разобранным содержимым.
type ProposalView struct {
	models.ServiceProposal
	Kind        string                `json:"kind"`
	Service     *models.Service       `json:"service,omitempty"`
	Category    *catproposal.Proposal `json:"category,omitempty"`
	DecodeError string                `json:"decode_error,omitempty"`
}

// SubmitServiceInput данные заявки на сервис.
type SubmitServiceInput struct {
	Title       string
	Description string
	URL         string
	CategoryID  uuid.UUID
	Message     string
}

// SubmitCategoryInput данные предложения категории.
type SubmitCategoryInput struct {
	Kind          catproposal.Kind
	Name          string
	Description   string
	ParentID      *uuid.UUID
	Justification string
	Link          *string
}

type ProposalService struct {
	tx         Transactor
	services   ServiceRepository
	proposals  ProposalRepository
	categories CategoryReader
	limiter    ProposalLimiter
}

func NewProposalService(tx Transactor, services ServiceRepository, proposals ProposalRepository, categories CategoryReader, limiter ProposalLimiter) *ProposalService {
	return &ProposalService{
		tx:         tx,
		services:   services,
		proposals:  proposals,
		categories: categories,
		limiter:    limiter,
	}
}

func proposalLimitKey(userID uuid.UUID) string {
	return "proposal:" + userID.String()
}

// SubmitService создаёт сервис в статусе pending и заявку к нему.
func (s *ProposalService) SubmitService(ctx context.Context, userID uuid.UUID, in SubmitServiceInput) (*models.Service, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.URL = strings.TrimSpace(in.URL)
	in.Message = strings.TrimSpace(in.Message)

	if err := validation.ValidateServiceTitle(in.Title); err != nil {
		return nil, apperror.Validation("title", err.Error())
	}
	if err := validation.ValidateServiceDescription(in.Description); err != nil {
		return nil, apperror.Validation("description", err.Error())
	}
	if err := validation.ValidateURL("ссылка", in.URL); err != nil {
		return nil, apperror.Validation("url", err.Error())
	}
	if err := validation.ValidateLength("сообщение", in.Message, 0, validation.MaxProposalMessageLength); err != nil {
		return nil, apperror.Validation("message", err.Error())
	}
	// Свободный текст не должен выдавать себя за предложение категории.
	if catproposal.IsCategoryProposal(in.Message) {
		return nil, apperror.Validation("message", "сообщение содержит служебную метку")
	}
	if in.CategoryID == uuid.Nil {
		return nil, apperror.Validation("category_id", "категория обязательна")
	}
	if _, err := s.categories.GetCategoryByID(ctx, in.CategoryID); err != nil {
		if apperror.IsNotFound(translate(err)) {
			return nil, apperror.Validation("category_id", "категория не найдена")
		}
		return nil, translate(err)
	}

	release, err := s.claimSlot(ctx, userID)
	if err != nil {
		return nil, err
	}

	categoryID := in.CategoryID
	svc := &models.Service{
		Title:       in.Title,
		Description: in.Description,
		Link:        in.URL,
		CategoryID:  &categoryID,
		Status:      models.ServiceStatusPending,
		ProposerID:  userID,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.services.Create(ctx, svc); err != nil {
			return err
		}
		serviceID := svc.ID
		return s.proposals.Create(ctx, &models.ServiceProposal{
			ServiceID: &serviceID,
			UserID:    userID,
			Message:   in.Message,
			Status:    models.ProposalStatusPending,
		})
	})
	if err != nil {
		release()
		return nil, translate(err)
	}
	return svc, nil
}

// SubmitCategory сохраняет предложение категории в виде закодированной заявки.
func (s *ProposalService) SubmitCategory(ctx context.Context, userID uuid.UUID, in SubmitCategoryInput) (*ProposalView, error) {
	proposal := catproposal.Proposal{
		Kind:          in.Kind,
		Name:          in.Name,
		Description:   in.Description,
		ParentID:      in.ParentID,
		Justification: in.Justification,
		Link:          in.Link,
	}

	encoded, err := catproposal.Encode(proposal)
	if err != nil {
		return nil, codecError(err)
	}
	decoded, _, err := catproposal.Decode(encoded)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if decoded.Kind == catproposal.KindSubcategory {
		if err := checkParent(ctx, s.categories, *decoded.ParentID, nil); err != nil {
			return nil, err
		}
	}

	release, err := s.claimSlot(ctx, userID)
	if err != nil {
		return nil, err
	}

	record := &models.ServiceProposal{
		UserID:  userID,
		Message: encoded,
		Status:  models.ProposalStatusPending,
	}
	if err := s.proposals.Create(ctx, record); err != nil {
		release()
		return nil, translate(err)
	}
	return &ProposalView{ServiceProposal: *record, Kind: ProposalKindCategory, Category: &decoded}, nil
}

// ListMine возвращает заявки пользователя.
func (s *ProposalService) ListMine(ctx context.Context, userID uuid.UUID) ([]ProposalView, error) {
	proposals, err := s.proposals.ListByUser(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	return describeProposals(ctx, s.services, proposals)
}

// claimSlot занимает слот в лимите заявок до записи в базу.
// release возвращает слот, если заявка так и не сохранилась.
func (s *ProposalService) claimSlot(ctx context.Context, userID uuid.UUID) (release func(), err error) {
	key := proposalLimitKey(userID)
	status, err := s.limiter.Take(ctx, key)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if status.Reached {
		return nil, apperror.RateLimited("превышен лимит заявок, попробуйте позже", status.ResetAt)
	}

	return func() {
		if err := s.limiter.Release(context.WithoutCancel(ctx), key); err != nil {
			logger.Log.WithField("user_id", userID).WithError(err).Warn("не удалось вернуть слот лимита заявок")
		}
	}, nil
}

// codecError переводит ошибки кодека в ошибки валидации.
func codecError(err error) error {
	var invalid *catproposal.InvalidError
	if errors.As(err, &invalid) {
		return apperror.Validation(invalid.Field, invalid.Message)
	}
	var perr *catproposal.ParseError
	if errors.As(err, &perr) {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "предложение категории повреждено")
	}
	return apperror.Internal(err)
}

// checkParent проверяет, что родитель существует и сам является корневой категорией.
func checkParent(ctx context.Context, categories CategoryReader, parentID uuid.UUID, self *uuid.UUID) error {
	if self != nil && *self == parentID {
		return apperror.Validation("parent_id", "категория не может быть родителем самой себе")
	}
	parent, err := categories.GetCategoryByID(ctx, parentID)
	if err != nil {
		if apperror.IsNotFound(translate(err)) {
			return apperror.Validation("parent_id", "родительская категория не найдена")
		}
		return translate(err)
	}
	if !parent.IsRoot() {
		return apperror.Validation("parent_id", "допускается только один уровень вложенности")
	}
	return nil
}

func describeProposals(ctx context.Context, services ServiceRepository, proposals []models.ServiceProposal) ([]ProposalView, error) {
	views := make([]ProposalView, 0, len(proposals))
	for _, p := range proposals {
		view, err := describeProposal(ctx, services, p)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func describeProposal(ctx context.Context, services ServiceRepository, p models.ServiceProposal) (ProposalView, error) {
	view := ProposalView{ServiceProposal: p}

	decoded, ok, err := catproposal.Decode(p.Message)
	switch {
	case err != nil:
		view.Kind = ProposalKindCorrupt
		view.DecodeError = err.Error()
	case ok:
		view.Kind = ProposalKindCategory
		view.Category = &decoded
	default:
		view.Kind = ProposalKindService
		if p.ServiceID != nil {
			svc, err := services.GetByID(ctx, *p.ServiceID)
			if err != nil && !apperror.IsNotFound(translate(err)) {
				return ProposalView{}, translate(err)
			}
			view.Service = svc
		}
	}
	return view, nil
}
