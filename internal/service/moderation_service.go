package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/nexus226/backend/internal/catproposal"
	"github.com/nexus226/backend/internal/logger"
	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/pkg/apperror"
	"github.com/nexus226/backend/internal/validation"
)

type CategoryRepository interface {
	CategoryReader
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetBySourceProposal(ctx context.Context, proposalID uuid.UUID) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) (bool, error)
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CountChildren(ctx context.Context, id uuid.UUID) (int, error)
}

type AdminLogRepository interface {
	Append(ctx context.Context, entry *models.AdminLog) error
	List(ctx context.Context, limit, offset int) ([]models.AdminLog, error)
}

type RoleWriter interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
	SetRole(ctx context.Context, id uuid.UUID, role string) error
}

// Типы заявок в запросе на правку
const (
	ProposalTypeService  = "service"
	ProposalTypeCategory = "category"
)

// ProposalPatch правка заявки администратором.
type ProposalPatch struct {
	ProposalType string
	Service      ServicePatch
	Category     catproposal.Patch
}

// ServicePatch изменяемые поля сервиса. nil означает «не менять».
type ServicePatch struct {
	Title       *string
	Description *string
	Link        *string
	ImageURL    *string
	CategoryID  *uuid.UUID
	Price       *float64
	Status      *string
}

// CategoryInput поля категории при создании и правке.
type CategoryInput struct {
	Name               *string
	Description        *string
	ParentID           *uuid.UUID
	ClearParent        bool
	DisplayOrder       *int
	BackgroundImageURL *string
	ShowInNav          *bool
}

// ModerationService действия администратора над заявками, сервисами и категориями.
type ModerationService struct {
	tx         Transactor
	proposals  ProposalRepository
	services   ServiceRepository
	categories CategoryRepository
	users      RoleWriter
	logs       AdminLogRepository
	cache      *CacheService
}

func NewModerationService(
	tx Transactor,
	proposals ProposalRepository,
	services ServiceRepository,
	categories CategoryRepository,
	users RoleWriter,
	logs AdminLogRepository,
	cache *CacheService,
) *ModerationService {
	return &ModerationService{
		tx:         tx,
		proposals:  proposals,
		services:   services,
		categories: categories,
		users:      users,
		logs:       logs,
		cache:      cache,
	}
}

// ListProposals возвращает заявки с разобранным содержимым.
func (s *ModerationService) ListProposals(ctx context.Context, _ AuthorizedAdmin, status string, limit, offset int) ([]ProposalView, error) {
	if status != "" {
		if _, ok := models.ValidProposalStatuses[status]; !ok {
			return nil, apperror.Validation("status", "неизвестный статус заявки")
		}
	}
	proposals, err := s.proposals.List(ctx, status, limit, offset)
	if err != nil {
		return nil, translate(err)
	}
	return describeProposals(ctx, s.services, proposals)
}

// UpdateProposal правит ожидающую заявку: поля сервиса или закодированное предложение категории.
func (s *ModerationService) UpdateProposal(ctx context.Context, admin AuthorizedAdmin, id uuid.UUID, patch ProposalPatch) (*ProposalView, error) {
	var view ProposalView

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		proposal, err := s.proposals.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if proposal.Status != models.ProposalStatusPending {
			return apperror.Validation("status", "править можно только ожидающие заявки")
		}

		switch patch.ProposalType {
		case ProposalTypeService:
			if proposal.ServiceID == nil {
				return apperror.Validation("proposalType", "заявка не относится к сервису")
			}
			svc, err := s.services.GetByID(ctx, *proposal.ServiceID)
			if err != nil {
				return err
			}
			if patch.Service.Status != nil {
				return apperror.Validation("status", "статус меняется через публикацию сервиса")
			}
			if err := applyServicePatch(svc, patch.Service); err != nil {
				return err
			}
			if patch.Service.CategoryID != nil {
				if _, err := s.categories.GetCategoryByID(ctx, *patch.Service.CategoryID); err != nil {
					return err
				}
			}
			if err := s.services.Update(ctx, svc); err != nil {
				return err
			}
			view = ProposalView{ServiceProposal: *proposal, Kind: ProposalKindService, Service: svc}

		case ProposalTypeCategory:
			encoded, decoded, err := catproposal.Update(proposal.Message, patch.Category)
			if err != nil {
				return codecError(err)
			}
			if decoded.Kind == catproposal.KindSubcategory {
				if err := checkParent(ctx, s.categories, *decoded.ParentID, nil); err != nil {
					return err
				}
			}
			if err := s.proposals.UpdateMessage(ctx, proposal.ID, encoded); err != nil {
				return err
			}
			proposal.Message = encoded
			view = ProposalView{ServiceProposal: *proposal, Kind: ProposalKindCategory, Category: &decoded}

		default:
			return apperror.Validation("proposalType", "допустимые значения: service, category")
		}

		return s.audit(ctx, admin, models.AdminActionUpdateProposal, "proposal", &id, map[string]any{
			"proposal_type": patch.ProposalType,
		})
	})
	if err != nil {
		return nil, translate(err)
	}
	return &view, nil
}

// ValidateCategoryProposal создаёт категорию из заявки и помечает заявку принятой.
// Повторный вызов возвращает уже созданную категорию и created=false.
func (s *ModerationService) ValidateCategoryProposal(ctx context.Context, admin AuthorizedAdmin, id uuid.UUID) (*models.Category, bool, error) {
	var (
		category *models.Category
		created  bool
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		proposal, err := s.proposals.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if proposal.Status == models.ProposalStatusRejected {
			return apperror.Validation("status", "заявка отклонена")
		}

		decoded, ok, err := catproposal.Decode(proposal.Message)
		if err != nil {
			return codecError(err)
		}
		if !ok {
			return apperror.Validation("id", "заявка не является предложением категории")
		}

		if decoded.Kind == catproposal.KindSubcategory {
			if err := checkParent(ctx, s.categories, *decoded.ParentID, nil); err != nil {
				return err
			}
		}

		candidate := &models.Category{
			Name:             decoded.Name,
			ParentID:         decoded.ParentID,
			ShowInNav:        true,
			SourceProposalID: &proposal.ID,
		}
		if decoded.Description != "" {
			desc := decoded.Description
			candidate.Description = &desc
		}

		created, err = s.categories.CreateCategory(ctx, candidate)
		if err != nil {
			return err
		}
		category = candidate

		if proposal.Status != models.ProposalStatusAccepted {
			if err := s.proposals.SetStatus(ctx, proposal.ID, models.ProposalStatusAccepted); err != nil {
				return err
			}
		}
		if !created {
			return nil
		}
		return s.audit(ctx, admin, models.AdminActionValidateCategory, "category", &category.ID, map[string]any{
			"proposal_id": proposal.ID,
			"proposer_id": proposal.UserID,
			"type":        decoded.Kind,
		})
	})
	if err != nil {
		return nil, false, translate(err)
	}

	if created {
		s.cache.InvalidateCategories()
	}
	return category, created, nil
}

// RejectProposal отклоняет и удаляет заявку.
// Для заявки на сервис удаляется и ещё не опубликованный сервис.
func (s *ModerationService) RejectProposal(ctx context.Context, admin AuthorizedAdmin, id uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		proposal, err := s.proposals.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if proposal.Status == models.ProposalStatusAccepted {
			return apperror.Validation("status", "заявка уже принята")
		}

		details := map[string]any{"proposer_id": proposal.UserID}
		deleted := false
		if proposal.ServiceID != nil {
			svc, err := s.services.GetByID(ctx, *proposal.ServiceID)
			if err != nil && !apperror.IsNotFound(translate(err)) {
				return err
			}
			if svc != nil && svc.Status == models.ServiceStatusPending {
				if err := s.services.Delete(ctx, svc.ID); err != nil {
					return err
				}
				details["service_id"] = svc.ID
				deleted = true
			}
		}
		if !deleted {
			if err := s.proposals.Delete(ctx, proposal.ID); err != nil {
				return err
			}
		}

		return s.audit(ctx, admin, models.AdminActionRejectProposal, "proposal", &id, details)
	})
	return translate(err)
}

// UpdateService правит или публикует сервис.
// Публикация (переход в active) делает администратора владельцем и принимает заявки сервиса.
func (s *ModerationService) UpdateService(ctx context.Context, admin AuthorizedAdmin, id uuid.UUID, patch ServicePatch) (*models.Service, error) {
	var svc *models.Service

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.services.GetByID(ctx, id)
		if err != nil {
			return err
		}
		previousStatus := current.Status

		if err := applyServicePatch(current, patch); err != nil {
			return err
		}
		if patch.CategoryID != nil {
			if _, err := s.categories.GetCategoryByID(ctx, *patch.CategoryID); err != nil {
				return err
			}
		}
		if err := checkServiceTransition(previousStatus, current.Status); err != nil {
			return err
		}

		published := previousStatus != models.ServiceStatusActive && current.Status == models.ServiceStatusActive
		if published {
			owner := admin.UserID()
			current.UserID = &owner
		}

		if err := s.services.Update(ctx, current); err != nil {
			return err
		}
		svc = current

		if published {
			if err := s.proposals.AcceptForService(ctx, current.ID); err != nil {
				return err
			}
			return s.audit(ctx, admin, models.AdminActionValidateService, "service", &current.ID, map[string]any{
				"proposer_id":     current.ProposerID,
				"previous_status": previousStatus,
			})
		}
		return s.audit(ctx, admin, models.AdminActionUpdateService, "service", &current.ID, map[string]any{
			"status": current.Status,
		})
	})
	if err != nil {
		return nil, translate(err)
	}
	return svc, nil
}

// DeleteService удаляет сервис вместе с его заявками.
func (s *ModerationService) DeleteService(ctx context.Context, admin AuthorizedAdmin, id uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		svc, err := s.services.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.services.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, admin, models.AdminActionDeleteService, "service", &id, map[string]any{
			"title":       svc.Title,
			"proposer_id": svc.ProposerID,
		})
	})
	return translate(err)
}

// CreateCategory создаёт категорию напрямую.
func (s *ModerationService) CreateCategory(ctx context.Context, admin AuthorizedAdmin, in CategoryInput) (*models.Category, error) {
	if in.Name == nil {
		return nil, apperror.Validation("name", "название категории обязательно")
	}
	category := &models.Category{ShowInNav: true}
	if err := applyCategoryInput(category, in); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if category.ParentID != nil {
			if err := checkParent(ctx, s.categories, *category.ParentID, nil); err != nil {
				return err
			}
		}
		if _, err := s.categories.CreateCategory(ctx, category); err != nil {
			return err
		}
		return s.audit(ctx, admin, models.AdminActionCreateCategory, "category", &category.ID, map[string]any{
			"name": category.Name,
		})
	})
	if err != nil {
		return nil, translate(err)
	}

	s.cache.InvalidateCategories()
	return category, nil
}

// UpdateCategory правит категорию, сохраняя один уровень вложенности.
func (s *ModerationService) UpdateCategory(ctx context.Context, admin AuthorizedAdmin, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	var category *models.Category

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.categories.GetCategoryByID(ctx, id)
		if err != nil {
			return err
		}
		if err := applyCategoryInput(current, in); err != nil {
			return err
		}
		if current.ParentID != nil {
			if err := checkParent(ctx, s.categories, *current.ParentID, &current.ID); err != nil {
				return err
			}
			children, err := s.categories.CountChildren(ctx, current.ID)
			if err != nil {
				return err
			}
			if children > 0 {
				return apperror.Validation("parent_id", "категория с подкатегориями не может стать подкатегорией")
			}
		}
		if err := s.categories.UpdateCategory(ctx, current); err != nil {
			return err
		}
		category = current
		return s.audit(ctx, admin, models.AdminActionUpdateCategory, "category", &id, nil)
	})
	if err != nil {
		return nil, translate(err)
	}

	s.cache.InvalidateCategories()
	return category, nil
}

// DeleteCategory удаляет категорию без подкатегорий.
func (s *ModerationService) DeleteCategory(ctx context.Context, admin AuthorizedAdmin, id uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		category, err := s.categories.GetCategoryByID(ctx, id)
		if err != nil {
			return err
		}
		children, err := s.categories.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return apperror.Validation("id", "сначала удалите подкатегории")
		}
		if err := s.categories.DeleteCategory(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, admin, models.AdminActionDeleteCategory, "category", &id, map[string]any{
			"name": category.Name,
		})
	})
	if err != nil {
		return translate(err)
	}

	s.cache.InvalidateCategories()
	return nil
}

// SetUserRole меняет роль пользователя.
func (s *ModerationService) SetUserRole(ctx context.Context, admin AuthorizedAdmin, userID uuid.UUID, role string) (*models.UserProfile, error) {
	if _, ok := models.ValidRoles[role]; !ok {
		return nil, apperror.Validation("role", "допустимые значения: user, admin, banned")
	}
	if userID == admin.UserID() && role != models.RoleAdmin {
		return nil, apperror.Validation("role", "нельзя снять права администратора с самого себя")
	}

	var profile *models.UserProfile
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.users.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		previous := current.Role
		if err := s.users.SetRole(ctx, userID, role); err != nil {
			return err
		}
		current.Role = role
		profile = current
		return s.audit(ctx, admin, models.AdminActionChangeRole, "user", &userID, map[string]any{
			"from": previous,
			"to":   role,
		})
	})
	if err != nil {
		return nil, translate(err)
	}
	return profile, nil
}

// ListLogs возвращает журнал действий администраторов.
func (s *ModerationService) ListLogs(ctx context.Context, _ AuthorizedAdmin, limit, offset int) ([]models.AdminLog, error) {
	logs, err := s.logs.List(ctx, limit, offset)
	if err != nil {
		return nil, translate(err)
	}
	return logs, nil
}

func (s *ModerationService) audit(ctx context.Context, admin AuthorizedAdmin, action, targetType string, targetID *uuid.UUID, details map[string]any) error {
	return recordAdminAction(ctx, s.logs, admin, action, targetType, targetID, details)
}

// recordAdminAction пишет запись в журнал администратора в текущей транзакции.
func recordAdminAction(ctx context.Context, logs AdminLogRepository, admin AuthorizedAdmin, action, targetType string, targetID *uuid.UUID, details map[string]any) error {
	entry := &models.AdminLog{
		AdminID:    admin.UserID(),
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		entry.Details = raw
	}
	if err := logs.Append(ctx, entry); err != nil {
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"admin_id": entry.AdminID,
		"action":   action,
		"target":   targetID,
	}).Info("действие администратора")
	return nil
}

func applyServicePatch(svc *models.Service, patch ServicePatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if err := validation.ValidateServiceTitle(title); err != nil {
			return apperror.Validation("title", err.Error())
		}
		svc.Title = title
	}
	if patch.Description != nil {
		desc := strings.TrimSpace(*patch.Description)
		if err := validation.ValidateServiceDescription(desc); err != nil {
			return apperror.Validation("description", err.Error())
		}
		svc.Description = desc
	}
	if patch.Link != nil {
		link := strings.TrimSpace(*patch.Link)
		if err := validation.ValidateURL("ссылка", link); err != nil {
			return apperror.Validation("link", err.Error())
		}
		svc.Link = link
	}
	if patch.ImageURL != nil {
		if strings.TrimSpace(*patch.ImageURL) == "" {
			svc.ImageURL = nil
		} else {
			if err := validation.ValidateURL("изображение", *patch.ImageURL); err != nil {
				return apperror.Validation("image_url", err.Error())
			}
			img := strings.TrimSpace(*patch.ImageURL)
			svc.ImageURL = &img
		}
	}
	if patch.CategoryID != nil {
		categoryID := *patch.CategoryID
		svc.CategoryID = &categoryID
	}
	if patch.Price != nil {
		if err := validation.ValidatePrice(patch.Price); err != nil {
			return apperror.Validation("price", err.Error())
		}
		price := *patch.Price
		svc.Price = &price
	}
	if patch.Status != nil {
		if _, ok := models.ValidServiceStatuses[*patch.Status]; !ok {
			return apperror.Validation("status", "допустимые значения: pending, active, inactive")
		}
		svc.Status = *patch.Status
	}
	return nil
}

// checkServiceTransition запрещает возврат сервиса в pending.
func checkServiceTransition(from, to string) error {
	if from == to {
		return nil
	}
	if to == models.ServiceStatusPending {
		return apperror.Validation("status", "сервис нельзя вернуть на модерацию")
	}
	return nil
}

func applyCategoryInput(category *models.Category, in CategoryInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateCategoryName(name); err != nil {
			return apperror.Validation("name", err.Error())
		}
		category.Name = name
	}
	if in.Description != nil {
		if err := validation.ValidateOptionalText("описание", in.Description, validation.MaxCategoryDescriptionLength); err != nil {
			return apperror.Validation("description", err.Error())
		}
		desc := strings.TrimSpace(*in.Description)
		if desc == "" {
			category.Description = nil
		} else {
			category.Description = &desc
		}
	}
	if in.ClearParent {
		category.ParentID = nil
	} else if in.ParentID != nil {
		parent := *in.ParentID
		category.ParentID = &parent
	}
	if in.DisplayOrder != nil {
		category.DisplayOrder = *in.DisplayOrder
	}
	if in.BackgroundImageURL != nil {
		if strings.TrimSpace(*in.BackgroundImageURL) == "" {
			category.BackgroundImageURL = nil
		} else {
			if err := validation.ValidateURL("фон", *in.BackgroundImageURL); err != nil {
				return apperror.Validation("background_image_url", err.Error())
			}
			bg := strings.TrimSpace(*in.BackgroundImageURL)
			category.BackgroundImageURL = &bg
		}
	}
	if in.ShowInNav != nil {
		category.ShowInNav = *in.ShowInNav
	}
	return nil
}
