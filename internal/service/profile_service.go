package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/pkg/apperror"
	"github.com/nexus226/backend/internal/validation"
)

type ProfileRepository interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, profile *models.UserProfile) error
}

type BadgeLister interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.UserBadgeView, error)
}

// ProfileView профиль вместе с наградами.
type ProfileView struct {
	*models.UserProfile
	Badges []models.UserBadgeView `json:"badges"`
}

// UpdateProfileInput изменяемые поля профиля. nil означает «не менять», пустая строка очищает поле.
type UpdateProfileInput struct {
	Username    *string
	Title       *string
	Bio         *string
	AvatarURL   *string
	WebsiteURL  *string
	TwitterURL  *string
	GithubURL   *string
	LinkedinURL *string
}

type ProfileService struct {
	profiles ProfileRepository
	badges   BadgeLister
}

func NewProfileService(profiles ProfileRepository, badges BadgeLister) *ProfileService {
	return &ProfileService{profiles: profiles, badges: badges}
}

// GetProfile возвращает публичный профиль с наградами.
func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileView, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	badges, err := s.badges.ListForUser(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	return &ProfileView{UserProfile: profile, Badges: badges}, nil
}

// UpdateProfile правит собственный профиль пользователя.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*models.UserProfile, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, apperror.Validation("username", err.Error())
		}
		profile.Username = username
	}
	if err := validation.ValidateOptionalText("заголовок", in.Title, validation.MaxTitleLength); err != nil {
		return nil, apperror.Validation("title", err.Error())
	}
	if err := validation.ValidateOptionalText("о себе", in.Bio, validation.MaxBioLength); err != nil {
		return nil, apperror.Validation("bio", err.Error())
	}
	applyText(&profile.Title, in.Title)
	applyText(&profile.Bio, in.Bio)

	links := []struct {
		field  string
		target **string
		value  *string
	}{
		{"avatar_url", &profile.AvatarURL, in.AvatarURL},
		{"website_url", &profile.WebsiteURL, in.WebsiteURL},
		{"twitter_url", &profile.TwitterURL, in.TwitterURL},
		{"github_url", &profile.GithubURL, in.GithubURL},
		{"linkedin_url", &profile.LinkedinURL, in.LinkedinURL},
	}
	for _, l := range links {
		if err := validation.ValidateOptionalURL("ссылка", l.value); err != nil {
			return nil, apperror.Validation(l.field, err.Error())
		}
		applyText(l.target, l.value)
	}

	if err := s.profiles.UpdateProfile(ctx, profile); err != nil {
		return nil, translate(err)
	}
	return profile, nil
}

func applyText(target **string, value *string) {
	if value == nil {
		return
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		*target = nil
		return
	}
	*target = &trimmed
}
