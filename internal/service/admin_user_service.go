package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
	"github.com/noah-isme/peerval-go-api/internal/repository"
)

// ErrUserNotFound signals a lookup for an account that does not exist.
var ErrUserNotFound = errors.New("user not found")

// AdminUserService manages platform accounts on behalf of administrators.
type AdminUserService interface {
	List(ctx context.Context, req dto.UserListRequest) ([]dto.UserResponse, dto.PaginationMeta, error)
	Create(ctx context.Context, payload dto.UserCreateRequest, actor ActivityActor) (dto.UserResponse, error)
	Get(ctx context.Context, id uint) (dto.UserResponse, error)
	Update(ctx context.Context, id uint, payload dto.UserUpdateRequest, actor ActivityActor) (dto.UserResponse, error)
	UpdateRole(ctx context.Context, id uint, payload dto.RoleUpdateRequest, actor ActivityActor) (dto.UserResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
}

type adminUserService struct {
	users     repository.UserRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewAdminUserService constructs the admin user service.
func NewAdminUserService(users repository.UserRepository, validator *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AdminUserService {
	return &adminUserService{
		users:     users,
		validator: validator,
		activity:  activity,
		logger:    logger.With().Str("component", "admin_user_service").Logger(),
	}
}

func (s *adminUserService) List(ctx context.Context, req dto.UserListRequest) ([]dto.UserResponse, dto.PaginationMeta, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, dto.PaginationMeta{}, err
	}

	filter := repository.UserFilter{
		Search:   strings.TrimSpace(req.Search),
		Role:     req.Role,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, dto.PaginationMeta{}, err
	}

	meta := dto.NewPaginationMeta(filter.Page, filter.PageSize, total)
	return dto.NewUserResponseSlice(users), meta, nil
}

func (s *adminUserService) Create(ctx context.Context, payload dto.UserCreateRequest, actor ActivityActor) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	email := normalizeEmail(payload.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.UserResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user := models.User{
		Name:         strings.TrimSpace(payload.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         payload.Role,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.recordActivity(ctx, actor, "user.created", user.ID, map[string]interface{}{"role": user.Role})
	return dto.NewUserResponse(user), nil
}

func (s *adminUserService) Get(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *adminUserService) Update(ctx context.Context, id uint, payload dto.UserUpdateRequest, actor ActivityActor) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	updates := map[string]interface{}{}
	changed := make([]string, 0, 2)
	if payload.Name != nil {
		updates["name"] = strings.TrimSpace(*payload.Name)
		changed = append(changed, "name")
	}
	if payload.Email != nil {
		email := normalizeEmail(*payload.Email)
		existing, err := s.users.GetByEmail(ctx, email)
		if err == nil && existing.ID != id {
			return dto.UserResponse{}, ErrEmailTaken
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, err
		}
		updates["email"] = email
		changed = append(changed, "email")
	}

	user, err := s.users.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	if len(changed) > 0 {
		s.recordActivity(ctx, actor, "user.updated", user.ID, map[string]interface{}{"fields": changed})
	}

	refreshed, err := s.users.GetByID(ctx, id)
	if err != nil {
		return dto.NewUserResponse(user), nil
	}

	return dto.NewUserResponse(refreshed), nil
}

func (s *adminUserService) UpdateRole(ctx context.Context, id uint, payload dto.RoleUpdateRequest, actor ActivityActor) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	if user.Role == payload.Role {
		return dto.NewUserResponse(user), nil
	}

	previous := user.Role
	updated, err := s.users.Update(ctx, id, map[string]interface{}{"role": payload.Role})
	if err != nil {
		return dto.UserResponse{}, err
	}
	updated.Role = payload.Role

	s.recordActivity(ctx, actor, "user.role_changed", id, map[string]interface{}{
		"from": previous,
		"to":   payload.Role,
	})

	return dto.NewUserResponse(updated), nil
}

func (s *adminUserService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.recordActivity(ctx, actor, "user.deleted", id, nil)
	return nil
}

func (s *adminUserService) recordActivity(ctx context.Context, actor ActivityActor, action string, entityID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	id := entityID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "user",
		EntityID:   &id,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("activity record failed")
	}
}
