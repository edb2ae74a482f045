package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
	"github.com/noah-isme/peerval-go-api/internal/repository"
)

func setupAuthService(t *testing.T) (*gorm.DB, AuthService) {
	t.Helper()

	dsn := fmt.Sprintf("file:auth_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	users := repository.NewUserRepository(db)
	validate := validator.New(validator.WithRequiredStructEnabled())

	service := NewAuthService(users, validate, AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}, testLogger())
	return db, service
}

func TestAuthServiceRegisterCreatesStudent(t *testing.T) {
	db, service := setupAuthService(t)

	response, err := service.Register(context.Background(), dto.RegisterRequest{
		Name:     " Ada Lovelace ",
		Email:    " Ada@Example.COM ",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", response.User.Name)
	require.Equal(t, "ada@example.com", response.User.Email)
	require.Equal(t, models.RoleStudent, response.User.Role)
	require.NotEmpty(t, response.Token)

	parsed, err := jwt.Parse(response.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	require.Equal(t, models.RoleStudent, claims["role"])
	require.Equal(t, float64(response.User.ID), claims["sub"])

	var stored models.User
	require.NoError(t, db.First(&stored, response.User.ID).Error)
	require.NotEqual(t, "correct-horse", stored.PasswordHash)
}

func TestAuthServiceRegisterRejectsDuplicateEmail(t *testing.T) {
	_, service := setupAuthService(t)

	payload := dto.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "correct-horse"}
	_, err := service.Register(context.Background(), payload)
	require.NoError(t, err)

	payload.Name = "Another Ada"
	payload.Email = "ADA@example.com"
	_, err = service.Register(context.Background(), payload)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthServiceLogin(t *testing.T) {
	_, service := setupAuthService(t)

	_, err := service.Register(context.Background(), dto.RegisterRequest{
		Name:     "Grace",
		Email:    "grace@example.com",
		Password: "battleship",
	})
	require.NoError(t, err)

	response, err := service.Login(context.Background(), dto.LoginRequest{
		Email:    "GRACE@example.com",
		Password: "battleship",
	})
	require.NoError(t, err)
	require.NotEmpty(t, response.Token)
	require.Equal(t, "grace@example.com", response.User.Email)

	_, err = service.Login(context.Background(), dto.LoginRequest{
		Email:    "grace@example.com",
		Password: "destroyer",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(context.Background(), dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "battleship",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthServiceEnsureAdmin(t *testing.T) {
	db, service := setupAuthService(t)

	require.NoError(t, service.EnsureAdmin(context.Background(), "Root", "admin@example.com", "admin-password"))
	require.NoError(t, service.EnsureAdmin(context.Background(), "Root", "admin@example.com", "admin-password"))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "admin@example.com").Count(&count).Error)
	require.EqualValues(t, 1, count)

	response, err := service.Login(context.Background(), dto.LoginRequest{
		Email:    "admin@example.com",
		Password: "admin-password",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, response.User.Role)
}

func TestAuthServiceEnsureAdminSkipsWhenUnconfigured(t *testing.T) {
	db, service := setupAuthService(t)

	require.NoError(t, service.EnsureAdmin(context.Background(), "Root", "", ""))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.Zero(t, count)
}
