package handler

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"mgm-billing/internal/database/models"
	"mgm-billing/internal/services/billing"
	sysutils "mgm-billing/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type CreateUserInput struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type UserResponse struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	IsActive    bool       `json:"is_active"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

func userToResponse(user models.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		IsActive:    user.IsActive,
		LastLogin:   user.LastLogin,
	}
}

type UserHandler struct {
	db  *gorm.DB
	jwt *sysutils.JWTManager
}

func NewUserHandler(db *gorm.DB, jwt *sysutils.JWTManager) *UserHandler {
	return &UserHandler{
		db:  db,
		jwt: jwt,
	}
}

func (s *UserHandler) CreateUser(ctx context.Context, input CreateUserInput) (*UserResponse, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, &billing.ValidationError{Message: "username and password are required"}
	}
	if len(input.Password) < 8 {
		return nil, &billing.ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}

	var existingUser models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&existingUser).Error; err == nil {
		return nil, &billing.ConflictError{Message: "username already exists"}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &billing.PersistenceError{Op: "check existing user", Err: err}
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &billing.PersistenceError{Op: "hash password", Err: err}
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}
	newUser := models.User{
		Username:    username,
		Password:    string(pwHash),
		DisplayName: displayName,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(&newUser).Error; err != nil {
		return nil, &billing.PersistenceError{Op: "create user", Err: err}
	}

	resp := userToResponse(newUser)
	return &resp, nil
}

func (s *UserHandler) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, &billing.ValidationError{Message: "username and password are required"}
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ? AND is_active = ?", strings.TrimSpace(username), true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, &billing.PersistenceError{Op: "load user", Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.jwt.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, &billing.PersistenceError{Op: "generate token", Err: err}
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		log.Printf("Failed to record login for %s: %v", user.Username, err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: exp,
		User:      userToResponse(user),
	}, nil
}

// EnsureAdmin creates the initial operator account when it does not exist yet.
func (s *UserHandler) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		log.Println("ADMIN_USERNAME or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if _, err := s.CreateUser(ctx, CreateUserInput{Username: username, Password: password, DisplayName: "Administrator"}); err != nil {
		return err
	}
	log.Printf("Seeded admin user %s", username)
	return nil
}
