/**
 * @description
 * Email + password accounts and HS256 session tokens.
 *
 * @dependencies
 * - golang.org/x/crypto/bcrypt: password hashing
 * - github.com/golang-jwt/jwt/v5: token signing
 * - github.com/redis/go-redis/v9: revoked token ids after logout
 *
 * @notes
 * - Registration also creates the user's default watchlist, in the same transaction.
 * - Login failures never say whether the email exists.
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluewhale-terminal/backend/internal/config"
	"github.com/bluewhale-terminal/backend/internal/db"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const revokedTokenPrefix = "bluewhale:auth:revoked:"

var (
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// Claims are the session token claims. Subject carries the user id as well.
type Claims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// RegisterInput is a new account
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthResult is a user plus a fresh session token
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type AuthService struct {
	DB        *gorm.DB
	Redis     *redis.Client
	secret    []byte
	expiresIn time.Duration
	cost      int
	now       func() time.Time
}

func NewAuthService(db *gorm.DB, rdb *redis.Client, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		DB:        db,
		Redis:     rdb,
		secret:    []byte(cfg.JWTSecret),
		expiresIn: cfg.JWTExpiresIn,
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
	}
}

// Register creates an account with its default watchlist and signs a token
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         models.RoleUser,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Watchlist{
			UserID:    user.ID,
			Name:      models.DefaultWatchlistName,
			IsDefault: true,
		}).Error
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	logger.Info("[Auth] registered %s", user.ID)
	return &AuthResult{User: user, Token: token}, nil
}

// Login checks credentials, stamps last_login_at and signs a token
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.DB.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		logger.Warn("[Auth] updating last login for %s failed: %v", user.ID, err)
	}
	user.LastLoginAt = &now

	token, err := s.IssueToken(&user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: &user, Token: token}, nil
}

// Profile returns the user
func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// IssueToken signs an HS256 session token for user
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Secret is the HS256 signing key, shared with the auth middleware
func (s *AuthService) Secret() []byte {
	return s.secret
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if s.Redis == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Sub(s.now()); remaining > 0 {
			ttl = remaining
		}
	}
	return s.Redis.Set(ctx, revokedTokenPrefix+claims.ID, 1, ttl).Err()
}

// IsRevoked reports whether a token id was logged out
func (s *AuthService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.Redis == nil || tokenID == "" {
		return false, nil
	}
	n, err := s.Redis.Exists(ctx, revokedTokenPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
