/**
 * @description
 * Authentication middleware for bearer JWTs.
 * Tokens issued by this API are HS256. When AUTH_JWKS_URL is set, RS256/ES256 tokens from
 * that issuer are accepted too, verified against its cached key set.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: HTTP Context
 * - github.com/golang-jwt/jwt/v5: JWT parsing
 * - github.com/MicahParks/keyfunc/v2: JWKS fetching and caching
 *
 * @notes
 * - Logged-out token ids are rejected through the Revocations check.
 */

package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	localUserID = "user_id"
	localClaims = "claims"
)

// Revocations reports logged-out token ids
type Revocations interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Auth validates bearer tokens
type Auth struct {
	secret  []byte
	jwks    *keyfunc.JWKS
	revoked Revocations
}

// NewAuth builds the middleware. An empty jwksURL accepts only HS256 tokens.
func NewAuth(secret []byte, jwksURL string, revoked Revocations) (*Auth, error) {
	a := &Auth{secret: secret, revoked: revoked}
	if jwksURL == "" {
		return a, nil
	}

	// Refresh the JWKS every hour.
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval: time.Hour,
		RefreshErrorHandler: func(err error) {
			logger.Error("There was an error with the JWKS refresh: %v", err)
		},
	})
	if err != nil {
		return nil, err
	}
	a.jwks = jwks
	logger.Info("✅ Auth Middleware Initialized with JWKS")
	return a, nil
}

// Close stops the background JWKS refresh
func (a *Auth) Close() {
	if a.jwks != nil {
		a.jwks.EndBackground()
	}
}

func (a *Auth) keyfunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
		return a.secret, nil
	}
	if a.jwks != nil {
		return a.jwks.Keyfunc(token)
	}
	return nil, errors.New("unexpected signing method")
}

// Protected protects routes requiring authentication
func (a *Auth) Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Get Token from Header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Missing authorization header")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			return unauthorized(c, "Invalid token format")
		}

		// 2. Parse and Validate Token
		claims := &services.Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, a.keyfunc,
			jwt.WithValidMethods([]string{"HS256", "RS256", "ES256"}),
			jwt.WithExpirationRequired(),
		)
		if err != nil || !token.Valid {
			return unauthorized(c, "Invalid or expired token")
		}

		// 3. Reject logged-out tokens
		if a.revoked != nil && claims.ID != "" {
			revoked, err := a.revoked.IsRevoked(c.Context(), claims.ID)
			if err != nil {
				logger.Warn("Auth: revocation check failed: %v", err)
			}
			if revoked {
				return unauthorized(c, "Token has been revoked")
			}
		}

		// 4. Extract User ID (userId, else sub)
		raw := claims.UserID
		if raw == "" {
			raw = claims.Subject
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			return unauthorized(c, "Token missing user id")
		}

		// 5. Set User ID in Context
		c.Locals(localUserID, userID)
		c.Locals(localClaims, claims)

		return c.Next()
	}
}

// GetUserID returns the authenticated user's id from context
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := c.Locals(localUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("user id not found in context")
	}
	return id, nil
}

// GetClaims returns the validated token claims from context
func GetClaims(c *fiber.Ctx) *services.Claims {
	claims, _ := c.Locals(localClaims).(*services.Claims)
	return claims
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": msg})
}
