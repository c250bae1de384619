package services

import (
	"context"
	"testing"
	"time"

	"github.com/bluewhale-terminal/backend/internal/config"
	"github.com/bluewhale-terminal/backend/internal/db/dbtest"
	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T) (*AuthService, func()) {
	t.Helper()
	gdb := dbtest.Open(t)
	mr, rdb := newRedis(t)
	svc := NewAuthService(gdb, rdb, config.AuthConfig{JWTSecret: "test-secret", JWTExpiresIn: time.Hour})
	svc.cost = bcrypt.MinCost
	return svc, func() { mr.FastForward(2 * time.Hour) }
}

func TestRegisterCreatesUserAndDefaultWatchlist(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Email: " Thandi@Example.com ", Password: "s3cret-pass", FirstName: "Thandi"})
	require.NoError(t, err)
	assert.Equal(t, "thandi@example.com", res.User.Email)
	assert.NotEqual(t, "s3cret-pass", res.User.PasswordHash)
	assert.NotEmpty(t, res.Token)

	var lists []models.Watchlist
	require.NoError(t, svc.DB.Where("user_id = ?", res.User.ID).Find(&lists).Error)
	require.Len(t, lists, 1)
	assert.True(t, lists[0].IsDefault)
	assert.Equal(t, models.DefaultWatchlistName, lists[0].Name)

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (interface{}, error) { return svc.Secret(), nil })
	require.NoError(t, err)
	assert.Equal(t, res.User.ID.String(), claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Email: "A@example.com", Password: "password2"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "b@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "b@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := svc.Login(ctx, "B@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, res.User.LastLoginAt)

	stored, err := svc.Profile(ctx, res.User.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLogoutRevokesUntilExpiry(t *testing.T) {
	svc, expire := newTestAuth(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Email: "c@example.com", Password: "password"})
	require.NoError(t, err)

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (interface{}, error) { return svc.Secret(), nil })
	require.NoError(t, err)

	revoked, err := svc.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, svc.Logout(ctx, claims))
	revoked, err = svc.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	expire()
	revoked, err = svc.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, revoked, "revocation lapses with the token")
}
