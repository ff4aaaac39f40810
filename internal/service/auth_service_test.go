package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func newTestAuth(t *testing.T) (*AuthService, *miniredis.Miniredis) {
	t.Helper()
	mr, rdb := newTestRedis(t)
	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	return NewAuthService(cfg, rdb), mr
}

func TestStudentTokenRoundTrip(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()
	examID := uuid.New()

	token, err := auth.GenerateStudentToken(ctx, 42, examID)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeStudent, claims.TokenType)
	assert.Equal(t, 42, claims.UserID)

	got, err := claims.StudentExamID()
	require.NoError(t, err)
	assert.Equal(t, examID, got)

	assert.NoError(t, auth.ValidateStudentSession(ctx, 42, claims.ID))
}

func TestLatestStudentLoginWins(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()
	examID := uuid.New()

	oldToken, err := auth.GenerateStudentToken(ctx, 42, examID)
	require.NoError(t, err)
	newToken, err := auth.GenerateStudentToken(ctx, 42, examID)
	require.NoError(t, err)

	oldClaims, err := auth.ValidateToken(oldToken)
	require.NoError(t, err)
	newClaims, err := auth.ValidateToken(newToken)
	require.NoError(t, err)

	assert.ErrorIs(t, auth.ValidateStudentSession(ctx, 42, oldClaims.ID), ErrSessionReplaced)
	assert.NoError(t, auth.ValidateStudentSession(ctx, 42, newClaims.ID))
}

func TestStudentLoginSessionLifetime(t *testing.T) {
	auth, mr := newTestAuth(t)
	ctx := context.Background()

	token, err := auth.GenerateStudentToken(ctx, 42, uuid.New())
	require.NoError(t, err)
	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)

	key := config.CacheKey.StudentSessionKey(42)
	assert.Equal(t, time.Hour, mr.TTL(key))

	require.NoError(t, auth.ResetStudentSession(ctx, 42))
	assert.ErrorIs(t, auth.ValidateStudentSession(ctx, 42, claims.ID), ErrNoLoginSession)
}

func TestAdminTokenCarriesPermissions(t *testing.T) {
	auth, _ := newTestAuth(t)

	token, err := auth.GenerateAdminToken(3, []string{"results:read"})
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAdmin, claims.TokenType)
	assert.Equal(t, []string{"results:read"}, claims.Permissions)
	assert.Empty(t, claims.ExamID)
}

func TestValidateTokenRejects(t *testing.T) {
	auth, _ := newTestAuth(t)

	t.Run("garbage", func(t *testing.T) {
		_, err := auth.ValidateToken("not-a-token")
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour}, nil)
		token, err := other.GenerateAdminToken(1, nil)
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := auth.GenerateAdminToken(1, nil)
		auth.now = time.Now
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("other algorithm", func(t *testing.T) {
		claims := auth.newClaims(TokenTypeAdmin, 1)
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("unknown token type", func(t *testing.T) {
		token, err := auth.sign(auth.newClaims("guest", 1))
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.Error(t, err)
	})
}

func TestPasswordHashing(t *testing.T) {
	auth, _ := newTestAuth(t)

	hash, err := auth.HashPassword("rahasia")
	require.NoError(t, err)
	assert.NoError(t, auth.CheckPassword(hash, "rahasia"))
	assert.ErrorIs(t, auth.CheckPassword(hash, "salah"), ErrInvalidCredentials)
}
