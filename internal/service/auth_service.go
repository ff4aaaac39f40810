package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-assessment/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoLoginSession     = errors.New("no active login session")
	ErrSessionReplaced    = errors.New("login session was replaced by a newer login")
)

// TokenType distinguishes student vs admin tokens.
type TokenType string

const (
	TokenTypeStudent TokenType = "student"
	TokenTypeAdmin   TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   TokenType `json:"token_type"`
	UserID      int       `json:"user_id"`
	ExamID      string    `json:"exam_id,omitempty"`     // Student only
	Permissions []string  `json:"permissions,omitempty"` // Admin only
}

// StudentExamID returns the exam a student token is bound to.
func (c *Claims) StudentExamID() (uuid.UUID, error) {
	return uuid.Parse(c.ExamID)
}

// AuthService handles password hashing, JWTs and the single-device login session.
type AuthService struct {
	cfg *config.Config
	rdb *redis.Client
	now func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, now: time.Now}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateStudentToken creates a JWT for a student bound to their exam and
// registers it as the student's only login session. A previous login from
// another device stops validating, so a student whose browser crashed can log
// back in and resume.
func (s *AuthService) GenerateStudentToken(ctx context.Context, studentID int, examID uuid.UUID) (string, error) {
	claims := s.newClaims(TokenTypeStudent, studentID)
	claims.ExamID = examID.String()

	signed, err := s.sign(claims)
	if err != nil {
		return "", err
	}

	// The login session lives exactly as long as the token.
	if err := s.rdb.Set(ctx, config.CacheKey.StudentSessionKey(studentID), claims.ID, s.cfg.JWTExpiry).Err(); err != nil {
		return "", fmt.Errorf("store login session: %w", err)
	}
	return signed, nil
}

// GenerateAdminToken creates a JWT for an admin with permissions embedded.
func (s *AuthService) GenerateAdminToken(adminID int, permissions []string) (string, error) {
	claims := s.newClaims(TokenTypeAdmin, adminID)
	claims.Permissions = permissions
	return s.sign(claims)
}

func (s *AuthService) newClaims(kind TokenType, userID int) *Claims {
	now := s.now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: kind,
		UserID:    userID,
	}
}

func (s *AuthService) sign(claims *Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", claims.TokenType, err)
	}
	return signed, nil
}

// ValidateToken parses an HS256 token and returns its claims. Expiry is
// checked against the service clock.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(s.cfg.JWTSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.TokenType != TokenTypeStudent && claims.TokenType != TokenTypeAdmin {
		return nil, fmt.Errorf("parse token: unknown token type %q", claims.TokenType)
	}
	return claims, nil
}

// ValidateStudentSession reports whether jti is still the student's current login.
func (s *AuthService) ValidateStudentSession(ctx context.Context, studentID int, jti string) error {
	current, err := s.rdb.Get(ctx, config.CacheKey.StudentSessionKey(studentID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrNoLoginSession
	case err != nil:
		return fmt.Errorf("read login session: %w", err)
	case current != jti:
		return ErrSessionReplaced
	}
	return nil
}

// ResetStudentSession logs the student out everywhere. An admin uses it to
// unlock a student stuck on a lost device.
func (s *AuthService) ResetStudentSession(ctx context.Context, studentID int) error {
	return s.rdb.Del(ctx, config.CacheKey.StudentSessionKey(studentID)).Err()
}
