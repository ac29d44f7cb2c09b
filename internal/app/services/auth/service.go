// Package auth issues tokens and manages login via password, OTP and OAuth.
package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	authdomain "github.com/grihome/grihome/internal/app/domain/auth"
	"github.com/grihome/grihome/internal/app/domain/user"
	"github.com/grihome/grihome/internal/app/storage"
	apperrors "github.com/grihome/grihome/internal/errors"
	"github.com/grihome/grihome/pkg/logger"
)

const minPasswordLen = 8

// Service handles credentials, tokens and sessions.
type Service struct {
	users    storage.UserStore
	sessions storage.SessionStore
	otps     OTPStore
	sender   Sender
	oauth    map[string]OAuthProvider

	jwtSecret []byte
	tokenTTL  time.Duration
	otpTTL    time.Duration
	otpMax    int

	log *logger.Logger
	now func() time.Time
}

// Config wires the auth service.
type Config struct {
	Users     storage.UserStore
	Sessions  storage.SessionStore
	OTPs      OTPStore
	Sender    Sender
	OAuth     map[string]OAuthProvider
	JWTSecret string
	TokenTTL  time.Duration
	OTPTTL    time.Duration
	OTPMax    int
	Logger    *logger.Logger
}

// New constructs the auth service.
func New(cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	if cfg.OTPMax <= 0 {
		cfg.OTPMax = 3
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Service{
		users:     cfg.Users,
		sessions:  cfg.Sessions,
		otps:      cfg.OTPs,
		sender:    cfg.Sender,
		oauth:     cfg.OAuth,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  cfg.TokenTTL,
		otpTTL:    cfg.OTPTTL,
		otpMax:    cfg.OTPMax,
		log:       log,
		now:       time.Now,
	}, nil
}

// HashPassword bcrypt-hashes a password after basic strength checks.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Token is an issued credential with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// LoginPassword verifies credentials and issues a token. Identifier may be
// an email or a username.
func (s *Service) LoginPassword(ctx context.Context, identifier, password string) (user.User, Token, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return user.User{}, Token{}, apperrors.InvalidInput("identifier and password are required")
	}

	u, err := s.lookupUser(ctx, identifier)
	if err != nil {
		return user.User{}, Token{}, apperrors.Unauthorized("invalid credentials")
	}
	if u.PasswordHash == "" {
		return user.User{}, Token{}, apperrors.Unauthorized("password login is not enabled for this account")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.WithField("user_id", u.ID).Warn("password login rejected")
		return user.User{}, Token{}, apperrors.Unauthorized("invalid credentials")
	}

	token, err := s.issueToken(ctx, u)
	if err != nil {
		return user.User{}, Token{}, err
	}
	s.log.WithField("user_id", u.ID).Info("password login succeeded")
	return u, token, nil
}

// Logout revokes the session behind a token.
func (s *Service) Logout(ctx context.Context, token string) error {
	sess, err := s.sessions.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	return s.sessions.DeleteSession(ctx, sess.ID)
}

// Claims are the verified facts extracted from a token.
type Claims struct {
	UserID string
	Role   string
}

// ValidateToken checks signature, expiry and session liveness. A token whose
// session was revoked is rejected even if the JWT itself is still valid.
func (s *Service) ValidateToken(ctx context.Context, token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.InvalidToken(fmt.Errorf("token is required"))
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return Claims{}, apperrors.InvalidToken(err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, apperrors.InvalidToken(fmt.Errorf("claims are malformed"))
	}
	userID, _ := mapClaims["sub"].(string)
	role, _ := mapClaims["role"].(string)
	if userID == "" {
		return Claims{}, apperrors.InvalidToken(fmt.Errorf("subject is missing"))
	}

	sess, err := s.sessions.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		return Claims{}, apperrors.InvalidToken(fmt.Errorf("session is revoked or expired"))
	}
	if err := s.sessions.TouchSession(ctx, sess.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Claims{}, err
	}
	return Claims{UserID: userID, Role: role}, nil
}

// CleanupSessions removes expired sessions and returns how many were dropped.
func (s *Service) CleanupSessions(ctx context.Context) (int, error) {
	return s.sessions.DeleteExpiredSessions(ctx)
}

func (s *Service) issueToken(ctx context.Context, u user.User) (Token, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.tokenTTL)

	claims := jwt.MapClaims{
		"sub":  u.ID,
		"role": string(u.Role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return Token{}, apperrors.Internal("sign token", err)
	}

	if _, err := s.sessions.CreateSession(ctx, authdomain.Session{
		UserID:    u.ID,
		TokenHash: hashToken(signed),
		ExpiresAt: expiresAt,
	}); err != nil {
		return Token{}, err
	}
	return Token{Value: signed, ExpiresAt: expiresAt}, nil
}

func (s *Service) lookupUser(ctx context.Context, identifier string) (user.User, error) {
	if strings.Contains(identifier, "@") {
		return s.users.GetUserByEmail(ctx, identifier)
	}
	return s.users.GetUserByUsername(ctx, identifier)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
