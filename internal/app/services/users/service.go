// Package users manages account profiles.
package users

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/grihome/grihome/internal/app/domain/user"
	"github.com/grihome/grihome/internal/app/storage"
	"github.com/grihome/grihome/pkg/logger"
)

var (
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)
	phoneRe    = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// Service manages user accounts.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New constructs a user service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, log: log}
}

// Register creates a new account. The password hash is supplied by the auth
// layer; accounts registered via OTP or OAuth carry an empty hash.
func (s *Service) Register(ctx context.Context, email, phone, username, passwordHash string, role user.Role, name, city, state string) (user.User, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)

	if email == "" || !emailRe.MatchString(email) {
		return user.User{}, fmt.Errorf("a valid email is required")
	}
	if username == "" || !usernameRe.MatchString(username) {
		return user.User{}, fmt.Errorf("username must be 3-32 characters of letters, digits or underscore")
	}
	if phone != "" && !phoneRe.MatchString(phone) {
		return user.User{}, fmt.Errorf("phone must be a valid number")
	}
	if role == "" {
		role = user.RoleBuyer
	}
	if !role.Valid() {
		return user.User{}, fmt.Errorf("role %s is not supported", role)
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return user.User{}, fmt.Errorf("email %s is already registered", email)
	}
	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return user.User{}, fmt.Errorf("username %s is taken", username)
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Email:        email,
		Phone:        phone,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		Name:         name,
		City:         strings.TrimSpace(city),
		State:        strings.TrimSpace(state),
	})
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", created.ID).
		WithField("username", created.Username).
		WithField("role", string(created.Role)).
		Info("user registered")
	return created, nil
}

// Get returns one account by ID.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return user.User{}, fmt.Errorf("user_id is required")
	}
	return s.store.GetUser(ctx, id)
}

// GetByEmail returns one account by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (user.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return user.User{}, fmt.Errorf("email is required")
	}
	return s.store.GetUserByEmail(ctx, email)
}

// UpdateProfile updates mutable profile fields. Nil pointers leave the field
// unchanged.
func (s *Service) UpdateProfile(ctx context.Context, id string, name, phone, city, state *string, role *user.Role) (user.User, error) {
	u, err := s.store.GetUser(ctx, strings.TrimSpace(id))
	if err != nil {
		return user.User{}, err
	}

	if name != nil {
		u.Name = strings.TrimSpace(*name)
	}
	if phone != nil {
		trimmed := strings.TrimSpace(*phone)
		if trimmed != "" && !phoneRe.MatchString(trimmed) {
			return user.User{}, fmt.Errorf("phone must be a valid number")
		}
		if trimmed != u.Phone {
			u.PhoneVerified = false
		}
		u.Phone = trimmed
	}
	if city != nil {
		u.City = strings.TrimSpace(*city)
	}
	if state != nil {
		u.State = strings.TrimSpace(*state)
	}
	if role != nil {
		if !role.Valid() {
			return user.User{}, fmt.Errorf("role %s is not supported", *role)
		}
		u.Role = *role
	}

	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", updated.ID).Info("user profile updated")
	return updated, nil
}

// MarkVerified flags the email or phone channel as verified after an OTP
// round trip.
func (s *Service) MarkVerified(ctx context.Context, id string, emailVerified, phoneVerified bool) (user.User, error) {
	u, err := s.store.GetUser(ctx, strings.TrimSpace(id))
	if err != nil {
		return user.User{}, err
	}
	if emailVerified {
		u.EmailVerified = true
	}
	if phoneVerified {
		u.PhoneVerified = true
	}
	return s.store.UpdateUser(ctx, u)
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}
