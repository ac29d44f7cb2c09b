package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	authdomain "github.com/grihome/grihome/internal/app/domain/auth"
	"github.com/grihome/grihome/internal/app/domain/user"
	apperrors "github.com/grihome/grihome/internal/errors"
)

const otpDigits = 6

// OTPStore holds pending one-time codes with expiry.
type OTPStore interface {
	Put(ctx context.Context, otp authdomain.OTP, ttl time.Duration) error
	Get(ctx context.Context, destination string) (authdomain.OTP, error)
	IncrementAttempts(ctx context.Context, destination string) (int, error)
	Delete(ctx context.Context, destination string) error
}

// Sender delivers a code over email or SMS.
type Sender interface {
	Send(ctx context.Context, channel authdomain.Channel, destination, code string) error
}

// RequestOTP generates and delivers a code to destination. Requesting again
// replaces the previous code.
func (s *Service) RequestOTP(ctx context.Context, channel authdomain.Channel, destination string) error {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return apperrors.InvalidInput("destination is required")
	}
	if !channel.Valid() {
		return apperrors.InvalidInput("channel must be email or sms")
	}
	if s.otps == nil || s.sender == nil {
		return apperrors.Internal("otp login is not configured", nil)
	}

	code, err := generateOTP()
	if err != nil {
		return apperrors.Internal("generate otp", err)
	}

	otp := authdomain.OTP{
		Destination: destination,
		Channel:     channel,
		Code:        code,
		ExpiresAt:   s.now().UTC().Add(s.otpTTL),
	}
	if err := s.otps.Put(ctx, otp, s.otpTTL); err != nil {
		return err
	}
	if err := s.sender.Send(ctx, channel, destination, code); err != nil {
		return apperrors.Internal("send otp", err)
	}
	s.log.WithField("channel", string(channel)).Info("otp issued")
	return nil
}

// VerifyOTP checks a code and, on success, logs the destination's account in,
// registering a stub account on first login. The code is single use and locks
// after too many wrong attempts.
func (s *Service) VerifyOTP(ctx context.Context, destination, code string) (user.User, Token, error) {
	destination = strings.TrimSpace(destination)
	code = strings.TrimSpace(code)
	if destination == "" || code == "" {
		return user.User{}, Token{}, apperrors.InvalidInput("destination and code are required")
	}
	if s.otps == nil {
		return user.User{}, Token{}, apperrors.Internal("otp login is not configured", nil)
	}

	otp, err := s.otps.Get(ctx, destination)
	if err != nil {
		return user.User{}, Token{}, apperrors.Unauthorized("no pending code for this destination")
	}
	if s.now().After(otp.ExpiresAt) {
		_ = s.otps.Delete(ctx, destination)
		return user.User{}, Token{}, apperrors.Unauthorized("code has expired")
	}
	if otp.Code != code {
		attempts, err := s.otps.IncrementAttempts(ctx, destination)
		if err != nil {
			return user.User{}, Token{}, err
		}
		if attempts >= s.otpMax {
			_ = s.otps.Delete(ctx, destination)
			s.log.WithField("channel", string(otp.Channel)).Warn("otp locked after repeated failures")
			return user.User{}, Token{}, apperrors.Unauthorized("too many wrong attempts, request a new code")
		}
		return user.User{}, Token{}, apperrors.Unauthorized("code does not match")
	}
	if err := s.otps.Delete(ctx, destination); err != nil {
		return user.User{}, Token{}, err
	}

	u, err := s.userForDestination(ctx, otp.Channel, destination)
	if err != nil {
		return user.User{}, Token{}, err
	}

	token, err := s.issueToken(ctx, u)
	if err != nil {
		return user.User{}, Token{}, err
	}
	s.log.WithField("user_id", u.ID).WithField("channel", string(otp.Channel)).Info("otp login succeeded")
	return u, token, nil
}

// userForDestination finds or provisions the account behind an OTP
// destination and marks the channel verified.
func (s *Service) userForDestination(ctx context.Context, channel authdomain.Channel, destination string) (user.User, error) {
	if channel == authdomain.ChannelEmail {
		u, err := s.users.GetUserByEmail(ctx, destination)
		if err == nil {
			if !u.EmailVerified {
				u.EmailVerified = true
				return s.users.UpdateUser(ctx, u)
			}
			return u, nil
		}
		return s.users.CreateUser(ctx, user.User{
			Email:         destination,
			Username:      usernameFromEmail(destination),
			Role:          user.RoleBuyer,
			EmailVerified: true,
		})
	}

	// SMS destinations have no unique lookup; scan for the phone.
	all, err := s.users.ListUsers(ctx)
	if err != nil {
		return user.User{}, err
	}
	for _, u := range all {
		if u.Phone == destination {
			if !u.PhoneVerified {
				u.PhoneVerified = true
				return s.users.UpdateUser(ctx, u)
			}
			return u, nil
		}
	}
	return user.User{}, apperrors.NotFound("account for phone number")
}

func usernameFromEmail(email string) string {
	local := email
	if i := strings.Index(email, "@"); i > 0 {
		local = email[:i]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) < 3 {
		name = name + "user"
	}
	// Random suffix avoids collisions with existing usernames.
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return name
	}
	return fmt.Sprintf("%s_%04d", name, n.Int64())
}

func generateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}
