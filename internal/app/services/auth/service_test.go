package auth

import (
	"context"
	"testing"
	"time"

	authdomain "github.com/grihome/grihome/internal/app/domain/auth"
	"github.com/grihome/grihome/internal/app/domain/user"
	"github.com/grihome/grihome/internal/app/storage/memory"
)

type capturingSender struct {
	lastCode        string
	lastDestination string
}

func (c *capturingSender) Send(_ context.Context, _ authdomain.Channel, destination, code string) error {
	c.lastDestination = destination
	c.lastCode = code
	return nil
}

type authFixture struct {
	svc    *Service
	store  *memory.Store
	sender *capturingSender
}

func setup(t *testing.T) *authFixture {
	t.Helper()
	store := memory.New()
	sender := &capturingSender{}
	svc, err := New(Config{
		Users:     store,
		Sessions:  store,
		OTPs:      NewMemoryOTPStore(),
		Sender:    sender,
		JWTSecret: "test-secret-0123456789",
		TokenTTL:  time.Hour,
		OTPTTL:    5 * time.Minute,
		OTPMax:    3,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &authFixture{svc: svc, store: store, sender: sender}
}

func (f *authFixture) createUser(t *testing.T, email, username, password string) user.User {
	t.Helper()
	hash := ""
	if password != "" {
		var err error
		hash, err = HashPassword(password)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
	}
	u, err := f.store.CreateUser(context.Background(), user.User{
		Email: email, Username: username, PasswordHash: hash, Role: user.RoleBuyer,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestPasswordLoginIssuesValidToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	created := f.createUser(t, "login@example.com", "login1", "correct horse")

	u, token, err := f.svc.LoginPassword(ctx, "login@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.ID != created.ID {
		t.Fatalf("user = %s, want %s", u.ID, created.ID)
	}
	if token.Value == "" || token.ExpiresAt.Before(time.Now()) {
		t.Fatalf("bad token: %+v", token)
	}

	claims, err := f.svc.ValidateToken(ctx, token.Value)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != created.ID || claims.Role != string(user.RoleBuyer) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestPasswordLoginByUsername(t *testing.T) {
	f := setup(t)
	f.createUser(t, "name@example.com", "nameduser", "correct horse")

	if _, _, err := f.svc.LoginPassword(context.Background(), "nameduser", "correct horse"); err != nil {
		t.Fatalf("login by username: %v", err)
	}
}

func TestPasswordLoginRejectsBadCredentials(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.createUser(t, "victim@example.com", "victim1", "correct horse")
	f.createUser(t, "otponly@example.com", "otponly", "")

	if _, _, err := f.svc.LoginPassword(ctx, "victim@example.com", "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	}
	if _, _, err := f.svc.LoginPassword(ctx, "nobody@example.com", "whatever"); err == nil {
		t.Fatal("expected error for unknown user")
	}
	if _, _, err := f.svc.LoginPassword(ctx, "otponly@example.com", "anything"); err == nil {
		t.Fatal("expected error for account without password")
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.createUser(t, "out@example.com", "outuser", "correct horse")

	_, token, err := f.svc.LoginPassword(ctx, "out@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := f.svc.Logout(ctx, token.Value); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.svc.ValidateToken(ctx, token.Value); err == nil {
		t.Fatal("revoked token should fail validation")
	}
}

func TestLogoutUnknownTokenIsNoop(t *testing.T) {
	f := setup(t)

	if err := f.svc.Logout(context.Background(), "never-issued-token"); err != nil {
		t.Fatalf("logout of unknown token: %v", err)
	}
}

func TestValidateTokenRequiresLiveSession(t *testing.T) {
	f := setup(t)
	other := setup(t)
	ctx := context.Background()
	other.createUser(t, "evil@example.com", "evil1", "correct horse")

	// A well-signed token is still rejected when no session backs it.
	_, token, err := other.svc.LoginPassword(ctx, "evil@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := f.svc.ValidateToken(ctx, token.Value); err == nil {
		t.Fatal("token without a live session should fail validation")
	}
}

func TestOTPRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	existing := f.createUser(t, "otp@example.com", "otpuser", "")

	if err := f.svc.RequestOTP(ctx, authdomain.ChannelEmail, "otp@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if len(f.sender.lastCode) != otpDigits {
		t.Fatalf("code = %q", f.sender.lastCode)
	}

	u, token, err := f.svc.VerifyOTP(ctx, "otp@example.com", f.sender.lastCode)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if u.ID != existing.ID {
		t.Fatalf("user = %s, want %s", u.ID, existing.ID)
	}
	if !u.EmailVerified {
		t.Fatal("otp login should mark email verified")
	}
	if _, err := f.svc.ValidateToken(ctx, token.Value); err != nil {
		t.Fatalf("validate: %v", err)
	}

	// Single use.
	if _, _, err := f.svc.VerifyOTP(ctx, "otp@example.com", f.sender.lastCode); err == nil {
		t.Fatal("code must be single use")
	}
}

func TestOTPProvisionsNewEmailAccount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if err := f.svc.RequestOTP(ctx, authdomain.ChannelEmail, "fresh@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	u, _, err := f.svc.VerifyOTP(ctx, "fresh@example.com", f.sender.lastCode)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if u.Email != "fresh@example.com" || u.Role != user.RoleBuyer {
		t.Fatalf("unexpected account: %+v", u)
	}
	if u.Username == "" {
		t.Fatal("expected generated username")
	}
}

func TestOTPLocksAfterRepeatedFailures(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.createUser(t, "lock@example.com", "lockuser", "")

	if err := f.svc.RequestOTP(ctx, authdomain.ChannelEmail, "lock@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := f.svc.VerifyOTP(ctx, "lock@example.com", "000000"); err == nil {
			t.Fatal("expected error for wrong code")
		}
	}
	// Even the right code fails now: the challenge was deleted.
	if _, _, err := f.svc.VerifyOTP(ctx, "lock@example.com", f.sender.lastCode); err == nil {
		t.Fatal("expected lock after repeated failures")
	}
}

func TestOTPExpiry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.createUser(t, "late@example.com", "lateuser", "")

	if err := f.svc.RequestOTP(ctx, authdomain.ChannelEmail, "late@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}

	f.svc.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	if _, _, err := f.svc.VerifyOTP(ctx, "late@example.com", f.sender.lastCode); err == nil {
		t.Fatal("expected error for expired code")
	}
}

func TestCleanupSessions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.createUser(t, "tidy@example.com", "tidyuser", "correct horse")

	// Issue a token that is already expired.
	f.svc.tokenTTL = -time.Hour
	if _, _, err := f.svc.LoginPassword(ctx, "tidy@example.com", "correct horse"); err != nil {
		t.Fatalf("login: %v", err)
	}

	removed, err := f.svc.CleanupSessions(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}
