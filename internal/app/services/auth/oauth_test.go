package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/grihome/grihome/internal/app/domain/user"
	"github.com/grihome/grihome/internal/app/storage/memory"
	"github.com/grihome/grihome/internal/httputil"
)

func fakeProvider(t *testing.T, email string) OAuthProvider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %s", got)
		}
		if got := r.Form.Get("code"); got != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer"}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("access_token"); got != "at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"email":"` + email + `","name":"Ravi Kumar"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return OAuthProvider{
		Name:         "google",
		ClientID:     "cid",
		ClientSecret: "secret",
		TokenURL:     server.URL + "/token",
		UserInfoURL:  server.URL + "/userinfo",
		RedirectURI:  "https://grihome.example/oauth/callback",
		client:       httputil.NewClient(httputil.ClientConfig{RetryWait: time.Millisecond}),
	}
}

func oauthService(t *testing.T, provider OAuthProvider) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc, err := New(Config{
		Users:     store,
		Sessions:  store,
		JWTSecret: "test-secret-0123456789",
		OAuth:     map[string]OAuthProvider{"google": provider},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func TestOAuthLoginProvisionsAccount(t *testing.T) {
	svc, _ := oauthService(t, fakeProvider(t, "ravi@example.com"))
	ctx := context.Background()

	u, token, err := svc.LoginOAuth(ctx, "google", "good-code")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.Email != "ravi@example.com" || u.Name != "Ravi Kumar" {
		t.Fatalf("unexpected account: %+v", u)
	}
	if !u.EmailVerified {
		t.Fatal("oauth account should be email verified")
	}
	if _, err := svc.ValidateToken(ctx, token.Value); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestOAuthLoginReusesExistingAccount(t *testing.T) {
	svc, store := oauthService(t, fakeProvider(t, "known@example.com"))
	ctx := context.Background()

	existing, err := store.CreateUser(ctx, user.User{Email: "known@example.com", Username: "knownuser", Role: user.RoleBuyer})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	u, _, err := svc.LoginOAuth(ctx, "google", "good-code")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.ID != existing.ID {
		t.Fatalf("user = %s, want %s", u.ID, existing.ID)
	}
}

func TestOAuthLoginRejectsBadCode(t *testing.T) {
	svc, _ := oauthService(t, fakeProvider(t, "x@example.com"))
	if _, _, err := svc.LoginOAuth(context.Background(), "google", "bad-code"); err == nil {
		t.Fatal("expected error for rejected code")
	}
}

func TestOAuthLoginUnknownProvider(t *testing.T) {
	svc, _ := oauthService(t, fakeProvider(t, "x@example.com"))
	if _, _, err := svc.LoginOAuth(context.Background(), "facebook", "good-code"); err == nil {
		t.Fatal("expected error for unconfigured provider")
	}
}
