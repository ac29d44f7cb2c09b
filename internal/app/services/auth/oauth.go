package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/grihome/grihome/internal/app/domain/user"
	apperrors "github.com/grihome/grihome/internal/errors"
	"github.com/grihome/grihome/internal/httputil"
)

// OAuthProvider describes one authorization-code provider (Google, etc).
type OAuthProvider struct {
	Name         string
	ClientID     string
	ClientSecret string
	TokenURL     string
	UserInfoURL  string
	RedirectURI  string

	// client overrides the default HTTP client in tests.
	client *httputil.Client
}

// LoginOAuth exchanges an authorization code with the named provider, finds
// or provisions the account behind the returned email and issues a token.
func (s *Service) LoginOAuth(ctx context.Context, providerName, code string) (user.User, Token, error) {
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	code = strings.TrimSpace(code)
	if providerName == "" || code == "" {
		return user.User{}, Token{}, apperrors.InvalidInput("provider and code are required")
	}
	provider, ok := s.oauth[providerName]
	if !ok {
		return user.User{}, Token{}, apperrors.InvalidInput(fmt.Sprintf("oauth provider %s is not configured", providerName))
	}

	email, name, err := provider.exchange(ctx, code)
	if err != nil {
		s.log.WithError(err).WithField("provider", providerName).Warn("oauth exchange failed")
		return user.User{}, Token{}, apperrors.Unauthorized("oauth exchange failed")
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		u, err = s.users.CreateUser(ctx, user.User{
			Email:         email,
			Username:      usernameFromEmail(email),
			Role:          user.RoleBuyer,
			Name:          name,
			EmailVerified: true,
		})
		if err != nil {
			return user.User{}, Token{}, err
		}
		s.log.WithField("user_id", u.ID).WithField("provider", providerName).Info("account provisioned via oauth")
	}

	token, err := s.issueToken(ctx, u)
	if err != nil {
		return user.User{}, Token{}, err
	}
	s.log.WithField("user_id", u.ID).WithField("provider", providerName).Info("oauth login succeeded")
	return u, token, nil
}

// exchange trades the code for an access token, then fetches the profile.
func (p OAuthProvider) exchange(ctx context.Context, code string) (email, name string, err error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {p.ClientID},
		"client_secret": {p.ClientSecret},
		"redirect_uri":  {p.RedirectURI},
	}

	client := p.client
	if client == nil {
		client = httputil.NewClient(httputil.ClientConfig{})
	}

	resp, err := client.PostForm(ctx, p.TokenURL, form.Encode())
	if err != nil {
		return "", "", fmt.Errorf("token exchange: %w", err)
	}
	body, err := httputil.ReadBody(resp, 1<<20)
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}
	accessToken := gjson.GetBytes(body, "access_token").String()
	if accessToken == "" {
		return "", "", fmt.Errorf("token response has no access_token")
	}

	infoResp, err := client.Do(ctx, "GET", p.UserInfoURL+"?access_token="+url.QueryEscape(accessToken), nil)
	if err != nil {
		return "", "", fmt.Errorf("fetch userinfo: %w", err)
	}
	info, err := httputil.ReadBody(infoResp, 1<<20)
	if err != nil {
		return "", "", err
	}
	if infoResp.StatusCode >= 400 {
		return "", "", fmt.Errorf("userinfo endpoint returned status %d", infoResp.StatusCode)
	}

	email = strings.TrimSpace(gjson.GetBytes(info, "email").String())
	if email == "" {
		return "", "", fmt.Errorf("userinfo has no email")
	}
	return email, gjson.GetBytes(info, "name").String(), nil
}
