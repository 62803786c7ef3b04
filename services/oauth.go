package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"google.golang.org/api/idtoken"

	"github.com/cppla/quillpost/config"
	"github.com/cppla/quillpost/models"
	"github.com/cppla/quillpost/repository"
	"github.com/cppla/quillpost/utils"
)

const (
	githubAPIBase = "https://api.github.com"
	oauthStateTTL = 10 * time.Minute
	// stored in users.token for provider-created accounts
	oauthTokenMarker = "oauth"
)

// IDTokenValidator checks a Google identity token against an audience.
// *idtoken.Validator satisfies it.
type IDTokenValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// StateStore keeps single-use OAuth state values.
type StateStore interface {
	Save(ctx context.Context, state string, ttl time.Duration) error
	Consume(ctx context.Context, state string) bool
}

// OAuthService signs users in through GitHub and Google.
type OAuthService struct {
	users     UserRepository
	tokens    *utils.TokenService
	states    StateStore
	validator IDTokenValidator
	log       *zap.Logger

	github         *oauth2.Config
	githubAPI      string
	googleClientID string
	httpClient     *http.Client
	now            func() time.Time
}

// NewOAuthService wires an OAuthService. validator may be nil, which disables Google sign-in.
func NewOAuthService(cfg config.AppConfig, users UserRepository, tokens *utils.TokenService,
	states StateStore, validator IDTokenValidator, log *zap.Logger) *OAuthService {
	return &OAuthService{
		users:     users,
		tokens:    tokens,
		states:    states,
		validator: validator,
		log:       log.Named("oauth"),
		github: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  strings.TrimRight(cfg.OAuthRedirectBase, "/") + "/auth/oauth/github/callback",
			Scopes:       []string{"read:user", "user:email"},
		},
		githubAPI:      githubAPIBase,
		googleClientID: cfg.GoogleClientID,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		now:            time.Now,
	}
}

// GitHubToken mirrors GitHub's access token response for an authorization
// code. The refresh fields are only present for expiring user tokens.
type GitHubToken struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	Scope                 string `json:"scope,omitempty"`
	RefreshToken          string `json:"refresh_token,omitempty"`
	ExpiresIn             int64  `json:"expires_in,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in,omitempty"`
}

// GitHubExchange trades an authorization code for a GitHub access token and
// returns it unchanged; fetching the profile is left to the caller.
func (s *OAuthService) GitHubExchange(ctx context.Context, code string) (*GitHubToken, error) {
	if strings.TrimSpace(code) == "" {
		return nil, validationFailed("code", "authorization code is required")
	}
	if s.github.ClientID == "" {
		return nil, newError(ErrProviderUnavailable, "github sign-in is not configured")
	}
	tok, err := s.github.Exchange(s.clientContext(ctx), code)
	if err != nil {
		return nil, s.providerError("github", "code exchange", err)
	}
	out := &GitHubToken{
		AccessToken:           tok.AccessToken,
		TokenType:             tok.TokenType,
		RefreshToken:          tok.RefreshToken,
		ExpiresIn:             extraInt(tok, "expires_in"),
		RefreshTokenExpiresIn: extraInt(tok, "refresh_token_expires_in"),
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	return out, nil
}

// extraInt reads a numeric field of the raw token response. GitHub answers
// form encoded by default, so the value may arrive as a string.
func extraInt(tok *oauth2.Token, key string) int64 {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// GitHubLogin fetches the profile behind a GitHub access token and signs the user in.
func (s *OAuthService) GitHubLogin(ctx context.Context, accessToken string) (*SessionResult, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, newError(ErrInvalidProviderToken, "github access token is required")
	}
	client := oauth2.NewClient(s.clientContext(ctx), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))

	var profile struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := s.getJSON(ctx, client, "/user", &profile); err != nil {
		return nil, err
	}
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := s.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return nil, err
	}

	email := ""
	for _, e := range emails {
		if e.Primary {
			email = e.Email
			if e.Verified {
				break
			}
		}
	}
	if email == "" {
		return nil, newError(ErrInvalidProviderToken, "github account has no primary email")
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}
	return s.signIn(ctx, providerProfile{
		Provider:  "github",
		Email:     email,
		FullName:  name,
		AvatarURL: profile.AvatarURL,
		GitHubID:  strconv.FormatInt(profile.ID, 10),
	})
}

// GitHubAuthorizeURL starts the server-side flow and returns the URL to send the browser to.
func (s *OAuthService) GitHubAuthorizeURL(ctx context.Context) (string, error) {
	if s.github.ClientID == "" {
		return "", newError(ErrProviderUnavailable, "github sign-in is not configured")
	}
	state := uuid.NewString()
	if err := s.states.Save(ctx, state, oauthStateTTL); err != nil {
		return "", fmt.Errorf("oauth: saving state: %w", err)
	}
	return s.github.AuthCodeURL(state), nil
}

// GitHubCallback finishes the server-side flow. state must come from
// GitHubAuthorizeURL and is accepted once.
func (s *OAuthService) GitHubCallback(ctx context.Context, state, code string) (*SessionResult, error) {
	if !s.states.Consume(ctx, state) {
		return nil, newError(ErrInvalidProviderToken, "invalid or expired oauth state")
	}
	tok, err := s.GitHubExchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.GitHubLogin(ctx, tok.AccessToken)
}

// GoogleLogin verifies a Google identity token and signs the user in.
func (s *OAuthService) GoogleLogin(ctx context.Context, idToken string) (*SessionResult, error) {
	if s.validator == nil || s.googleClientID == "" {
		return nil, newError(ErrProviderUnavailable, "google sign-in is not configured")
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, newError(ErrInvalidProviderToken, "google id token is required")
	}
	payload, err := s.validator.Validate(ctx, idToken, s.googleClientID)
	if err != nil {
		s.log.Info("google token rejected", zap.Error(err))
		return nil, newError(ErrInvalidProviderToken, "Invalid token")
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	switch {
	case email == "":
		return nil, newError(ErrInvalidProviderToken, "Email is missing in the token payload")
	case name == "":
		return nil, newError(ErrInvalidProviderToken, "Name is missing in the token payload")
	case picture == "":
		return nil, newError(ErrInvalidProviderToken, "Picture is missing in the token payload")
	}
	return s.signIn(ctx, providerProfile{Provider: "google", Email: email, FullName: name, AvatarURL: picture})
}

type providerProfile struct {
	Provider  string
	Email     string
	FullName  string
	AvatarURL string
	// empty for providers other than GitHub
	GitHubID string
}

// signIn links the profile to the local account with the same email, or
// creates a verified provider-only account, and issues a session token.
func (s *OAuthService) signIn(ctx context.Context, p providerProfile) (*SessionResult, error) {
	p.Email = normalizeEmail(p.Email)
	user, err := s.users.FindByEmail(ctx, p.Email)
	if err == nil {
		if user.IsEmailUser {
			if err := s.users.LinkProvider(ctx, user.ID, p.GitHubID, p.AvatarURL); err != nil {
				return nil, fmt.Errorf("oauth: linking %s: %w", p.Provider, err)
			}
			s.log.Info("provider linked to email account", zap.String("provider", p.Provider), zap.Uint("user_id", user.ID))
		}
		return s.session(user)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("oauth: looking up email: %w", err)
	}

	user = &models.User{
		FullName:     p.FullName,
		Email:        p.Email,
		PasswordHash: "",
		GitHubID:     orEmpty(p.GitHubID),
		IsVerified:   true,
		Token:        oauthTokenMarker,
		TokenExpires: s.now().Add(time.Hour),
		AvatarURL:    orEmpty(p.AvatarURL),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("oauth: creating user: %w", err)
		}
		// lost a race with a concurrent sign-in for the same email
		if user, err = s.users.FindByEmail(ctx, p.Email); err != nil {
			return nil, fmt.Errorf("oauth: reloading user: %w", err)
		}
		return s.session(user)
	}
	s.log.Info("user registered via provider", zap.String("provider", p.Provider), zap.Uint("user_id", user.ID))
	return s.session(user)
}

func (s *OAuthService) session(user *models.User) (*SessionResult, error) {
	token, err := s.tokens.Issue(utils.SessionClaim{UserID: user.ID}, SessionTTL)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Token: token, User: user.FullName, UserID: user.ID}, nil
}

func (s *OAuthService) getJSON(ctx context.Context, client *http.Client, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.githubAPI+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return s.providerError("github", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return newError(ErrInvalidProviderToken, "github rejected the access token")
	case resp.StatusCode >= 300:
		return newError(ErrProviderUnavailable, "github returned %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newError(ErrProviderUnavailable, "github sent an unreadable response for %s", path)
	}
	return nil
}

// clientContext makes oauth2 use the service's HTTP client.
func (s *OAuthService) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// providerError separates transport failures from rejections by the provider.
func (s *OAuthService) providerError(provider, op string, err error) error {
	var urlErr *url.Error
	var retrieveErr *oauth2.RetrieveError
	switch {
	case errors.As(err, &retrieveErr):
		return newError(ErrInvalidProviderToken, "%s rejected the %s", provider, op)
	case errors.As(err, &urlErr):
		s.log.Warn("provider unreachable", zap.String("provider", provider), zap.String("op", op), zap.Error(err))
		return newError(ErrProviderUnavailable, "%s is unreachable", provider)
	default:
		// oauth2 flattens transport errors into plain text
		s.log.Warn("provider call failed", zap.String("provider", provider), zap.String("op", op), zap.Error(err))
		return newError(ErrProviderUnavailable, "%s %s failed", provider, op)
	}
}

func orEmpty(v string) string {
	if v == "" {
		return models.Empty
	}
	return v
}
