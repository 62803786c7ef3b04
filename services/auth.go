package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/quillpost/config"
	"github.com/cppla/quillpost/models"
	"github.com/cppla/quillpost/repository"
	"github.com/cppla/quillpost/utils"
)

// AuthService runs registration, login, email verification and password reset.
type AuthService struct {
	users  UserRepository
	resets ResetRequestRepository
	mailer Mailer
	tokens *utils.TokenService
	hasher Hasher
	log    *zap.Logger

	baseURL string
	now     func() time.Time
}

// NewAuthService wires an AuthService. Links in outgoing mail point at cfg.PublicBaseURL.
func NewAuthService(cfg config.AppConfig, users UserRepository, resets ResetRequestRepository, mailer Mailer,
	tokens *utils.TokenService, hasher Hasher, log *zap.Logger) *AuthService {
	return &AuthService{
		users:   users,
		resets:  resets,
		mailer:  mailer,
		tokens:  tokens,
		hasher:  hasher,
		log:     log.Named("auth"),
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:     time.Now,
	}
}

// RegisterInput is the payload of a sign-up.
type RegisterInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResult reports the account that now holds the email. Merged is
// true when an existing OAuth-only account was upgraded in place.
type RegisterResult struct {
	UserID uint `json:"user_id"`
	Merged bool `json:"merged"`
}

// Register creates an unverified email account and mails a verification link.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalizeEmail(in.Email)
	switch {
	case in.FullName == "":
		return nil, validationFailed("fullName", "full name is required")
	case in.Email == "":
		return nil, validationFailed("email", "email is required")
	case in.Password == "":
		return nil, validationFailed("password", "password is required")
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil && existing.IsEmailUser:
		return nil, ErrDuplicateEmail
	case err == nil:
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, err
		}
		if err := s.users.MergeEmailSignup(ctx, existing.ID, in.FullName, hash); err != nil {
			return nil, fmt.Errorf("auth: merging oauth account: %w", err)
		}
		s.log.Info("oauth account upgraded to email signup", zap.Uint("user_id", existing.ID))
		return &RegisterResult{UserID: existing.ID, Merged: true}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("auth: looking up email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	code, err := utils.GenerateCode(utils.OTPLength)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		GitHubID:     models.Empty,
		IsEmailUser:  true,
		IsVerified:   false,
		Token:        code,
		TokenExpires: s.now().Add(VerificationTTL),
		AvatarURL:    models.Empty,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("auth: creating user: %w", err)
	}
	s.log.Info("user registered", zap.Uint("user_id", user.ID))

	if err := s.mailVerification(ctx, user, code, welcomeSubject); err != nil {
		return nil, err
	}
	return &RegisterResult{UserID: user.ID}, nil
}

// Login signs in a verified email user. An unverified user gets a fresh
// verification mail and ErrEmailNotVerified, whatever the password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*SessionResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth: looking up email: %w", err)
	}

	if !user.IsVerified {
		if err := s.resendVerification(ctx, user, verifyRequiredSubject); err != nil {
			return nil, err
		}
		return nil, newError(ErrEmailNotVerified, "Verification email resent. Please check your inbox.")
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		s.log.Info("login rejected", zap.Uint("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(utils.SessionClaim{UserID: user.ID}, SessionTTL)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Token: token, User: user.FullName, UserID: user.ID}, nil
}

// VerifyEmail marks the user verified when the token's code is the one currently stored.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	claim, err := s.tokens.VerifyVerification(token)
	if err != nil {
		return ErrInvalidToken
	}

	user, err := s.users.FindByIDAndCode(ctx, claim.UserID, claim.Code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "User or code not found")
		}
		return fmt.Errorf("auth: looking up verification code: %w", err)
	}
	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("auth: marking verified: %w", err)
	}
	s.log.Info("email verified", zap.Uint("user_id", user.ID))
	return nil
}

// ResendVerification rotates the user's code and mails a new link. Links sent earlier stop working.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("auth: looking up email: %w", err)
	}
	return s.resendVerification(ctx, user, welcomeSubject)
}

// ForgotPassword mails a reset link valid for ResetTTL.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrUserNotFound, "Email not found")
		}
		return fmt.Errorf("auth: looking up email: %w", err)
	}

	token, err := s.tokens.Issue(utils.ResetClaim{UserID: user.ID}, ResetTTL)
	if err != nil {
		return err
	}
	expires := s.now().Add(ResetTTL)
	if err := s.resets.Create(ctx, &models.PasswordResetRequest{
		UserID:          strconv.FormatUint(uint64(user.ID), 10),
		PasswordExpires: expires,
	}); err != nil {
		return fmt.Errorf("auth: recording reset request: %w", err)
	}
	if err := s.users.SetPasswordResetExpiry(ctx, user.ID, expires); err != nil {
		return fmt.Errorf("auth: recording reset expiry: %w", err)
	}

	link := s.link("/resetPassword", token)
	err = s.mailer.Send(ctx, utils.Mail{
		To:      user.Email,
		Subject: resetSubject,
		Text:    "Change the password: " + link,
		HTML:    fmt.Sprintf(`<h1>Your forgot password link is: <a href="%s">Reset Password</a></h1>`, link),
	})
	if err != nil {
		return fmt.Errorf("auth: sending reset mail: %w", err)
	}
	s.log.Info("password reset requested", zap.Uint("user_id", user.ID))
	return nil
}

// ResetPassword replaces the password of the user named by a reset token.
// Tokens are not single use; any unexpired reset token works.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return validationFailed("password", "password is required")
	}
	claim, err := s.tokens.VerifyReset(token)
	if err != nil {
		return ErrInvalidToken
	}
	if _, err := s.users.FindByID(ctx, claim.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("auth: looking up user: %w", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, claim.UserID, hash); err != nil {
		return fmt.Errorf("auth: updating password: %w", err)
	}
	s.log.Info("password reset", zap.Uint("user_id", claim.UserID))
	return nil
}

// resendVerification stores a fresh code on user and mails a link carrying it.
func (s *AuthService) resendVerification(ctx context.Context, user *models.User, subject string) error {
	code, err := utils.GenerateCode(utils.OTPLength)
	if err != nil {
		return err
	}
	if err := s.users.SetVerificationCode(ctx, user.ID, code, s.now().Add(VerificationTTL)); err != nil {
		return fmt.Errorf("auth: storing verification code: %w", err)
	}
	return s.mailVerification(ctx, user, code, subject)
}

func (s *AuthService) mailVerification(ctx context.Context, user *models.User, code, subject string) error {
	token, err := s.tokens.Issue(utils.VerificationClaim{UserID: user.ID, Code: code}, VerificationTTL)
	if err != nil {
		return err
	}
	link := s.link("/email", token)
	err = s.mailer.Send(ctx, utils.Mail{
		To:      user.Email,
		Subject: subject,
		Text:    "Please verify your email address: " + link,
		HTML:    fmt.Sprintf(`<h1>Your verification link: <a href="%s">Verify Email</a></h1>`, link),
	})
	if err != nil {
		return fmt.Errorf("auth: sending verification mail: %w", err)
	}
	s.log.Info("verification mail sent", zap.Uint("user_id", user.ID))
	return nil
}

func (s *AuthService) link(path, token string) string {
	return s.baseURL + path + "?code=" + url.QueryEscape(token)
}

const (
	welcomeSubject        = "Welcome to Quillpost"
	verifyRequiredSubject = "Email Verification Required"
	resetSubject          = "Reset your Quillpost password"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
