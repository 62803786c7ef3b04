package services

import (
	"context"
	"time"

	"github.com/cppla/quillpost/models"
	"github.com/cppla/quillpost/utils"
)

// Token lifetimes.
const (
	SessionTTL      = 30 * 24 * time.Hour
	VerificationTTL = 10 * time.Minute
	ResetTTL        = 10 * time.Minute
)

// UserRepository is the credential store the workflows depend on.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByIDAndCode(ctx context.Context, id uint, code string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	MergeEmailSignup(ctx context.Context, id uint, fullName, passwordHash string) error
	SetVerificationCode(ctx context.Context, id uint, code string, expires time.Time) error
	MarkVerified(ctx context.Context, id uint) error
	SetPassword(ctx context.Context, id uint, passwordHash string) error
	SetPasswordResetExpiry(ctx context.Context, id uint, expires time.Time) error
	LinkProvider(ctx context.Context, id uint, githubID, avatarURL string) error
	Delete(ctx context.Context, id uint) error
	ListWithPostCounts(ctx context.Context) ([]models.UserSummary, error)
}

// PostRepository persists posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context) ([]models.Post, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]models.Post, error)
	Update(ctx context.Context, id uint, title, content string) error
	Delete(ctx context.Context, id uint) error
}

// ResetRequestRepository records forgot-password requests.
type ResetRequestRepository interface {
	Create(ctx context.Context, req *models.PasswordResetRequest) error
}

// Mailer delivers one message or returns an error.
type Mailer interface {
	Send(ctx context.Context, m utils.Mail) error
}

// Hasher hashes and compares passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// SessionResult is what every successful sign-in returns.
type SessionResult struct {
	Token  string `json:"token"`
	User   string `json:"user"`
	UserID uint   `json:"user_id"`
}
