package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/quillpost/models"
)

// UserStore is the credential store backed by the users table.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a UserStore.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByEmail returns the user registered under email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByID returns the user with the given id.
func (s *UserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByIDAndCode matches both the id and the currently stored one-time code.
func (s *UserStore) FindByIDAndCode(ctx context.Context, id uint, code string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("id = ? AND token = ?", id, code).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Create inserts user and fills in its id. A taken email yields ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

// MergeEmailSignup turns an OAuth-only account into an email account.
func (s *UserStore) MergeEmailSignup(ctx context.Context, id uint, fullName, passwordHash string) error {
	return s.update(ctx, id, map[string]interface{}{
		"full_name":     fullName,
		"password_hash": passwordHash,
		"is_email_user": true,
	})
}

// SetVerificationCode replaces the one-time code, invalidating older verification links.
func (s *UserStore) SetVerificationCode(ctx context.Context, id uint, code string, expires time.Time) error {
	return s.update(ctx, id, map[string]interface{}{
		"token":         code,
		"token_expires": expires,
	})
}

// MarkVerified flags the user's email as verified.
func (s *UserStore) MarkVerified(ctx context.Context, id uint) error {
	return s.update(ctx, id, map[string]interface{}{"is_verified": true})
}

// SetPassword stores a new password hash.
func (s *UserStore) SetPassword(ctx context.Context, id uint, passwordHash string) error {
	return s.update(ctx, id, map[string]interface{}{"password_hash": passwordHash})
}

// SetPasswordResetExpiry records when the last requested reset link expires.
func (s *UserStore) SetPasswordResetExpiry(ctx context.Context, id uint, expires time.Time) error {
	return s.update(ctx, id, map[string]interface{}{"password_expires": expires})
}

// LinkProvider attaches provider data to an existing account. An empty
// githubID leaves the stored provider id untouched.
func (s *UserStore) LinkProvider(ctx context.Context, id uint, githubID, avatarURL string) error {
	fields := map[string]interface{}{"avatar_url": avatarURL}
	if githubID != "" {
		fields["github_id"] = githubID
	}
	return s.update(ctx, id, fields)
}

// Delete removes the user row.
func (s *UserStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWithPostCounts returns every user together with the number of posts they authored.
func (s *UserStore) ListWithPostCounts(ctx context.Context) ([]models.UserSummary, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, translate(err)
	}

	var counts []struct {
		AuthorID uint
		Total    int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("author_id, COUNT(*) AS total").
		Group("author_id").
		Scan(&counts).Error
	if err != nil {
		return nil, translate(err)
	}
	byAuthor := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byAuthor[c.AuthorID] = c.Total
	}

	items := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		items = append(items, models.UserSummary{
			ID:        u.ID,
			FullName:  u.FullName,
			Email:     u.Email,
			AvatarURL: u.AvatarURL,
			GitHubID:  u.GitHubID,
			CreatedAt: u.CreatedAt,
			PostCount: byAuthor[u.ID],
		})
	}
	return items, nil
}

func (s *UserStore) update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return translate(s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error)
}
