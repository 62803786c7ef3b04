package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/cppla/quillpost/models"
)

// PostStore persists posts.
type PostStore struct {
	db *gorm.DB
}

// NewPostStore creates a PostStore.
func NewPostStore(db *gorm.DB) *PostStore {
	return &PostStore{db: db}
}

// Create inserts post and fills in its id.
func (s *PostStore) Create(ctx context.Context, post *models.Post) error {
	return translate(s.db.WithContext(ctx).Create(post).Error)
}

// FindByID returns a single post.
func (s *PostStore) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// List returns every post, newest first.
func (s *PostStore) List(ctx context.Context) ([]models.Post, error) {
	posts := []models.Post{}
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&posts).Error; err != nil {
		return nil, translate(err)
	}
	return posts, nil
}

// ListByAuthor returns the posts written by authorID, newest first.
func (s *PostStore) ListByAuthor(ctx context.Context, authorID uint) ([]models.Post, error) {
	posts := []models.Post{}
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, translate(err)
	}
	return posts, nil
}

// Update rewrites title and content and marks the post as edited.
func (s *PostStore) Update(ctx context.Context, id uint, title, content string) error {
	res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(map[string]interface{}{
		"title":      title,
		"content":    content,
		"is_updated": true,
	})
	return translate(res.Error)
}

// Delete removes the post.
func (s *PostStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
