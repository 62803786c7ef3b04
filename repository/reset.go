package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/cppla/quillpost/models"
)

// ResetRequestStore records mailed password-reset links.
type ResetRequestStore struct {
	db *gorm.DB
}

// NewResetRequestStore creates a ResetRequestStore.
func NewResetRequestStore(db *gorm.DB) *ResetRequestStore {
	return &ResetRequestStore{db: db}
}

// Create inserts a reset marker.
func (s *ResetRequestStore) Create(ctx context.Context, req *models.PasswordResetRequest) error {
	return translate(s.db.WithContext(ctx).Create(req).Error)
}

