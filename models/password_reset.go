package models

import "time"

// PasswordResetRequest records that a reset link was mailed. It is
// informational only; resets are authorized by the signed token.
type PasswordResetRequest struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"size:255;not null" json:"user_id"`
	PasswordExpires time.Time `json:"password_expires"`
}

// All lists every model the schema migration must cover.
func All() []interface{} {
	return []interface{}{&User{}, &Post{}, &PasswordResetRequest{}}
}
