package models

import "time"

// Empty is the placeholder stored for provider ids and avatars that are not set.
const Empty = "empty"

// User is an account created by email signup or by a first OAuth sign-in.
// PasswordHash is empty for OAuth-only accounts.
type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	FullName        string     `gorm:"size:255;not null" json:"full_name"`
	Email           string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash    string     `gorm:"size:255" json:"-"`
	GitHubID        string     `gorm:"column:github_id;size:64;not null" json:"github_id"`
	IsEmailUser     bool       `gorm:"not null;default:false" json:"is_email_user"`
	IsVerified      bool       `gorm:"not null;default:false" json:"is_verified"`
	Token           string     `gorm:"size:64;not null" json:"-"` // current one-time verification code
	TokenExpires    time.Time  `gorm:"not null" json:"-"`
	AvatarURL       string     `gorm:"size:512;not null" json:"avatar_url"`
	PasswordExpires *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UserSummary is the public listing projection of a user with their post count.
type UserSummary struct {
	ID        uint      `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	GitHubID  string    `json:"github_id"`
	CreatedAt time.Time `json:"created_at"`
	PostCount int64     `json:"post_count"`
}
