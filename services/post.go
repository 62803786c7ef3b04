package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cppla/quillpost/models"
	"github.com/cppla/quillpost/repository"
	"github.com/cppla/quillpost/utils"
)

const maxTitleLength = 200

// PostInput carries the editable fields of a post.
type PostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Image   string `json:"image"`
}

// PostService is CRUD over posts. Mutations are restricted to the author.
type PostService struct {
	posts  PostRepository
	users  UserRepository
	tokens *utils.TokenService
	log    *zap.Logger
}

// NewPostService creates a PostService.
func NewPostService(posts PostRepository, users UserRepository, tokens *utils.TokenService, log *zap.Logger) *PostService {
	return &PostService{posts: posts, users: users, tokens: tokens, log: log.Named("post")}
}

// Create publishes a post for the user named by a session token, copying
// their current name and avatar onto it.
func (s *PostService) Create(ctx context.Context, token string, in PostInput) (*models.Post, error) {
	claim, err := s.tokens.VerifySession(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	title, content, err := cleanPost(in.Title, in.Content)
	if err != nil {
		return nil, err
	}

	author, err := s.users.FindByID(ctx, claim.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("post: looking up author: %w", err)
	}

	post := &models.Post{
		Title:        title,
		Content:      content,
		Image:        strings.TrimSpace(in.Image),
		AuthorID:     author.ID,
		AuthorName:   author.FullName,
		AuthorAvatar: author.AvatarURL,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("post: creating: %w", err)
	}
	s.log.Info("post created", zap.Uint("post_id", post.ID), zap.Uint("author_id", author.ID))
	return post, nil
}

// List returns every post, newest first.
func (s *PostService) List(ctx context.Context) ([]models.Post, error) {
	return s.posts.List(ctx)
}

// ListByAuthor returns the posts written by authorID, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, authorID uint) ([]models.Post, error) {
	return s.posts.ListByAuthor(ctx, authorID)
}

// Get returns one post.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "post %d not found", id)
		}
		return nil, err
	}
	return post, nil
}

// Update rewrites title and content and flags the post as edited.
func (s *PostService) Update(ctx context.Context, actorID, postID uint, in PostInput) (*models.Post, error) {
	title, content, err := cleanPost(in.Title, in.Content)
	if err != nil {
		return nil, err
	}
	post, err := s.owned(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Update(ctx, post.ID, title, content); err != nil {
		return nil, fmt.Errorf("post: updating %d: %w", post.ID, err)
	}
	post.Title, post.Content, post.IsUpdated = title, content, true
	return post, nil
}

// Delete removes a post owned by actorID.
func (s *PostService) Delete(ctx context.Context, actorID, postID uint) error {
	post, err := s.owned(ctx, actorID, postID)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "post %d not found", postID)
		}
		return fmt.Errorf("post: deleting %d: %w", post.ID, err)
	}
	s.log.Info("post deleted", zap.Uint("post_id", post.ID), zap.Uint("author_id", actorID))
	return nil
}

func (s *PostService) owned(ctx context.Context, actorID, postID uint) (*models.Post, error) {
	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return nil, newError(ErrForbidden, "only the author can change this post")
	}
	return post, nil
}

// cleanPost reduces the title to plain text, sanitizes the content HTML and
// rejects empty or oversized values.
func cleanPost(title, content string) (string, string, error) {
	title = utils.SanitizeText(title)
	content = utils.Sanitize(content)
	if title == "" || content == "" {
		return "", "", validationFailed("title", "All fields are required!")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", "", validationFailed("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	return title, content, nil
}
