package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/quillpost/middleware"
	"github.com/cppla/quillpost/services"
	"github.com/cppla/quillpost/utils"
)

// PostController manages CRUD operations for posts.
type PostController struct {
	posts *services.PostService
	log   *zap.Logger
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService, log *zap.Logger) *PostController {
	return &PostController{posts: posts, log: log}
}

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Image   string `json:"image"`
}

// CreatePost handles POST /post/create/:id; the path segment is the author's session token.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}

	post, err := p.posts.Create(ctx.Request.Context(), strings.TrimSpace(ctx.Param("id")), services.PostInput(req))
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	utils.Created(ctx, "Post added Sucessfully!", gin.H{"post": post})
}

// ListPosts handles GET /post/getAllPost.
func (p *PostController) ListPosts(ctx *gin.Context) {
	posts, err := p.posts.List(ctx.Request.Context())
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, posts)
}

// ListUserPosts handles GET /post/getUserPost/:id.
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	authorID, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	posts, err := p.posts.ListByAuthor(ctx.Request.Context(), authorID)
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, posts)
}

// GetPost handles GET /post/:id.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	post, err := p.posts.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, post)
}

// UpdatePost handles PUT /post/updatePost/:id for the post's author.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, codeNoSession, "unauthorized")
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}

	post, err := p.posts.Update(ctx.Request.Context(), user.ID, id, services.PostInput(req))
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	utils.Message(ctx, "Post updated", gin.H{"post": post})
}

// DeletePost handles DELETE /post/deletePost/:id for the post's author.
func (p *PostController) DeletePost(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, codeNoSession, "unauthorized")
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	if err := p.posts.Delete(ctx.Request.Context(), user.ID, id); err != nil {
		respondError(ctx, p.log, err)
		return
	}
	utils.Message(ctx, "Post deleted", nil)
}
