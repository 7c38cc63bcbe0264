package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qwerty/api/middleware"
	"qwerty/api/models"
	"qwerty/api/store"
)

type PostHandlers struct {
	posts store.PostStore
	log   *zap.Logger
}

func NewPostHandlers(posts store.PostStore, log *zap.Logger) *PostHandlers {
	return &PostHandlers{posts: posts, log: log}
}

func (h *PostHandlers) CreatePost(c *gin.Context) {
	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Validation failed",
			"details": err.Error(),
		})
		return
	}

	userID := middleware.UserID(c)
	post, err := h.posts.CreatePost(c.Request.Context(), userID, req)
	if err != nil {
		h.log.Error("Failed to create post", zap.Error(err), zap.Int("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create post",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Post created",
		"data":    gin.H{"post": post},
	})
}

func (h *PostHandlers) ListPosts(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	page := intQuery(c, "page", 1)
	sort := c.DefaultQuery("sort", "recent")

	opts := store.ListPostsOptions{
		Limit:    limit,
		Offset:   (page - 1) * limit,
		Sort:     sort,
		ViewerID: middleware.UserID(c),
	}

	posts, err := h.posts.ListPosts(c.Request.Context(), opts)
	if err != nil {
		h.log.Error("Failed to list posts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list posts",
		})
		return
	}

	total, err := h.posts.CountPosts(c.Request.Context(), 0)
	if err != nil {
		h.log.Error("Failed to count posts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list posts",
		})
		return
	}

	if posts == nil {
		posts = []models.Post{}
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"posts": posts,
			"pagination": gin.H{
				"total":       total,
				"page":        page,
				"limit":       limit,
				"total_pages": totalPages,
			},
		},
	})
}

// GetMyPosts lists the authenticated user's own posts, including anonymous
// ones with authorship visible.
func (h *PostHandlers) GetMyPosts(c *gin.Context) {
	userID := middleware.UserID(c)

	opts := store.ListPostsOptions{
		Limit:    intQuery(c, "limit", 50),
		Offset:   0,
		ViewerID: userID,
		AuthorID: userID,
	}

	posts, err := h.posts.ListPosts(c.Request.Context(), opts)
	if err != nil {
		h.log.Error("Failed to list own posts", zap.Error(err), zap.Int("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list posts",
		})
		return
	}

	total, err := h.posts.CountPosts(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to count own posts", zap.Error(err), zap.Int("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list posts",
		})
		return
	}

	if posts == nil {
		posts = []models.Post{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"posts": posts,
			"total": total,
		},
	})
}

func (h *PostHandlers) GetPostBySlug(c *gin.Context) {
	slug := c.Param("slug")

	post, err := h.posts.GetPostBySlug(c.Request.Context(), slug, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Post not found",
			})
			return
		}
		h.log.Error("Failed to get post", zap.Error(err), zap.String("slug", slug))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get post",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"post": post},
	})
}

func (h *PostHandlers) UpdatePost(c *gin.Context) {
	var req models.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Validation failed",
			"details": err.Error(),
		})
		return
	}

	slug := c.Param("slug")
	userID := middleware.UserID(c)

	post, err := h.posts.UpdatePost(c.Request.Context(), slug, userID, req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Post not found or you do not have access",
			})
			return
		}
		h.log.Error("Failed to update post", zap.Error(err), zap.String("slug", slug))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to update post",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Post updated",
		"data":    gin.H{"post": post},
	})
}

func (h *PostHandlers) DeletePost(c *gin.Context) {
	slug := c.Param("slug")
	userID := middleware.UserID(c)

	if err := h.posts.DeletePost(c.Request.Context(), slug, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Post not found or you do not have access",
			})
			return
		}
		h.log.Error("Failed to delete post", zap.Error(err), zap.String("slug", slug))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to delete post",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Post deleted",
	})
}

func (h *PostHandlers) ToggleLike(c *gin.Context) {
	slug := c.Param("slug")
	userID := middleware.UserID(c)

	post, err := h.posts.GetPostBySlug(c.Request.Context(), slug, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Post not found",
			})
			return
		}
		h.log.Error("Failed to get post for like", zap.Error(err), zap.String("slug", slug))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to toggle like",
		})
		return
	}

	liked, likesCount, err := h.posts.ToggleLike(c.Request.Context(), post.ID, userID)
	if err != nil {
		h.log.Error("Failed to toggle like", zap.Error(err), zap.Int64("post_id", post.ID))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to toggle like",
		})
		return
	}

	message := "Post unliked"
	if liked {
		message = "Post liked"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data": gin.H{
			"is_liked":    liked,
			"likes_count": likesCount,
		},
	})
}
