package models

import (
	"encoding/json"
	"time"
)

// Author is the public subset of a user attached to non-anonymous posts.
type Author struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type Post struct {
	ID            int64           `json:"id"`
	UserID        int             `json:"user_id"`
	Slug          string          `json:"slug"`
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	IsAnonymous   bool            `json:"is_anonymous"`
	Styling       json.RawMessage `json:"styling,omitempty"`
	Author        *Author         `json:"author"`
	LikesCount    int64           `json:"likes_count"`
	IsLikedByUser bool            `json:"is_liked_by_user"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type CreatePostRequest struct {
	Title       string          `json:"title" binding:"required,min=3,max=255"`
	Content     string          `json:"content" binding:"required"`
	IsAnonymous bool            `json:"is_anonymous"`
	Styling     json.RawMessage `json:"styling"`
}

type UpdatePostRequest struct {
	Title       *string          `json:"title" binding:"omitempty,min=3,max=255"`
	Content     *string          `json:"content"`
	IsAnonymous *bool            `json:"is_anonymous"`
	Styling     *json.RawMessage `json:"styling"`
}
