package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"qwerty/api/models"
	"qwerty/api/utils"
)

type PostgresPostStore struct {
	db  *sql.DB
	log *zap.Logger
}

func NewPostgresPostStore(db *sql.DB, log *zap.Logger) *PostgresPostStore {
	return &PostgresPostStore{db: db, log: log}
}

// generateUniqueSlug derives a slug from the title and appends -1, -2, ...
// until it no longer collides with an existing post. excludeSlug is the slug
// of the post being updated, which is allowed to keep its own slug.
func (s *PostgresPostStore) generateUniqueSlug(ctx context.Context, title, excludeSlug string) (string, error) {
	baseSlug := utils.Slugify(title)
	if len(baseSlug) < 3 {
		baseSlug = utils.SlugifyWithTimestamp(title)
	}
	baseSlug = utils.TruncateSlug(baseSlug, 250)

	slug := baseSlug
	for suffix := 1; ; suffix++ {
		var exists bool
		err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1 AND slug != $2)
		`, slug, excludeSlug).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("failed to check slug uniqueness: %w", err)
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", baseSlug, suffix)
	}
}

func (s *PostgresPostStore) CreatePost(ctx context.Context, userID int, req models.CreatePostRequest) (*models.Post, error) {
	slug, err := s.generateUniqueSlug(ctx, req.Title, "")
	if err != nil {
		return nil, err
	}

	styling := req.Styling
	if len(styling) == 0 {
		styling = []byte("{}")
	}

	var postID int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO posts (user_id, slug, title, content, is_anonymous, styling)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, userID, slug, req.Title, req.Content, req.IsAnonymous, []byte(styling)).Scan(&postID)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.log.Info("Post created", zap.Int64("post_id", postID), zap.String("slug", slug))
	return s.getPostByID(ctx, postID, userID)
}

const postSelect = `
	SELECT
		p.id, p.user_id, p.slug, p.title, p.content, p.is_anonymous, p.styling,
		p.created_at, p.updated_at,
		u.id, u.name, u.avatar_url,
		COALESCE(lc.likes_count, 0) AS likes_count,
		(ul.id IS NOT NULL) AS is_liked_by_user
	FROM posts p
	LEFT JOIN users u ON p.user_id = u.id
	LEFT JOIN (
		SELECT post_id, COUNT(*) AS likes_count
		FROM post_likes
		GROUP BY post_id
	) lc ON p.id = lc.post_id
	LEFT JOIN post_likes ul ON p.id = ul.post_id AND ul.user_id = $1
`

func (s *PostgresPostStore) scanPost(scanner interface {
	Scan(dest ...interface{}) error
}, viewerID int) (*models.Post, error) {
	post := &models.Post{}
	var (
		authorID     sql.NullInt64
		authorName   sql.NullString
		authorAvatar sql.NullString
		styling      []byte
	)
	err := scanner.Scan(
		&post.ID, &post.UserID, &post.Slug, &post.Title, &post.Content,
		&post.IsAnonymous, &styling, &post.CreatedAt, &post.UpdatedAt,
		&authorID, &authorName, &authorAvatar,
		&post.LikesCount, &post.IsLikedByUser,
	)
	if err != nil {
		return nil, err
	}
	post.Styling = styling

	// Anonymous posts hide the author from everyone except the owner.
	if authorID.Valid && (!post.IsAnonymous || post.UserID == viewerID) {
		post.Author = &models.Author{
			ID:        int(authorID.Int64),
			Name:      authorName.String,
			AvatarURL: authorAvatar.String,
		}
	}
	return post, nil
}

func (s *PostgresPostStore) getPostByID(ctx context.Context, id int64, viewerID int) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, postSelect+` WHERE p.id = $2`, viewerID, id)
	post, err := s.scanPost(row, viewerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (s *PostgresPostStore) ListPosts(ctx context.Context, opts ListPostsOptions) ([]models.Post, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	query := postSelect
	args := []interface{}{opts.ViewerID}
	if opts.AuthorID != 0 {
		args = append(args, opts.AuthorID)
		query += fmt.Sprintf(" WHERE p.user_id = $%d", len(args))
	}

	switch opts.Sort {
	case "popular":
		query += ` ORDER BY likes_count DESC, p.created_at DESC`
	default:
		query += ` ORDER BY p.created_at DESC`
	}

	args = append(args, opts.Limit, opts.Offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := s.scanPost(rows, opts.ViewerID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during post listing: %w", err)
	}
	return posts, nil
}

func (s *PostgresPostStore) CountPosts(ctx context.Context, authorID int) (int64, error) {
	query := `SELECT COUNT(*) FROM posts`
	var args []interface{}
	if authorID != 0 {
		query += ` WHERE user_id = $1`
		args = append(args, authorID)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return total, nil
}

func (s *PostgresPostStore) GetPostBySlug(ctx context.Context, slug string, viewerID int) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, postSelect+` WHERE p.slug = $2`, viewerID, slug)
	post, err := s.scanPost(row, viewerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post by slug: %w", err)
	}
	return post, nil
}

func (s *PostgresPostStore) UpdatePost(ctx context.Context, slug string, userID int, req models.UpdatePostRequest) (*models.Post, error) {
	var sets []string
	var args []interface{}

	addSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.Title != nil {
		addSet("title", *req.Title)
		newSlug, err := s.generateUniqueSlug(ctx, *req.Title, slug)
		if err != nil {
			return nil, err
		}
		addSet("slug", newSlug)
	}
	if req.Content != nil {
		addSet("content", *req.Content)
	}
	if req.IsAnonymous != nil {
		addSet("is_anonymous", *req.IsAnonymous)
	}
	if req.Styling != nil {
		addSet("styling", []byte(*req.Styling))
	}

	if len(sets) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, slug, userID)
	query := fmt.Sprintf(`
		UPDATE posts
		SET %s
		WHERE slug = $%d AND user_id = $%d
		RETURNING id
	`, strings.Join(sets, ", "), len(args)-1, len(args))

	var postID int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&postID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return s.getPostByID(ctx, postID, userID)
}

func (s *PostgresPostStore) DeletePost(ctx context.Context, slug string, userID int) error {
	var postID int64
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM posts
		WHERE slug = $1 AND user_id = $2
		RETURNING id
	`, slug, userID).Scan(&postID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.log.Info("Post deleted", zap.Int64("post_id", postID), zap.String("slug", slug))
	return nil
}

// ToggleLike flips the like state for (post, user) and returns the new state
// with the recounted total, all inside one transaction.
func (s *PostgresPostStore) ToggleLike(ctx context.Context, postID int64, userID int) (bool, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM post_likes WHERE post_id = $1 AND user_id = $2
	`, postID, userID).Scan(&existingID)

	var liked bool
	switch err {
	case nil:
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_likes WHERE id = $1`, existingID); err != nil {
			return false, 0, fmt.Errorf("failed to remove like: %w", err)
		}
		liked = false
	case sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)
		`, postID, userID); err != nil {
			return false, 0, fmt.Errorf("failed to add like: %w", err)
		}
		liked = true
	default:
		return false, 0, fmt.Errorf("failed to check existing like: %w", err)
	}

	var likesCount int64
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM post_likes WHERE post_id = $1
	`, postID).Scan(&likesCount)
	if err != nil {
		return false, 0, fmt.Errorf("failed to count likes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("failed to commit like transaction: %w", err)
	}

	return liked, likesCount, nil
}
