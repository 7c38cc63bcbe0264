package store

import (
	"context"
	"errors"
	"time"

	"qwerty/api/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// ViewStore is the storage contract for the view tracking engine. RecordView
// must apply the event append and both aggregate upserts atomically; all read
// methods serve from the maintained aggregates, except TotalViews and
// UniqueVisitors which count the raw event log.
type ViewStore interface {
	// RecentViewExists reports whether the (session_id, url) pair produced an
	// accepted event strictly after since. Used by the deduplication gate.
	RecentViewExists(ctx context.Context, sessionID, url string, since time.Time) (bool, error)

	// RecordView appends the event and upserts page_stats and daily_stats in
	// one atomic unit. Callers invoke it only after the dedup gate accepts.
	RecordView(ctx context.Context, url, sessionID string, viewedAt time.Time) (*models.PageView, error)

	TotalViews(ctx context.Context) (int64, error)
	UniqueVisitors(ctx context.Context) (int64, error)
	ViewsByPage(ctx context.Context) ([]models.PageStat, error)
	TopPages(ctx context.Context, limit int) ([]models.PageStat, error)

	// ViewsByPeriod returns the trailing days calendar days including the day
	// of now (UTC), most recent first. Days without a row are omitted.
	ViewsByPeriod(ctx context.Context, days int, now time.Time) ([]models.DailyStat, error)

	// TodayStats returns zeros, not an error, when no row exists yet for the
	// UTC day of now.
	TodayStats(ctx context.Context, now time.Time) (models.TodayStats, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, name, email, avatarURL string, hashedPassword []byte) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	UpdateName(ctx context.Context, id int, name string) (*models.User, error)
}

// ListPostsOptions controls post listing. ViewerID and AuthorID of 0 mean
// "no authenticated viewer" and "all authors" respectively.
type ListPostsOptions struct {
	Limit    int
	Offset   int
	Sort     string // "recent" (default) or "popular"
	ViewerID int
	AuthorID int
}

type PostStore interface {
	CreatePost(ctx context.Context, userID int, req models.CreatePostRequest) (*models.Post, error)
	ListPosts(ctx context.Context, opts ListPostsOptions) ([]models.Post, error)
	CountPosts(ctx context.Context, authorID int) (int64, error)
	GetPostBySlug(ctx context.Context, slug string, viewerID int) (*models.Post, error)
	UpdatePost(ctx context.Context, slug string, userID int, req models.UpdatePostRequest) (*models.Post, error)
	DeletePost(ctx context.Context, slug string, userID int) error
	ToggleLike(ctx context.Context, postID int64, userID int) (liked bool, likesCount int64, err error)
}

// ViewEventArchive receives accepted view events for the ad-hoc analytics
// mirror. Implementations must tolerate being called with large batches.
type ViewEventArchive interface {
	InsertViewEvents(ctx context.Context, events []models.ViewEventRecord) error
}
