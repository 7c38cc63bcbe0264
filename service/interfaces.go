package service

import (
	"context"

	"qwerty/api/models"
)

// ViewServicer is the contract the view handlers depend on.
type ViewServicer interface {
	TrackView(ctx context.Context, url, sessionID string) (*TrackResult, error)
	TotalViews(ctx context.Context) (int64, error)
	UniqueVisitors(ctx context.Context) (int64, error)
	ViewsByPage(ctx context.Context) ([]models.PageStat, error)
	TopPages(ctx context.Context, limit int) ([]models.PageStat, error)
	ViewsByPeriod(ctx context.Context, days int) ([]models.DailyStat, error)
	TodayStats(ctx context.Context) (models.TodayStats, error)
	ComprehensiveStats(ctx context.Context) (*models.ComprehensiveStats, error)
}

// EventArchiver receives accepted events for best-effort archiving. Enqueue
// must not block; it reports whether the event was accepted.
type EventArchiver interface {
	Enqueue(event models.ViewEventRecord) bool
}
