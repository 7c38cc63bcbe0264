package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"qwerty/api/models"
)

// PostgresViewStore persists view events and maintains the denormalized
// page_stats and daily_stats tables. All calendar math is done on UTC dates
// computed in Go, so behavior does not depend on the server timezone.
type PostgresViewStore struct {
	db  *sql.DB
	log *zap.Logger
}

func NewPostgresViewStore(db *sql.DB, log *zap.Logger) *PostgresViewStore {
	return &PostgresViewStore{db: db, log: log}
}

func (s *PostgresViewStore) RecentViewExists(ctx context.Context, sessionID, url string, since time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM page_views
			WHERE session_id = $1 AND url = $2 AND viewed_at > $3
		)
	`
	if err := s.db.QueryRowContext(ctx, query, sessionID, url, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check for recent view: %w", err)
	}
	return exists, nil
}

// RecordView appends the event and updates both aggregate tables inside one
// transaction, so a crash can never leave the aggregates reflecting a view
// that was not appended (or vice versa). The "first view" flags are computed
// from the event log after the insert: a count of exactly 1 means this row is
// the first for its (session, url) or (session, day) scope.
func (s *PostgresViewStore) RecordView(ctx context.Context, url, sessionID string, viewedAt time.Time) (*models.PageView, error) {
	viewedAt = viewedAt.UTC()
	day := viewedAt.Format("2006-01-02")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	view := &models.PageView{URL: url, SessionID: sessionID, ViewedAt: viewedAt}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO page_views (url, session_id, viewed_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, url, sessionID, viewedAt).Scan(&view.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert page view: %w", err)
	}

	var pairCount int64
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM page_views
		WHERE session_id = $1 AND url = $2
	`, sessionID, url).Scan(&pairCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count session views for url: %w", err)
	}
	pageUniqueInc := 0
	if pairCount == 1 {
		pageUniqueInc = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO page_stats (url, total_views, unique_visitors, last_viewed_at, updated_at)
		VALUES ($1, 1, $2, $3, $3)
		ON CONFLICT (url) DO UPDATE SET
			total_views = page_stats.total_views + 1,
			unique_visitors = page_stats.unique_visitors + $2,
			last_viewed_at = $3,
			updated_at = $3
	`, url, pageUniqueInc, viewedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert page stats: %w", err)
	}

	var dayCount int64
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM page_views
		WHERE session_id = $1 AND (viewed_at AT TIME ZONE 'UTC')::date = $2::date
	`, sessionID, day).Scan(&dayCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count session views for day: %w", err)
	}
	dailyUniqueInc := 0
	if dayCount == 1 {
		dailyUniqueInc = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO daily_stats (date, total_views, unique_visitors)
		VALUES ($1::date, 1, $2)
		ON CONFLICT (date) DO UPDATE SET
			total_views = daily_stats.total_views + 1,
			unique_visitors = daily_stats.unique_visitors + $2
	`, day, dailyUniqueInc)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert daily stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit view transaction: %w", err)
	}

	return view, nil
}

func (s *PostgresViewStore) TotalViews(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM page_views`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count page views: %w", err)
	}
	return total, nil
}

func (s *PostgresViewStore) UniqueVisitors(ctx context.Context) (int64, error) {
	var unique int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT session_id) FROM page_views`).Scan(&unique); err != nil {
		return 0, fmt.Errorf("failed to count unique visitors: %w", err)
	}
	return unique, nil
}

func (s *PostgresViewStore) ViewsByPage(ctx context.Context) ([]models.PageStat, error) {
	return s.queryPageStats(ctx, `
		SELECT url, total_views, unique_visitors, last_viewed_at
		FROM page_stats
		ORDER BY total_views DESC, url ASC
	`)
}

func (s *PostgresViewStore) TopPages(ctx context.Context, limit int) ([]models.PageStat, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryPageStats(ctx, `
		SELECT url, total_views, unique_visitors, last_viewed_at
		FROM page_stats
		ORDER BY total_views DESC, url ASC
		LIMIT $1
	`, limit)
}

func (s *PostgresViewStore) queryPageStats(ctx context.Context, query string, args ...interface{}) ([]models.PageStat, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query page stats: %w", err)
	}
	defer rows.Close()

	var stats []models.PageStat
	for rows.Next() {
		var stat models.PageStat
		if err := rows.Scan(&stat.URL, &stat.TotalViews, &stat.UniqueVisitors, &stat.LastViewedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page stat row: %w", err)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during page stats query: %w", err)
	}
	return stats, nil
}

func (s *PostgresViewStore) ViewsByPeriod(ctx context.Context, days int, now time.Time) ([]models.DailyStat, error) {
	if days <= 0 {
		days = 7
	}
	start := now.UTC().AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, total_views, unique_visitors
		FROM daily_stats
		WHERE date >= $1::date
		ORDER BY date DESC
	`, start)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []models.DailyStat
	for rows.Next() {
		var stat models.DailyStat
		if err := rows.Scan(&stat.Date, &stat.TotalViews, &stat.UniqueVisitors); err != nil {
			return nil, fmt.Errorf("failed to scan daily stat row: %w", err)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during daily stats query: %w", err)
	}
	return stats, nil
}

func (s *PostgresViewStore) TodayStats(ctx context.Context, now time.Time) (models.TodayStats, error) {
	today := now.UTC().Format("2006-01-02")

	var stats models.TodayStats
	err := s.db.QueryRowContext(ctx, `
		SELECT total_views, unique_visitors
		FROM daily_stats
		WHERE date = $1::date
	`, today).Scan(&stats.ViewsToday, &stats.UniqueVisitorsToday)
	if err == sql.ErrNoRows {
		// No views yet today is not an error.
		return models.TodayStats{}, nil
	}
	if err != nil {
		return models.TodayStats{}, fmt.Errorf("failed to query today stats: %w", err)
	}
	return stats, nil
}
