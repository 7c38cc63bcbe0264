package models

import "time"

// PageView is one accepted view event. Rows are append-only; the aggregate
// tables below are maintained from them and never recomputed on read.
type PageView struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	SessionID string    `json:"session_id"`
	ViewedAt  time.Time `json:"viewed_at"`
}

// PageStat is the per-url aggregate row, upserted on every accepted view.
type PageStat struct {
	URL            string    `json:"url"`
	TotalViews     int64     `json:"total_views"`
	UniqueVisitors int64     `json:"unique_visitors"`
	LastViewedAt   time.Time `json:"last_viewed_at"`
}

// DailyStat is the per-calendar-date aggregate row. Dates are UTC.
type DailyStat struct {
	Date           time.Time `json:"date"`
	TotalViews     int64     `json:"total_views"`
	UniqueVisitors int64     `json:"unique_visitors"`
}

type TodayStats struct {
	ViewsToday          int64 `json:"views_today"`
	UniqueVisitorsToday int64 `json:"unique_visitors_today"`
}

// ComprehensiveStats bundles the dashboard queries into one payload.
type ComprehensiveStats struct {
	TotalViews     int64       `json:"total_views"`
	UniqueVisitors int64       `json:"unique_visitors"`
	TodayStats     TodayStats  `json:"today_stats"`
	TopPages       []PageStat  `json:"top_pages"`
	WeeklyTrend    []DailyStat `json:"weekly_trend"`
}

type TrackViewRequest struct {
	URL       string `json:"url" binding:"required"`
	SessionID string `json:"session_id"`
}
