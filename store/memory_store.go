package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"qwerty/api/models"
)

// MemoryViewStore is a mutex-guarded, in-memory ViewStore. It backs the
// "memory" storage driver for local development and stands in for Postgres in
// tests. It implements the same atomicity contract as PostgresViewStore: the
// event append and both aggregate updates happen under one lock.
type MemoryViewStore struct {
	mu         sync.RWMutex
	nextID     int64
	events     []models.PageView
	pageStats  map[string]*models.PageStat
	dailyStats map[string]*models.DailyStat
}

func NewMemoryViewStore() *MemoryViewStore {
	return &MemoryViewStore{
		pageStats:  make(map[string]*models.PageStat),
		dailyStats: make(map[string]*models.DailyStat),
	}
}

func (s *MemoryViewStore) RecentViewExists(_ context.Context, sessionID, url string, since time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.events) - 1; i >= 0; i-- {
		ev := s.events[i]
		if ev.SessionID == sessionID && ev.URL == url && ev.ViewedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryViewStore) RecordView(_ context.Context, url, sessionID string, viewedAt time.Time) (*models.PageView, error) {
	viewedAt = viewedAt.UTC()
	day := viewedAt.Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()

	firstForPage := true
	firstToday := true
	for _, ev := range s.events {
		if ev.SessionID != sessionID {
			continue
		}
		if ev.URL == url {
			firstForPage = false
		}
		if ev.ViewedAt.Format("2006-01-02") == day {
			firstToday = false
		}
	}

	s.nextID++
	view := models.PageView{ID: s.nextID, URL: url, SessionID: sessionID, ViewedAt: viewedAt}
	s.events = append(s.events, view)

	ps, ok := s.pageStats[url]
	if !ok {
		ps = &models.PageStat{URL: url}
		s.pageStats[url] = ps
	}
	ps.TotalViews++
	if firstForPage {
		ps.UniqueVisitors++
	}
	ps.LastViewedAt = viewedAt

	ds, ok := s.dailyStats[day]
	if !ok {
		date, _ := time.Parse("2006-01-02", day)
		ds = &models.DailyStat{Date: date}
		s.dailyStats[day] = ds
	}
	ds.TotalViews++
	if firstToday {
		ds.UniqueVisitors++
	}

	return &view, nil
}

func (s *MemoryViewStore) TotalViews(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.events)), nil
}

func (s *MemoryViewStore) UniqueVisitors(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make(map[string]struct{})
	for _, ev := range s.events {
		sessions[ev.SessionID] = struct{}{}
	}
	return int64(len(sessions)), nil
}

func (s *MemoryViewStore) ViewsByPage(_ context.Context) ([]models.PageStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedPageStats(0), nil
}

func (s *MemoryViewStore) TopPages(_ context.Context, limit int) ([]models.PageStat, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedPageStats(limit), nil
}

// sortedPageStats snapshots the aggregates ordered by total_views descending
// with url ascending as the tie-break. Caller must hold at least a read lock.
func (s *MemoryViewStore) sortedPageStats(limit int) []models.PageStat {
	stats := make([]models.PageStat, 0, len(s.pageStats))
	for _, ps := range s.pageStats {
		stats = append(stats, *ps)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalViews != stats[j].TotalViews {
			return stats[i].TotalViews > stats[j].TotalViews
		}
		return stats[i].URL < stats[j].URL
	})
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

func (s *MemoryViewStore) ViewsByPeriod(_ context.Context, days int, now time.Time) ([]models.DailyStat, error) {
	if days <= 0 {
		days = 7
	}
	start := now.UTC().AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats []models.DailyStat
	for day, ds := range s.dailyStats {
		if day >= start {
			stats = append(stats, *ds)
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Date.After(stats[j].Date)
	})
	return stats, nil
}

func (s *MemoryViewStore) TodayStats(_ context.Context, now time.Time) (models.TodayStats, error) {
	today := now.UTC().Format("2006-01-02")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.dailyStats[today]
	if !ok {
		return models.TodayStats{}, nil
	}
	return models.TodayStats{ViewsToday: ds.TotalViews, UniqueVisitorsToday: ds.UniqueVisitors}, nil
}
