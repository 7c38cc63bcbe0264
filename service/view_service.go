package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"qwerty/api/models"
	"qwerty/api/store"
	"qwerty/api/utils"
)

// TrackResult is the outcome of one ingestion call. Skipped means the event
// was suppressed as a duplicate; the call still succeeded from the caller's
// point of view. SessionID is always set, including the generated one when
// the caller supplied none.
type TrackResult struct {
	View      *models.PageView
	SessionID string
	Skipped   bool
}

// ViewService runs the view tracking engine: the deduplication gate in front
// of the store's atomic record operation, and the read facade over the
// maintained aggregates.
type ViewService struct {
	store    store.ViewStore
	archiver EventArchiver
	window   time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewViewService wires the engine. archiver may be nil when the ClickHouse
// mirror is disabled. window is the deduplication lookback.
func NewViewService(viewStore store.ViewStore, archiver EventArchiver, window time.Duration, log *zap.Logger) *ViewService {
	return &ViewService{
		store:    viewStore,
		archiver: archiver,
		window:   window,
		log:      log,
		now:      time.Now,
	}
}

// TrackView ingests one view event. An empty sessionID gets a fresh random
// identifier, which the caller should persist and resend for deduplication to
// work on subsequent calls. A duplicate within the lookback window writes
// nothing and reports Skipped.
//
// Two concurrent calls for the same (session, url) can both pass the gate and
// both be recorded. That brief over-count is accepted; the gate promises
// window semantics, not exactly-once.
func (s *ViewService) TrackView(ctx context.Context, url, sessionID string) (*TrackResult, error) {
	if sessionID == "" {
		sessionID = utils.GenerateSessionID()
	}

	now := s.now().UTC()

	recent, err := s.store.RecentViewExists(ctx, sessionID, url, now.Add(-s.window))
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate view: %w", err)
	}
	if recent {
		s.log.Debug("Duplicate view skipped",
			zap.String("url", url),
			zap.String("session_id", sessionID))
		return &TrackResult{SessionID: sessionID, Skipped: true}, nil
	}

	view, err := s.store.RecordView(ctx, url, sessionID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record view: %w", err)
	}

	if s.archiver != nil {
		s.archiver.Enqueue(models.ViewEventRecord{
			EventID:   uuid.New().String(),
			URL:       view.URL,
			SessionID: view.SessionID,
			ViewedAt:  view.ViewedAt,
		})
	}

	return &TrackResult{View: view, SessionID: sessionID}, nil
}

func (s *ViewService) TotalViews(ctx context.Context) (int64, error) {
	return s.store.TotalViews(ctx)
}

func (s *ViewService) UniqueVisitors(ctx context.Context) (int64, error) {
	return s.store.UniqueVisitors(ctx)
}

func (s *ViewService) ViewsByPage(ctx context.Context) ([]models.PageStat, error) {
	return s.store.ViewsByPage(ctx)
}

func (s *ViewService) TopPages(ctx context.Context, limit int) ([]models.PageStat, error) {
	return s.store.TopPages(ctx, limit)
}

func (s *ViewService) ViewsByPeriod(ctx context.Context, days int) ([]models.DailyStat, error) {
	return s.store.ViewsByPeriod(ctx, days, s.now())
}

func (s *ViewService) TodayStats(ctx context.Context) (models.TodayStats, error) {
	return s.store.TodayStats(ctx, s.now())
}

// ComprehensiveStats assembles the dashboard bundle. The five sub-queries run
// concurrently; the first failure cancels the rest and fails the whole bundle
// rather than returning a partial payload.
func (s *ViewService) ComprehensiveStats(ctx context.Context) (*models.ComprehensiveStats, error) {
	now := s.now()
	stats := &models.ComprehensiveStats{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.store.TotalViews(ctx)
		stats.TotalViews = total
		return err
	})
	g.Go(func() error {
		unique, err := s.store.UniqueVisitors(ctx)
		stats.UniqueVisitors = unique
		return err
	})
	g.Go(func() error {
		today, err := s.store.TodayStats(ctx, now)
		stats.TodayStats = today
		return err
	})
	g.Go(func() error {
		top, err := s.store.TopPages(ctx, 5)
		stats.TopPages = top
		return err
	})
	g.Go(func() error {
		trend, err := s.store.ViewsByPeriod(ctx, 7, now)
		stats.WeeklyTrend = trend
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to assemble comprehensive stats: %w", err)
	}
	return stats, nil
}
