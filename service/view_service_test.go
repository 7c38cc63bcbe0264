package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"qwerty/api/models"
	"qwerty/api/store"
)

// MockViewStore is a mock implementation of store.ViewStore
type MockViewStore struct {
	mock.Mock
}

func (m *MockViewStore) RecentViewExists(ctx context.Context, sessionID, url string, since time.Time) (bool, error) {
	args := m.Called(ctx, sessionID, url, since)
	return args.Bool(0), args.Error(1)
}

func (m *MockViewStore) RecordView(ctx context.Context, url, sessionID string, viewedAt time.Time) (*models.PageView, error) {
	args := m.Called(ctx, url, sessionID, viewedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PageView), args.Error(1)
}

func (m *MockViewStore) TotalViews(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockViewStore) UniqueVisitors(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockViewStore) ViewsByPage(ctx context.Context) ([]models.PageStat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PageStat), args.Error(1)
}

func (m *MockViewStore) TopPages(ctx context.Context, limit int) ([]models.PageStat, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PageStat), args.Error(1)
}

func (m *MockViewStore) ViewsByPeriod(ctx context.Context, days int, now time.Time) ([]models.DailyStat, error) {
	args := m.Called(ctx, days, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DailyStat), args.Error(1)
}

func (m *MockViewStore) TodayStats(ctx context.Context, now time.Time) (models.TodayStats, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(models.TodayStats), args.Error(1)
}

// MockArchiver records enqueued events.
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Enqueue(event models.ViewEventRecord) bool {
	args := m.Called(event)
	return args.Bool(0)
}

func newTestService(viewStore store.ViewStore, at time.Time) *ViewService {
	svc := NewViewService(viewStore, nil, 30*time.Second, zap.NewNop())
	svc.now = func() time.Time { return at }
	return svc
}

var testBase = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func TestViewService_TrackView_GeneratesSessionID(t *testing.T) {
	memStore := store.NewMemoryViewStore()
	svc := newTestService(memStore, testBase)

	result, err := svc.TrackView(context.Background(), "/blog/a", "")
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, result.SessionID, result.View.SessionID)

	// A second call without a session id gets a fresh id and is accepted,
	// never deduplicated against the first.
	result2, err := svc.TrackView(context.Background(), "/blog/a", "")
	require.NoError(t, err)
	assert.False(t, result2.Skipped)
	assert.NotEqual(t, result.SessionID, result2.SessionID)
}

func TestViewService_TrackView_DuplicateWithinWindow(t *testing.T) {
	memStore := store.NewMemoryViewStore()
	svc := newTestService(memStore, testBase)

	first, err := svc.TrackView(context.Background(), "/blog/a", "s1")
	require.NoError(t, err)
	require.False(t, first.Skipped)

	// 1 second later: duplicate, nothing written.
	svc.now = func() time.Time { return testBase.Add(1 * time.Second) }
	second, err := svc.TrackView(context.Background(), "/blog/a", "s1")
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Nil(t, second.View)

	total, err := memStore.TotalViews(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	pages, err := memStore.ViewsByPage(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, int64(1), pages[0].TotalViews)
}

func TestViewService_TrackView_AcceptedAfterWindow(t *testing.T) {
	memStore := store.NewMemoryViewStore()
	svc := newTestService(memStore, testBase)

	_, err := svc.TrackView(context.Background(), "/blog/a", "s1")
	require.NoError(t, err)

	// 31 seconds later the window has passed: accepted again, but the
	// session is only counted once as a unique visitor.
	svc.now = func() time.Time { return testBase.Add(31 * time.Second) }
	result, err := svc.TrackView(context.Background(), "/blog/a", "s1")
	require.NoError(t, err)
	assert.False(t, result.Skipped)

	pages, err := memStore.ViewsByPage(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, int64(2), pages[0].TotalViews)
	assert.Equal(t, int64(1), pages[0].UniqueVisitors)
}

func TestViewService_TrackView_DistinctSessions(t *testing.T) {
	memStore := store.NewMemoryViewStore()
	svc := newTestService(memStore, testBase)

	_, err := svc.TrackView(context.Background(), "/blog/a", "s1")
	require.NoError(t, err)
	_, err = svc.TrackView(context.Background(), "/blog/a", "s2")
	require.NoError(t, err)

	pages, err := memStore.ViewsByPage(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, int64(2), pages[0].TotalViews)
	assert.Equal(t, int64(2), pages[0].UniqueVisitors)

	unique, err := memStore.UniqueVisitors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), unique)
}

func TestViewService_TrackView_DedupCheckError(t *testing.T) {
	mockStore := new(MockViewStore)
	svc := newTestService(mockStore, testBase)

	mockStore.On("RecentViewExists", mock.Anything, "s1", "/blog/a", mock.Anything).
		Return(false, errors.New("connection refused"))

	result, err := svc.TrackView(context.Background(), "/blog/a", "s1")
	assert.Error(t, err)
	assert.Nil(t, result)
	mockStore.AssertNotCalled(t, "RecordView", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestViewService_TrackView_ArchivesAcceptedOnly(t *testing.T) {
	memStore := store.NewMemoryViewStore()
	mockArchiver := new(MockArchiver)
	svc := NewViewService(memStore, mockArchiver, 30*time.Second, zap.NewNop())
	svc.now = func() time.Time { return testBase }

	mockArchiver.On("Enqueue", mock.MatchedBy(func(ev models.ViewEventRecord) bool {
		return ev.URL == "/blog/a" && ev.SessionID == "s1" && ev.EventID != ""
	})).Return(true).Once()

	_, err := svc.TrackView(context.Background(), "/blog/a", "s1")
	require.NoError(t, err)

	// Duplicate: nothing archived.
	svc.now = func() time.Time { return testBase.Add(2 * time.Second) }
	result, err := svc.TrackView(context.Background(), "/blog/a", "s1")
	require.NoError(t, err)
	require.True(t, result.Skipped)

	mockArchiver.AssertExpectations(t)
	mockArchiver.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestViewService_TotalViews_EqualsAcceptedCalls(t *testing.T) {
	memStore := store.NewMemoryViewStore()
	svc := newTestService(memStore, testBase)

	accepted := 0
	calls := []struct {
		url     string
		session string
		offset  time.Duration
	}{
		{"/blog/a", "s1", 0},
		{"/blog/a", "s1", 1 * time.Second}, // duplicate
		{"/blog/a", "s2", 2 * time.Second},
		{"/blog/b", "s1", 3 * time.Second},
		{"/blog/b", "s1", 40 * time.Second}, // past the window
	}
	for _, call := range calls {
		at := testBase.Add(call.offset)
		svc.now = func() time.Time { return at }
		result, err := svc.TrackView(context.Background(), call.url, call.session)
		require.NoError(t, err)
		if !result.Skipped {
			accepted++
		}
	}
	assert.Equal(t, 4, accepted)

	total, err := svc.TotalViews(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(accepted), total)

	// Sum of per-page totals must agree with the raw event count.
	pages, err := svc.ViewsByPage(context.Background())
	require.NoError(t, err)
	var sum int64
	for _, page := range pages {
		sum += page.TotalViews
	}
	assert.Equal(t, total, sum)
}

func TestViewService_ComprehensiveStats(t *testing.T) {
	memStore := store.NewMemoryViewStore()
	svc := newTestService(memStore, testBase)

	// Scenario from the dedup and distinct-session tests combined:
	// s1 views /blog/a twice 1s apart (one counted), s2 views /blog/a once,
	// then s1 views /blog/b once.
	_, err := svc.TrackView(context.Background(), "/blog/a", "s1")
	require.NoError(t, err)
	svc.now = func() time.Time { return testBase.Add(1 * time.Second) }
	dup, err := svc.TrackView(context.Background(), "/blog/a", "s1")
	require.NoError(t, err)
	require.True(t, dup.Skipped)
	svc.now = func() time.Time { return testBase.Add(2 * time.Second) }
	_, err = svc.TrackView(context.Background(), "/blog/a", "s2")
	require.NoError(t, err)
	svc.now = func() time.Time { return testBase.Add(3 * time.Second) }
	_, err = svc.TrackView(context.Background(), "/blog/b", "s1")
	require.NoError(t, err)

	stats, err := svc.ComprehensiveStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.TotalViews)
	assert.Equal(t, int64(2), stats.UniqueVisitors)
	assert.Equal(t, int64(3), stats.TodayStats.ViewsToday)
	assert.Equal(t, int64(2), stats.TodayStats.UniqueVisitorsToday)
	require.NotEmpty(t, stats.TopPages)
	assert.Equal(t, "/blog/a", stats.TopPages[0].URL)
	assert.Equal(t, int64(2), stats.TopPages[0].TotalViews)
	require.Len(t, stats.WeeklyTrend, 1)
	assert.Equal(t, int64(3), stats.WeeklyTrend[0].TotalViews)
}

func TestViewService_ComprehensiveStats_SubQueryFailureIsFatal(t *testing.T) {
	mockStore := new(MockViewStore)
	svc := newTestService(mockStore, testBase)

	mockStore.On("TotalViews", mock.Anything).Return(int64(10), nil).Maybe()
	mockStore.On("UniqueVisitors", mock.Anything).Return(int64(0), errors.New("connection reset")).Once()
	mockStore.On("TodayStats", mock.Anything, mock.Anything).Return(models.TodayStats{}, nil).Maybe()
	mockStore.On("TopPages", mock.Anything, 5).Return([]models.PageStat{}, nil).Maybe()
	mockStore.On("ViewsByPeriod", mock.Anything, 7, mock.Anything).Return([]models.DailyStat{}, nil).Maybe()

	stats, err := svc.ComprehensiveStats(context.Background())
	assert.Error(t, err)
	assert.Nil(t, stats)
}

func TestViewService_TodayStats_EmptyDay(t *testing.T) {
	memStore := store.NewMemoryViewStore()
	svc := newTestService(memStore, testBase)

	stats, err := svc.TodayStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ViewsToday)
	assert.Equal(t, int64(0), stats.UniqueVisitorsToday)
}

func TestViewService_DailyUniqueCountedOncePerDay(t *testing.T) {
	memStore := store.NewMemoryViewStore()
	svc := newTestService(memStore, testBase)

	// Same session views two different pages on the same day: two views,
	// one daily unique visitor.
	_, err := svc.TrackView(context.Background(), "/blog/a", "s1")
	require.NoError(t, err)
	svc.now = func() time.Time { return testBase.Add(time.Minute) }
	_, err = svc.TrackView(context.Background(), "/blog/b", "s1")
	require.NoError(t, err)

	stats, err := svc.TodayStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ViewsToday)
	assert.Equal(t, int64(1), stats.UniqueVisitorsToday)
}
