package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qwerty/api/models"
	"qwerty/api/service"
)

const storageTimeout = 10 * time.Second

type ViewHandlers struct {
	views service.ViewServicer
	log   *zap.Logger
}

func NewViewHandlers(views service.ViewServicer, log *zap.Logger) *ViewHandlers {
	return &ViewHandlers{views: views, log: log}
}

// TrackView handles POST /api/view. Duplicates within the dedup window are
// reported as success with a skipped flag so retrying callers see idempotent
// behavior.
func (h *ViewHandlers) TrackView(c *gin.Context) {
	var req models.TrackViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "URL is required",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storageTimeout)
	defer cancel()

	result, err := h.views.TrackView(ctx, req.URL, req.SessionID)
	if err != nil {
		h.log.Error("Error tracking view", zap.Error(err), zap.String("url", req.URL))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to track view",
		})
		return
	}

	if result.Skipped {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "View already counted",
			"data": gin.H{
				"url":        req.URL,
				"session_id": result.SessionID,
				"skipped":    true,
				"reason":     "duplicate",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "View tracked successfully",
		"data": gin.H{
			"url":        result.View.URL,
			"session_id": result.SessionID,
			"viewed_at":  result.View.ViewedAt,
		},
	})
}

// GetStats handles GET /api/stats. The type selector picks the payload:
// total, pages, top, period, today, or comprehensive (default).
func (h *ViewHandlers) GetStats(c *gin.Context) {
	statsType := c.DefaultQuery("type", "comprehensive")

	ctx, cancel := context.WithTimeout(c.Request.Context(), storageTimeout)
	defer cancel()

	var (
		data interface{}
		err  error
	)

	switch statsType {
	case "total":
		var total int64
		total, err = h.views.TotalViews(ctx)
		data = gin.H{"total_views": total}

	case "pages":
		var pages []models.PageStat
		pages, err = h.views.ViewsByPage(ctx)
		data = gin.H{"pages": emptyIfNilPages(pages)}

	case "top":
		limit := intQuery(c, "limit", 10)
		var pages []models.PageStat
		pages, err = h.views.TopPages(ctx, limit)
		data = gin.H{"top_pages": emptyIfNilPages(pages)}

	case "period":
		days := intQuery(c, "period", 7)
		var views []models.DailyStat
		views, err = h.views.ViewsByPeriod(ctx, days)
		data = gin.H{
			"period": fmt.Sprintf("%d days", days),
			"views":  emptyIfNilDaily(views),
		}

	case "today":
		var today models.TodayStats
		today, err = h.views.TodayStats(ctx)
		data = gin.H{"today_views": today}

	case "comprehensive":
		data, err = h.comprehensive(ctx)

	default:
		data, err = h.comprehensive(ctx)
	}

	if err != nil {
		h.log.Error("Error getting stats", zap.Error(err), zap.String("type", statsType))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get statistics",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func (h *ViewHandlers) comprehensive(ctx context.Context) (interface{}, error) {
	stats, err := h.views.ComprehensiveStats(ctx)
	if err != nil {
		return nil, err
	}
	stats.TopPages = emptyIfNilPages(stats.TopPages)
	stats.WeeklyTrend = emptyIfNilDaily(stats.WeeklyTrend)
	return stats, nil
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func emptyIfNilPages(stats []models.PageStat) []models.PageStat {
	if stats == nil {
		return []models.PageStat{}
	}
	return stats
}

func emptyIfNilDaily(stats []models.DailyStat) []models.DailyStat {
	if stats == nil {
		return []models.DailyStat{}
	}
	return stats
}
