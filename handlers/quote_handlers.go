package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qwerty/api/quotes"
)

const quoteTimeout = 30 * time.Second

type QuoteHandlers struct {
	quoter quotes.Quoter
	log    *zap.Logger
}

func NewQuoteHandlers(quoter quotes.Quoter, log *zap.Logger) *QuoteHandlers {
	return &QuoteHandlers{quoter: quoter, log: log}
}

type customQuoteRequest struct {
	Topic string `json:"topic" binding:"required"`
}

func (h *QuoteHandlers) GenerateQuote(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), quoteTimeout)
	defer cancel()

	quote, err := h.quoter.RandomQuote(ctx)
	if err != nil {
		h.respondQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Quote generated",
		"data": gin.H{
			"quote":        quote,
			"generated_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (h *QuoteHandlers) GenerateCustomQuote(c *gin.Context) {
	var req customQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Topic must not be empty",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), quoteTimeout)
	defer cancel()

	quote, err := h.quoter.CustomQuote(ctx, strings.TrimSpace(req.Topic))
	if err != nil {
		h.respondQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Quote generated",
		"data": gin.H{
			"quote":        quote,
			"topic":        req.Topic,
			"generated_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (h *QuoteHandlers) respondQuoteError(c *gin.Context, err error) {
	if errors.Is(err, quotes.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": "Quote generation is not configured",
		})
		return
	}

	h.log.Error("Failed to generate quote", zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{
		"success": false,
		"message": "Failed to generate quote",
	})
}
