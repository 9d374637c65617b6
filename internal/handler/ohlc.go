package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/solscope/phoenixscope/internal/model"
	"github.com/solscope/phoenixscope/internal/pkg/apperrors"
	"github.com/solscope/phoenixscope/internal/pkg/metrics"
)

// OHLCService is the query-serving contract consumed by the handler.
type OHLCService interface {
	GetOHLC(ctx context.Context, req model.OHLCRequest) (*model.OHLCResponse, error)
}

type OHLCHandler struct {
	svc OHLCService
}

func NewOHLCHandler(svc OHLCService) *OHLCHandler {
	return &OHLCHandler{svc: svc}
}

// GetOHLC serves GET /ohlc. Errors are pushed onto the gin error stack
// and rendered by the error middleware with the mapped status code.
func (h *OHLCHandler) GetOHLC(c *gin.Context) {
	req := model.OHLCRequest{
		UserID:         c.Query("user_id"),
		BaseTokenMint:  c.Query("base_token_mint"),
		QuoteTokenMint: c.Query("quote_token_mint"),
		Interval:       c.Query("interval"),
	}
	if req.UserID == "" || req.BaseTokenMint == "" || req.QuoteTokenMint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id, base_token_mint and quote_token_mint are required"})
		return
	}

	var err error
	req.StartTime, err = strconv.ParseInt(c.Query("start_time"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be a unix timestamp"})
		return
	}
	req.EndTime, err = strconv.ParseInt(c.Query("end_time"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_time must be a unix timestamp"})
		return
	}

	resp, err := h.svc.GetOHLC(c.Request.Context(), req)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(outcomeLabel(err)).Inc()
		_ = c.Error(err)
		return
	}

	metrics.QueriesTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, resp)
}

func outcomeLabel(err error) string {
	if appErr := apperrors.Wrap(err); appErr != nil {
		switch appErr.Type {
		case apperrors.ErrRateLimited:
			return "rate_limited"
		case apperrors.ErrInsufficientCredits:
			return "insufficient_credits"
		case apperrors.ErrNoData:
			return "no_data"
		case apperrors.ErrInvalidRange, apperrors.ErrInvalidInterval:
			return "invalid"
		}
	}
	return "error"
}
