package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"wingo/internal/service"
)

// WagerHandler is the intake surface for player stakes.
type WagerHandler struct {
	Intake *service.WagerIntakeService
}

func (h *WagerHandler) Register(r *gin.Engine) {
	g := r.Group("/api")
	g.POST("/wagers", h.placeWager)
}

type placeWagerRequest struct {
	UserID     uint64 `json:"user_id" binding:"required"`
	PeriodCode string `json:"period_code" binding:"required"`
	BetType    string `json:"bet_type" binding:"required"`
	BetValue   string `json:"bet_value" binding:"required"`
	Amount     string `json:"amount" binding:"required"`
}

func (h *WagerHandler) placeWager(c *gin.Context) {
	if h.Intake == nil {
		Error(c, http.StatusInternalServerError, "intake unavailable")
		return
	}
	var req placeWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid amount")
		return
	}

	wager, err := h.Intake.PlaceWager(c.Request.Context(), req.UserID, req.PeriodCode, req.BetType, req.BetValue, amount)
	switch {
	case err == nil:
		Ok(c, wager)
	case errors.Is(err, service.ErrInvalidBet), errors.Is(err, service.ErrInvalidAmount):
		Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRoundClosed):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrBalanceTooLow):
		Error(c, http.StatusPaymentRequired, err.Error())
	default:
		Error(c, http.StatusBadGateway, err.Error())
	}
}
