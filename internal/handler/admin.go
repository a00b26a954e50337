package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wingo/internal/repository"
	"wingo/internal/scheduler"
	"wingo/internal/service"
	"wingo/internal/verify"
)

// AdminHandler is the admin override channel: manual outcomes, forced round
// transitions, runtime settings and lane introspection.
type AdminHandler struct {
	Repo      repository.Repository
	Scheduler *scheduler.Scheduler
	Verifier  *verify.Verifier
	Settings  *service.GameSettingsService
}

func (h *AdminHandler) Register(r *gin.Engine) {
	g := r.Group("/admin")
	g.GET("/lanes", h.lanes)
	g.GET("/rounds/:code", h.getRound)
	g.POST("/rounds/:code/outcome", h.scheduleOutcome)
	g.POST("/rounds/:code/force-complete", h.forceComplete)
	g.POST("/rounds/:code/cancel", h.cancel)
	g.GET("/verifier", h.verifier)
	g.POST("/verifier/auto-fix", h.autoFix)
	g.GET("/settings", h.listSettings)
	g.PUT("/settings/:key", h.putSetting)
}

func (h *AdminHandler) lanes(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable")
		return
	}
	Ok(c, h.Scheduler.Snapshot())
}

func (h *AdminHandler) getRound(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		Error(c, http.StatusBadRequest, "invalid period code")
		return
	}
	round, err := h.Repo.GetRoundByCode(c.Request.Context(), code)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if round == nil {
		Error(c, http.StatusNotFound, "round not found")
		return
	}
	Ok(c, round)
}

type scheduleOutcomeRequest struct {
	Digit int `json:"digit"`
}

func (h *AdminHandler) scheduleOutcome(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable")
		return
	}
	code := strings.TrimSpace(c.Param("code"))
	var req scheduleOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.Scheduler.ScheduleOutcome(c.Request.Context(), code, req.Digit); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	Ok(c, gin.H{"period_code": code, "digit": req.Digit})
}

func (h *AdminHandler) forceComplete(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable")
		return
	}
	code := strings.TrimSpace(c.Param("code"))
	if err := h.Scheduler.ForceComplete(code); err != nil {
		Error(c, http.StatusConflict, err.Error())
		return
	}
	Ok(c, gin.H{"period_code": code})
}

func (h *AdminHandler) cancel(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable")
		return
	}
	code := strings.TrimSpace(c.Param("code"))
	if err := h.Scheduler.Cancel(code); err != nil {
		Error(c, http.StatusConflict, err.Error())
		return
	}
	Ok(c, gin.H{"period_code": code})
}

func (h *AdminHandler) verifier(c *gin.Context) {
	if h.Verifier == nil {
		Error(c, http.StatusInternalServerError, "verifier unavailable")
		return
	}
	Ok(c, gin.H{
		"results":         h.Verifier.VerifyAll(c.Request.Context()),
		"inconsistencies": h.Verifier.Inconsistencies(),
	})
}

func (h *AdminHandler) autoFix(c *gin.Context) {
	if h.Verifier == nil {
		Error(c, http.StatusInternalServerError, "verifier unavailable")
		return
	}
	fixed, errs := h.Verifier.AutoFix(c.Request.Context())
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	Ok(c, gin.H{"fixed": fixed, "unresolved": msgs})
}

func (h *AdminHandler) listSettings(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings unavailable")
		return
	}
	items, err := h.Settings.List(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}

type putSettingRequest struct {
	Value any `json:"value"`
}

func (h *AdminHandler) putSetting(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings unavailable")
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		Error(c, http.StatusBadRequest, "invalid key")
		return
	}
	var req putSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	raw, err := json.Marshal(req.Value)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid value")
		return
	}
	if err := h.Settings.Set(c.Request.Context(), key, raw); err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, gin.H{"key": key})
}
