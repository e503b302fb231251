package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signalarchive/internal/repository"
	"signalarchive/internal/service"
)

// PipelineHandler exposes the manual trigger and the run audit trail. The
// manual path runs the exact same service call as the cron schedule.
type PipelineHandler struct {
	Service *service.PipelineService
	Repo    repository.Repository
	Logger  *zap.Logger
}

func (h *PipelineHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/pipeline")
	group.POST("/run", h.runPipeline)
	group.GET("/runs", h.listRuns)
	r.POST("/api/v1/retention/sweep", h.sweep)
}

func (h *PipelineHandler) runPipeline(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	result, err := h.Service.Run(c.Request.Context(), service.TriggerManual)
	if err != nil {
		if errors.Is(err, repository.ErrRunInProgress) {
			Error(c, http.StatusConflict, err.Error(), nil)
			return
		}
		if errors.Is(err, service.ErrPipelineDisabled) {
			Error(c, http.StatusServiceUnavailable, err.Error(), nil)
			return
		}
		if h.Logger != nil {
			h.Logger.Warn("manual pipeline run failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), map[string]any{
			"run_id": result.RunID,
		})
		return
	}
	Ok(c, result, nil)
}

func (h *PipelineHandler) listRuns(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	runs, err := h.Repo.ListRuns(c.Request.Context(), limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, runs, nil)
}

func (h *PipelineHandler) sweep(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	swept, err := h.Service.Sweep(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"swept": swept}, nil)
}
