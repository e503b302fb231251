package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signalarchive/internal/repository"
)

type ErrorsHandler struct {
	Repo repository.Repository
}

func (h *ErrorsHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/errors", h.listErrors)
}

func (h *ErrorsHandler) listErrors(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	items, err := h.Repo.ListErrorRecords(c.Request.Context(), limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
