package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signalarchive/internal/repository"
)

// ArchiveHandler is the consumer read surface. The response shape is the
// contract the existing frontend consumes: {success, data, lastUpdated} on
// success and {error: ...} otherwise, always with transport status 200 so
// the client never has to special-case HTTP failures.
type ArchiveHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *ArchiveHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/archive", h.getArchive)
}

func (h *ArchiveHandler) getArchive(c *gin.Context) {
	if h.Repo == nil {
		c.JSON(http.StatusOK, gin.H{"error": "Archive data not found"})
		return
	}
	rows, err := h.Repo.ListArchiveRows(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("archive read failed", zap.Error(err))
		}
		c.JSON(http.StatusOK, gin.H{"error": "Archive data not found"})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusOK, gin.H{"error": "Archive data not found"})
		return
	}

	lastUpdated := time.Now().UTC()
	if ts, err := h.Repo.LatestArchiveCreatedAt(c.Request.Context()); err == nil && ts != nil {
		lastUpdated = ts.UTC()
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"data":        rows,
		"lastUpdated": lastUpdated.Format(time.RFC3339),
	})
}
