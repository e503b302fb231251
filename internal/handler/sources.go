package handler

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signalarchive/internal/repository"
	"signalarchive/internal/tabular"
)

// SourcesHandler is the operator ingest surface: upstream jobs (or a human
// with curl) push a full CSV snapshot of a source table; the pipeline reads
// whatever snapshot is current at run time.
type SourcesHandler struct {
	Store  *tabular.Store
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *SourcesHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/sources")
	group.GET("", h.listSources)
	group.POST("/:name", h.replaceSource)
	group.POST("/:name/rows", h.appendRows)
	group.DELETE("/:name/rows", h.deleteRows)
}

func (h *SourcesHandler) listSources(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tabs, err := h.Repo.ListSheetTabs(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, tabs, nil)
}

func (h *SourcesHandler) replaceSource(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "source name required", nil)
		return
	}

	reader := csv.NewReader(c.Request.Body)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid csv: "+err.Error(), nil)
		return
	}
	if len(records) == 0 {
		Error(c, http.StatusBadRequest, "csv body must include a header row", nil)
		return
	}

	table := &tabular.Table{
		Name:    name,
		Headers: records[0],
		Rows:    records[1:],
	}
	if err := h.Store.Replace(c.Request.Context(), table); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("source replace failed", zap.String("source", name), zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"source": name, "rows": len(table.Rows)}, nil)
}

// appendRows takes a CSV body of data rows (no header row) and appends them
// after the table's current last position. The table must already exist.
func (h *SourcesHandler) appendRows(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "source name required", nil)
		return
	}

	reader := csv.NewReader(c.Request.Body)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid csv: "+err.Error(), nil)
		return
	}
	if len(rows) == 0 {
		Error(c, http.StatusBadRequest, "csv body must include at least one row", nil)
		return
	}

	if err := h.Store.AppendRows(c.Request.Context(), name, rows); err != nil {
		if errors.Is(err, tabular.ErrTableNotFound) {
			Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		if h.Logger != nil {
			h.Logger.Warn("source append failed", zap.String("source", name), zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"source": name, "appended": len(rows)}, nil)
}

// deleteRows removes the rows at the given positions in one batch.
func (h *SourcesHandler) deleteRows(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "source name required", nil)
		return
	}
	var body struct {
		Positions []int `json:"positions"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if len(body.Positions) == 0 {
		Error(c, http.StatusBadRequest, "positions required", nil)
		return
	}

	if err := h.Store.DeleteRows(c.Request.Context(), name, body.Positions); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("source delete rows failed", zap.String("source", name), zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"source": name, "deleted": len(body.Positions)}, nil)
}
