package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/geocoder89/applyhub/internal/config"
	"github.com/geocoder89/applyhub/internal/domain/job"
	"github.com/geocoder89/applyhub/internal/http/middlewares"
	"github.com/geocoder89/applyhub/internal/jobs"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/gin-gonic/gin"
)

type ExportsHandler struct {
	exports   *service.Exports
	exportDir string
	log       *slog.Logger
}

func NewExportsHandler(exports *service.Exports, exportDir string, log *slog.Logger) *ExportsHandler {
	return &ExportsHandler{exports: exports, exportDir: exportDir, log: log}
}

type exportStatus struct {
	ID          string     `json:"id"`
	Status      job.Status `json:"status"`
	Attempts    int        `json:"attempts"`
	LastError   *string    `json:"lastError,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DownloadURL string     `json:"downloadUrl,omitempty"`
}

func toExportStatus(j job.Job) exportStatus {
	out := exportStatus{
		ID:        j.ID,
		Status:    j.Status,
		Attempts:  j.Attempts,
		LastError: j.LastError,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.Status == job.StatusDone {
		out.DownloadURL = "/api/admin/exports/" + j.ID + "/file"
	}
	return out
}

func (h *ExportsHandler) Enqueue(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	j, err := h.exports.Enqueue(cctx, principal(ctx), requestIDFrom(ctx))
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.Set(middlewares.CtxJobID, j.ID)
	ctx.Header("Location", "/api/admin/exports/"+j.ID)
	ctx.JSON(http.StatusAccepted, toExportStatus(j))
}

func (h *ExportsHandler) Status(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	j, err := h.exports.Status(cctx, principal(ctx), ctx.Param("id"))
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, toExportStatus(j))
}

func (h *ExportsHandler) Download(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	j, err := h.exports.Status(cctx, principal(ctx), ctx.Param("id"))
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	if j.Status != job.StatusDone {
		RespondConflict(ctx, "export_not_ready", "Export has not finished", gin.H{"status": j.Status})
		return
	}

	path := filepath.Join(h.exportDir, jobs.ExportFileName(j.ID))
	if _, err := os.Stat(path); err != nil {
		RespondNotFound(ctx, "Export file is no longer available")
		return
	}

	ctx.FileAttachment(path, "applicants-"+j.CreatedAt.Format("20060102-150405")+".csv")
}
