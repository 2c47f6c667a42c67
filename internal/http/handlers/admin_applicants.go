package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/applyhub/internal/config"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/gin-gonic/gin"
)

type AdminApplicantsHandler struct {
	ranking *service.Ranking
	catalog *service.Catalog
	log     *slog.Logger
}

func NewAdminApplicantsHandler(ranking *service.Ranking, catalog *service.Catalog, log *slog.Logger) *AdminApplicantsHandler {
	return &AdminApplicantsHandler{ranking: ranking, catalog: catalog, log: log}
}

func (h *AdminApplicantsHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	rows, err := h.ranking.Rank(cctx, principal(ctx))
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": rows, "count": len(rows)})
}

// Export streams the ranking as a CSV attachment. The body is built first so
// an error can still produce a JSON envelope.
func (h *AdminApplicantsHandler) Export(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	var buf bytes.Buffer
	if err := h.ranking.Export(cctx, principal(ctx), &buf); err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.Header("Content-Disposition", `attachment; filename="applicants.csv"`)
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *AdminApplicantsHandler) Stats(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	stats, err := h.catalog.Stats(cctx, principal(ctx))
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, stats)
}
