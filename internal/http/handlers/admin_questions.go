package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/applyhub/internal/config"
	"github.com/geocoder89/applyhub/internal/domain/question"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/gin-gonic/gin"
)

type AdminQuestionsHandler struct {
	catalog *service.Catalog
	log     *slog.Logger
}

func NewAdminQuestionsHandler(catalog *service.Catalog, log *slog.Logger) *AdminQuestionsHandler {
	return &AdminQuestionsHandler{catalog: catalog, log: log}
}

// List returns active questions; ?all=true includes deactivated ones.
func (h *AdminQuestionsHandler) List(ctx *gin.Context) {
	includeInactive, _ := strconv.ParseBool(ctx.DefaultQuery("all", "false"))

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	qs, err := h.catalog.ListQuestions(cctx, principal(ctx), includeInactive)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": qs, "count": len(qs)})
}

func (h *AdminQuestionsHandler) Get(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	q, err := h.catalog.GetQuestion(cctx, principal(ctx), ctx.Param("id"))
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, q)
}

func (h *AdminQuestionsHandler) Create(ctx *gin.Context) {
	var req question.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	q, err := h.catalog.CreateQuestion(cctx, principal(ctx), req)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.Header("Location", "/api/admin/questions/"+q.ID)
	ctx.JSON(http.StatusCreated, q)
}

func (h *AdminQuestionsHandler) Update(ctx *gin.Context) {
	var req question.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	q, err := h.catalog.UpdateQuestion(cctx, principal(ctx), ctx.Param("id"), req)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, q)
}

// Deactivate is a logical delete; submissions against the question keep counting.
func (h *AdminQuestionsHandler) Deactivate(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	q, err := h.catalog.DeactivateQuestion(cctx, principal(ctx), ctx.Param("id"))
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, q)
}
