package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/applyhub/internal/config"
	"github.com/geocoder89/applyhub/internal/domain/submission"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/gin-gonic/gin"
)

type ApplicantHandler struct {
	accounts    *service.Accounts
	catalog     *service.Catalog
	submissions *service.Submissions
	eligibility *service.Eligibility
	log         *slog.Logger
}

func NewApplicantHandler(accounts *service.Accounts, catalog *service.Catalog, submissions *service.Submissions, eligibility *service.Eligibility, log *slog.Logger) *ApplicantHandler {
	return &ApplicantHandler{
		accounts:    accounts,
		catalog:     catalog,
		submissions: submissions,
		eligibility: eligibility,
		log:         log,
	}
}

func (h *ApplicantHandler) Profile(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	p := principal(ctx)

	u, err := h.accounts.Profile(cctx, p)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	progress, err := h.eligibility.Progress(cctx, p)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u, "progress": progress})
}

// Questions lists active questions with the caller's submission status.
func (h *ApplicantHandler) Questions(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	d, err := h.catalog.Dashboard(cctx, principal(ctx))
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, d)
}

func (h *ApplicantHandler) Submit(ctx *gin.Context) {
	var req submission.SubmitRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	res, err := h.submissions.Submit(cctx, principal(ctx), ctx.Param("id"), req.Link)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	ctx.JSON(status, res)
}

func (h *ApplicantHandler) Finalize(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	res, err := h.eligibility.Finalize(cctx, principal(ctx))
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}
