package web

import (
	"bytes"
	"net/http"

	"github.com/geocoder89/applyhub/internal/domain/question"
	"github.com/geocoder89/applyhub/internal/session"
	"github.com/gin-gonic/gin"
)

type questionEditForm struct {
	Title      string              `form:"title" binding:"required,min=2,max=200"`
	Link       string              `form:"link" binding:"required,url,max=500"`
	Type       question.Type       `form:"type" binding:"required,oneof=MANDATORY RECOMMENDED"`
	Difficulty question.Difficulty `form:"difficulty" binding:"required,oneof=EASY MEDIUM HARD"`
	Active     bool                `form:"active"`
}

func (h *Handler) adminDashboard(c *gin.Context) {
	p := currentSession(c).Principal()

	stats, err := h.svc.Catalog.Stats(c.Request.Context(), p)
	if err != nil {
		h.renderStatus(c, http.StatusInternalServerError, "error.html", gin.H{"Message": h.failMessage(c, err)})
		return
	}

	h.render(c, "admin_dashboard.html", gin.H{"Stats": stats})
}

func (h *Handler) adminQuestions(c *gin.Context) {
	qs, err := h.svc.Catalog.ListQuestions(c.Request.Context(), currentSession(c).Principal(), false)
	if err != nil {
		h.renderStatus(c, http.StatusInternalServerError, "error.html", gin.H{"Message": h.failMessage(c, err)})
		return
	}

	h.render(c, "admin_questions.html", gin.H{
		"Questions":    qs,
		"Types":        []question.Type{question.TypeMandatory, question.TypeRecommended},
		"Difficulties": []question.Difficulty{question.DifficultyEasy, question.DifficultyMedium, question.DifficultyHard},
	})
}

func (h *Handler) adminCreateQuestion(c *gin.Context) {
	sess := currentSession(c)

	var req question.CreateRequest
	if bindFormFlash(c, &req, sess) {
		h.redirect(c, "/admin/questions")
		return
	}

	q, err := h.svc.Catalog.CreateQuestion(c.Request.Context(), sess.Principal(), req)
	if err != nil {
		sess.AddFlash(session.FlashError, h.failMessage(c, err))
	} else {
		sess.AddFlash(session.FlashSuccess, "Question \""+q.Title+"\" created.")
	}

	h.redirect(c, "/admin/questions")
}

func (h *Handler) adminEditQuestionPage(c *gin.Context) {
	sess := currentSession(c)

	q, err := h.svc.Catalog.GetQuestion(c.Request.Context(), sess.Principal(), c.Param("id"))
	if err != nil {
		sess.AddFlash(session.FlashError, h.failMessage(c, err))
		h.redirect(c, "/admin/questions")
		return
	}

	h.render(c, "admin_question_edit.html", gin.H{
		"Q":            q,
		"Types":        []question.Type{question.TypeMandatory, question.TypeRecommended},
		"Difficulties": []question.Difficulty{question.DifficultyEasy, question.DifficultyMedium, question.DifficultyHard},
	})
}

func (h *Handler) adminEditQuestion(c *gin.Context) {
	sess := currentSession(c)
	id := c.Param("id")

	var form questionEditForm
	if bindFormFlash(c, &form, sess) {
		h.redirect(c, "/admin/questions/"+id)
		return
	}

	_, err := h.svc.Catalog.UpdateQuestion(c.Request.Context(), sess.Principal(), id, question.UpdateRequest{
		Title:      &form.Title,
		Link:       &form.Link,
		Type:       &form.Type,
		Difficulty: &form.Difficulty,
		Active:     &form.Active,
	})
	if err != nil {
		sess.AddFlash(session.FlashError, h.failMessage(c, err))
		h.redirect(c, "/admin/questions/"+id)
		return
	}

	sess.AddFlash(session.FlashSuccess, "Question updated.")
	h.redirect(c, "/admin/questions")
}

func (h *Handler) adminDeactivateQuestion(c *gin.Context) {
	sess := currentSession(c)

	q, err := h.svc.Catalog.DeactivateQuestion(c.Request.Context(), sess.Principal(), c.Param("id"))
	if err != nil {
		sess.AddFlash(session.FlashError, h.failMessage(c, err))
	} else {
		sess.AddFlash(session.FlashSuccess, "Question \""+q.Title+"\" deactivated.")
	}

	h.redirect(c, "/admin/questions")
}

func (h *Handler) adminApplicants(c *gin.Context) {
	rows, err := h.svc.Ranking.Rank(c.Request.Context(), currentSession(c).Principal())
	if err != nil {
		h.renderStatus(c, http.StatusInternalServerError, "error.html", gin.H{"Message": h.failMessage(c, err)})
		return
	}

	h.render(c, "admin_applicants.html", gin.H{"Rows": rows})
}

func (h *Handler) adminExport(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.svc.Ranking.Export(c.Request.Context(), currentSession(c).Principal(), &buf); err != nil {
		sess := currentSession(c)
		sess.AddFlash(session.FlashError, h.failMessage(c, err))
		h.redirect(c, "/admin/applicants")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="applicants.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
