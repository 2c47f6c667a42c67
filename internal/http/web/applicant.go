package web

import (
	"github.com/geocoder89/applyhub/internal/http/handlers"
	"github.com/geocoder89/applyhub/internal/session"
	"github.com/gin-gonic/gin"
)

type submitForm struct {
	Link string `form:"link" binding:"required,max=500"`
}

func (h *Handler) dashboard(c *gin.Context) {
	d, err := h.svc.Catalog.Dashboard(c.Request.Context(), currentSession(c).Principal())
	if err != nil {
		h.renderStatus(c, statusFor(err), "error.html", gin.H{"Message": h.failMessage(c, err)})
		return
	}

	h.render(c, "dashboard.html", gin.H{"D": d})
}

func (h *Handler) submit(c *gin.Context) {
	sess := currentSession(c)

	var form submitForm
	if bindFormFlash(c, &form, sess) {
		h.redirect(c, "/dashboard")
		return
	}

	res, err := h.svc.Submissions.Submit(c.Request.Context(), sess.Principal(), c.Param("id"), form.Link)
	switch {
	case err != nil:
		sess.AddFlash(session.FlashError, h.failMessage(c, err))
	case res.Created:
		sess.AddFlash(session.FlashSuccess, "Submission saved.")
	default:
		sess.AddFlash(session.FlashSuccess, "Submission updated.")
	}

	h.redirect(c, "/dashboard")
}

func (h *Handler) finalize(c *gin.Context) {
	sess := currentSession(c)

	res, err := h.svc.Eligibility.Finalize(c.Request.Context(), sess.Principal())
	switch {
	case err != nil:
		sess.AddFlash(session.FlashError, h.failMessage(c, err))
	case res.AlreadyFinalized:
		sess.AddFlash(session.FlashInfo, "Your application is already finalized.")
	default:
		sess.AddFlash(session.FlashSuccess, "Your application has been finalized. Good luck!")
	}

	h.redirect(c, "/dashboard")
}

// bindFormFlash binds a form and turns field errors into one error flash.
// It reports whether binding failed.
func bindFormFlash(c *gin.Context, out any, sess *session.Session) bool {
	errs := handlers.BindForm(c, out)
	if errs == nil {
		return false
	}
	sess.AddFlash(session.FlashError, fieldsMessage(errs))
	return true
}
