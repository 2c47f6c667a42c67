package web

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/applyhub/internal/http/handlers"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/geocoder89/applyhub/internal/session"
	"github.com/gin-gonic/gin"
)

const surfaceWeb = "web"

type loginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

type registerForm struct {
	Token           string `form:"token" binding:"required"`
	Name            string `form:"name" binding:"required,max=150"`
	Password        string `form:"password" binding:"required,min=6"`
	PasswordConfirm string `form:"password_confirm" binding:"required"`
}

func (h *Handler) home(c *gin.Context) {
	p := currentSession(c).Principal()
	if !p.Authenticated() {
		h.redirect(c, "/login")
		return
	}
	h.redirect(c, homeFor(p.Role))
}

func (h *Handler) loginPage(c *gin.Context) {
	if p := currentSession(c).Principal(); p.Authenticated() {
		h.redirect(c, homeFor(p.Role))
		return
	}
	h.render(c, "login.html", nil)
}

func (h *Handler) login(c *gin.Context) {
	var form loginForm
	if errs := handlers.BindForm(c, &form); errs != nil {
		h.renderStatus(c, http.StatusBadRequest, "login.html", gin.H{"Email": form.Email, "Errors": errs})
		return
	}

	u, err := h.svc.Accounts.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		h.prom.AuthEvent(surfaceWeb, "login", "rejected")
		h.renderStatus(c, statusFor(err), "login.html", gin.H{"Email": form.Email, "Error": h.failMessage(c, err)})
		return
	}

	sess, err := h.signIn(c, service.PrincipalFor(u))
	if err != nil {
		h.renderStatus(c, http.StatusInternalServerError, "login.html", gin.H{"Error": h.failMessage(c, err)})
		return
	}

	h.prom.AuthEvent(surfaceWeb, "login", "ok")
	sess.AddFlash(session.FlashSuccess, "Welcome back, "+u.DisplayName()+".")
	h.redirect(c, homeFor(u.Role))
}

// registerPage shows the form only for a redeemable invitation.
func (h *Handler) registerPage(c *gin.Context) {
	token := c.Query("token")

	inv, err := h.svc.Registration.Lookup(c.Request.Context(), token)
	if err != nil {
		h.renderStatus(c, statusFor(err), "register.html", gin.H{"Error": h.failMessage(c, err)})
		return
	}

	h.render(c, "register.html", gin.H{"Token": inv.Token, "Email": inv.Email, "ShowForm": true})
}

func (h *Handler) register(c *gin.Context) {
	var form registerForm
	if errs := handlers.BindForm(c, &form); errs != nil {
		h.renderStatus(c, http.StatusBadRequest, "register.html", gin.H{
			"Token": form.Token, "Name": form.Name, "Errors": errs, "ShowForm": form.Token != "",
		})
		return
	}

	u, err := h.svc.Registration.Redeem(c.Request.Context(), service.RegisterInput{
		Token:           form.Token,
		Name:            form.Name,
		Password:        form.Password,
		PasswordConfirm: form.PasswordConfirm,
	})
	if err != nil {
		h.prom.AuthEvent(surfaceWeb, "register", "rejected")
		h.renderStatus(c, statusFor(err), "register.html", gin.H{
			"Token":    form.Token,
			"Name":     form.Name,
			"Error":    h.failMessage(c, err),
			"ShowForm": statusFor(err) == http.StatusBadRequest && !isTokenError(err),
		})
		return
	}

	sess, err := h.signIn(c, service.PrincipalFor(u))
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "sign in after register", slog.Any("err", err))
		h.redirect(c, "/login")
		return
	}

	h.prom.AuthEvent(surfaceWeb, "register", "ok")
	sess.AddFlash(session.FlashSuccess, "Registration successful. Welcome!")
	h.redirect(c, "/dashboard")
}

func (h *Handler) logout(c *gin.Context) {
	sess := currentSession(c)
	if sess.ID != "" {
		if err := h.sessions.Delete(c.Request.Context(), sess.ID); err != nil {
			h.log.WarnContext(c.Request.Context(), "delete session", slog.Any("err", err))
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", h.cfg.SecureCookies, true)
	h.prom.AuthEvent(surfaceWeb, "logout", "ok")
	c.Redirect(http.StatusSeeOther, "/login")
}
