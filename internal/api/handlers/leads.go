package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"omip-benchmark/internal/api/models"
	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/auth"
	"omip-benchmark/internal/emailcheck"
	"omip-benchmark/internal/leads"
)

// CookieConfig controls the session cookie set after confirmation.
type CookieConfig struct {
	Name   string
	Secure bool
}

type LeadHandler struct {
	svc     *leads.Service
	tokens  *auth.Tokens
	checker *emailcheck.Client
	cookie  CookieConfig
}

func NewLeadHandler(svc *leads.Service, tokens *auth.Tokens, checker *emailcheck.Client, cookie CookieConfig) *LeadHandler {
	return &LeadHandler{svc: svc, tokens: tokens, checker: checker, cookie: cookie}
}

// SendConfirmation handles POST /api/send-confirmation.
func (h *LeadHandler) SendConfirmation(c *gin.Context) {
	var req models.EmailRequest
	if !bindJSON(c, &req) {
		return
	}
	sent, err := h.svc.SendConfirmation(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SendConfirmationResponse{
		Success:    true,
		ExpiresAt:  sent.ExpiresAt,
		ConfirmURL: sent.ConfirmURL,
	})
}

// Confirm handles GET /api/confirm?token=. On success it sets the session
// cookie and redirects to /confirmed.
func (h *LeadHandler) Confirm(c *gin.Context) {
	_, session, expiresAt, err := h.svc.Confirm(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    session,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Redirect(http.StatusFound, "/confirmed")
}

// ConfirmStatus handles GET /api/confirm-status?email=.
func (h *LeadHandler) ConfirmStatus(c *gin.Context) {
	email, ok := auth.SessionEmail(c, h.tokens, h.cookie.Name)
	verified := ok && email == auth.NormalizeEmail(c.Query("email"))
	c.JSON(http.StatusOK, models.ConfirmStatusResponse{Success: true, Verified: verified})
}

// UserStatus handles GET /api/user/status?email=.
func (h *LeadHandler) UserStatus(c *gin.Context) {
	st, err := h.svc.UserStatus(c.Request.Context(), c.Query("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.UserStatusResponse{
		Success:        true,
		Exists:         st.Exists,
		Verified:       st.Verified,
		TermsAccepted:  st.TermsAccepted,
		MarketingOptIn: st.MarketingOptIn,
	})
}

// Consent handles POST /api/user/consent.
func (h *LeadHandler) Consent(c *gin.Context) {
	var req models.ConsentRequest
	if !bindJSON(c, &req) {
		return
	}
	lead, err := h.svc.RecordConsent(c.Request.Context(), req.Email, req.TermsAccepted, req.MarketingOptIn)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lead": lead})
}

// ValidateEmail handles POST /api/validate-email.
func (h *LeadHandler) ValidateEmail(c *gin.Context) {
	var req models.EmailRequest
	if !bindJSON(c, &req) {
		return
	}
	if h.checker == nil {
		respondError(c, apperr.Unavailable("EMAIL_CHECK_DISABLED", nil))
		return
	}
	v, err := h.checker.Verify(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ValidateEmailResponse{
		Success: true,
		Email:   v.Email,
		State:   v.State,
		Reason:  v.Reason,
		Blocked: v.Blocked,
	})
}
