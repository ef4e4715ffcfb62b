// Package leads handles email confirmation and consent for people running
// simulations.
package leads

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/auth"
	"omip-benchmark/internal/model"
	"omip-benchmark/internal/notify"
)

type Store interface {
	EnsureLead(ctx context.Context, email string) error
	GetLead(ctx context.Context, email string) (*model.Lead, error)
	MarkLeadVerified(ctx context.Context, email string, at time.Time) error
	RecordConsent(ctx context.Context, email string, terms, marketing bool, at time.Time) (*model.Lead, error)
}

type Recorder interface {
	ObserveConfirmation(step, result string)
}

// Sent is the outcome of SendConfirmation. ConfirmURL is only set when the
// mailer does not deliver, so the link can be shown to the user directly.
type Sent struct {
	ExpiresAt  time.Time
	ConfirmURL string
}

// Status is what the frontend needs to decide whether to ask for
// confirmation or consent.
type Status struct {
	Exists         bool
	Verified       bool
	TermsAccepted  bool
	MarketingOptIn bool
}

type Service struct {
	store   Store
	tokens  *auth.Tokens
	mailer  notify.Mailer
	origin  string
	metrics Recorder
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store Store, tokens *auth.Tokens, mailer notify.Mailer, origin string, metrics Recorder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:   store,
		tokens:  tokens,
		mailer:  mailer,
		origin:  strings.TrimRight(origin, "/"),
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// SendConfirmation registers the lead and mails a signed confirmation link.
func (s *Service) SendConfirmation(ctx context.Context, email string) (*Sent, error) {
	email, err := checkEmail(email)
	if err != nil {
		return nil, err
	}
	if err := s.store.EnsureLead(ctx, email); err != nil {
		return nil, apperr.Unavailable("DB_ERROR", err)
	}

	token, expiresAt, err := s.tokens.IssueConfirmation(email)
	if err != nil {
		s.observe("send", "error")
		return nil, apperr.Unavailable("TOKEN_ERROR", err)
	}
	link := s.origin + "/api/confirm?token=" + url.QueryEscape(token)

	msg, err := notify.ConfirmationMessage(email, link, int(s.tokens.ConfirmTTL/time.Minute))
	if err != nil {
		return nil, err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.observe("send", "error")
		s.log.Error("confirmation email failed", zap.String("email", email), zap.Error(err))
		return nil, apperr.Unavailable("EMAIL_SEND_FAILED", err)
	}
	s.observe("send", "ok")
	s.log.Info("confirmation email sent", zap.String("email", email), zap.Bool("delivered", s.mailer.Delivers()))

	out := &Sent{ExpiresAt: expiresAt}
	if !s.mailer.Delivers() {
		out.ConfirmURL = link
	}
	return out, nil
}

// Confirm verifies a confirmation token, marks the lead verified and returns
// a session token for the cookie.
func (s *Service) Confirm(ctx context.Context, token string) (email, session string, expiresAt time.Time, err error) {
	if strings.TrimSpace(token) == "" {
		return "", "", time.Time{}, apperr.Malformed("MISSING_TOKEN", "token is required")
	}
	email, err = s.tokens.ParseConfirmation(token)
	if err != nil {
		s.observe("confirm", "invalid")
		return "", "", time.Time{}, apperr.Unauthorized("INVALID_TOKEN", "invalid or expired confirmation link")
	}
	if err := s.store.MarkLeadVerified(ctx, email, s.now().UTC()); err != nil {
		return "", "", time.Time{}, apperr.Unavailable("DB_ERROR", err)
	}
	session, expiresAt, err = s.tokens.IssueSession(email)
	if err != nil {
		return "", "", time.Time{}, apperr.Unavailable("TOKEN_ERROR", err)
	}
	s.observe("confirm", "ok")
	s.log.Info("email confirmed", zap.String("email", email))
	return email, session, expiresAt, nil
}

// UserStatus reports what is known about an email. Unknown addresses are not
// an error.
func (s *Service) UserStatus(ctx context.Context, email string) (*Status, error) {
	email, err := checkEmail(email)
	if err != nil {
		return nil, err
	}
	lead, err := s.store.GetLead(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, apperr.Unavailable("DB_ERROR", err)
	}
	return &Status{
		Exists:         true,
		Verified:       lead.Verified(),
		TermsAccepted:  lead.TermsAccepted,
		MarketingOptIn: lead.MarketingOptIn,
	}, nil
}

func (s *Service) RecordConsent(ctx context.Context, email string, terms, marketing bool) (*model.Lead, error) {
	email, err := checkEmail(email)
	if err != nil {
		return nil, err
	}
	lead, err := s.store.RecordConsent(ctx, email, terms, marketing, s.now().UTC())
	if err != nil {
		return nil, apperr.Unavailable("DB_ERROR", err)
	}
	return lead, nil
}

func (s *Service) observe(step, result string) {
	if s.metrics != nil {
		s.metrics.ObserveConfirmation(step, result)
	}
}

func checkEmail(email string) (string, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", apperr.Malformed("INVALID_EMAIL", "invalid email")
	}
	return email, nil
}
