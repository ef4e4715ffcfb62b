package store

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm/clause"

	"omip-benchmark/internal/model"
)

// EnsureLead inserts the lead if it does not exist yet.
func (s *Store) EnsureLead(ctx context.Context, email string) error {
	lead := model.Lead{Email: normalizeEmail(email)}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&lead).Error
}

func (s *Store) GetLead(ctx context.Context, email string) (*model.Lead, error) {
	var item model.Lead
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *Store) MarkLeadVerified(ctx context.Context, email string, at time.Time) error {
	lead := model.Lead{Email: normalizeEmail(email), VerifiedAt: &at}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"verified_at", "updated_at"}),
	}).Create(&lead).Error
}

// RecordConsent stores the consent flags. The *_at timestamps are set only
// when a flag turns on and kept while it stays on.
func (s *Store) RecordConsent(ctx context.Context, email string, terms, marketing bool, at time.Time) (*model.Lead, error) {
	lead := model.Lead{
		Email:          normalizeEmail(email),
		TermsAccepted:  terms,
		MarketingOptIn: marketing,
	}
	if terms {
		lead.TermsAcceptedAt = &at
	}
	if marketing {
		lead.MarketingOptInAt = &at
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "terms_accepted"}, Value: terms},
			{Column: clause.Column{Name: "terms_accepted_at"}, Value: clause.Expr{
				SQL:  "CASE WHEN ? THEN COALESCE(leads.terms_accepted_at, ?) ELSE NULL END",
				Vars: []any{terms, at},
			}},
			{Column: clause.Column{Name: "marketing_opt_in"}, Value: marketing},
			{Column: clause.Column{Name: "marketing_opt_in_at"}, Value: clause.Expr{
				SQL:  "CASE WHEN ? THEN COALESCE(leads.marketing_opt_in_at, ?) ELSE NULL END",
				Vars: []any{marketing, at},
			}},
			{Column: clause.Column{Name: "updated_at"}, Value: at},
		},
	}).Create(&lead).Error
	if err != nil {
		return nil, err
	}
	return s.GetLead(ctx, lead.Email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
