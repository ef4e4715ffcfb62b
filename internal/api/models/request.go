package models

import "omip-benchmark/internal/model"

// CreateSettingsRequest is the body of POST /api/admin/settings. The three
// adjustment terms are required so a missing field is never read as zero.
type CreateSettingsRequest struct {
	LossesPercent *float64           `json:"lossesPercent" binding:"required"`
	EricPerMWh    *float64           `json:"ericPerMWh" binding:"required"`
	RenPerMWh     *float64           `json:"renPerMWh" binding:"required"`
	Networks      model.NetworkCosts `json:"networks"`
	Note          string             `json:"note"`
	CreatedBy     string             `json:"createdBy"`
	Activate      bool               `json:"activate"`
}

// ToModel builds the settings version described by the request.
func (r CreateSettingsRequest) ToModel() *model.AdjustmentSettings {
	return &model.AdjustmentSettings{
		Adjustments: model.Adjustments{
			LossesPercent: *r.LossesPercent,
			EricPerMWh:    *r.EricPerMWh,
			RenPerMWh:     *r.RenPerMWh,
		},
		Networks:  r.Networks,
		Note:      r.Note,
		CreatedBy: r.CreatedBy,
	}
}

// ActivateSettingsRequest is the body of PUT /api/admin/settings/current.
type ActivateSettingsRequest struct {
	Version int64 `json:"version" binding:"required"`
}

// EmailRequest is used by send-confirmation and validate-email.
type EmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// ConsentRequest is the body of POST /api/user/consent.
type ConsentRequest struct {
	Email          string `json:"email" binding:"required"`
	TermsAccepted  bool   `json:"termsAccepted"`
	MarketingOptIn bool   `json:"marketingOptIn"`
}
