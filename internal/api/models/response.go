package models

import (
	"net/http"
	"time"

	"omip-benchmark/internal/analysis"
	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/model"
	"omip-benchmark/internal/simulation"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success   bool           `json:"success"`
	ErrorKind apperr.Kind    `json:"errorKind"`
	Code      string         `json:"code,omitempty"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// NewErrorResponse builds the envelope for err. Errors that do not carry a
// kind are reported as internal without leaking their text.
func NewErrorResponse(err error) ErrorResponse {
	e, ok := apperr.As(err)
	if !ok {
		return ErrorResponse{
			ErrorKind: apperr.KindInternal,
			Code:      "INTERNAL_ERROR",
			Message:   "An unexpected error occurred",
		}
	}
	return ErrorResponse{
		ErrorKind: e.Kind,
		Code:      e.Code,
		Message:   e.Message,
		Details:   e.Details,
	}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindMalformedInput:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// StatusResponse is returned by health probes.
type StatusResponse struct {
	Status string `json:"status"`
}

// ReferenceResponse flattens a calculator result next to the success flag.
type ReferenceResponse struct {
	Success bool `json:"success"`
	*analysis.Result
}

// OMIPStatusResponse summarizes the stored price series.
type OMIPStatusResponse struct {
	Success  bool                 `json:"success"`
	Total    int64                `json:"total"`
	MinMonth *model.Month         `json:"minMonth"`
	MaxMonth *model.Month         `json:"maxMonth"`
	Latest   []model.MonthlyPrice `json:"latest"`
}

// SettingsResponse carries the active terms and where they came from.
type SettingsResponse struct {
	Success  bool                      `json:"success"`
	Source   string                    `json:"source"`
	Current  *model.AdjustmentSettings `json:"current,omitempty"`
	Fallback model.Adjustments         `json:"fallback"`
}

type SettingsVersionsResponse struct {
	Success  bool                       `json:"success"`
	Versions []model.AdjustmentSettings `json:"versions"`
}

// SimulationResponse flattens a computed simulation next to the success flag.
type SimulationResponse struct {
	Success bool `json:"success"`
	*simulation.Outcome
}

type SimulationDetailResponse struct {
	Success    bool              `json:"success"`
	Simulation *model.Simulation `json:"simulation"`
}

type SimulationListResponse struct {
	Success     bool               `json:"success"`
	Simulations []model.Simulation `json:"simulations"`
}

type SendConfirmationResponse struct {
	Success    bool      `json:"success"`
	ExpiresAt  time.Time `json:"expiresAt"`
	ConfirmURL string    `json:"confirmUrl,omitempty"`
}

type ConfirmStatusResponse struct {
	Success  bool `json:"success"`
	Verified bool `json:"verified"`
}

type UserStatusResponse struct {
	Success        bool `json:"success"`
	Exists         bool `json:"exists"`
	Verified       bool `json:"verified"`
	TermsAccepted  bool `json:"termsAccepted"`
	MarketingOptIn bool `json:"marketingOptIn"`
}

type ValidateEmailResponse struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
	State   string `json:"state"`
	Reason  string `json:"reason,omitempty"`
	Blocked bool   `json:"blocked"`
}
