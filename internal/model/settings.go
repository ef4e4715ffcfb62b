package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Adjustments are the regulatory terms applied on top of the index average.
type Adjustments struct {
	LossesPercent float64 `gorm:"column:losses_percent;not null" json:"lossesPercent" yaml:"losses_percent"`
	EricPerMWh    float64 `gorm:"column:eric_eur_mwh;not null" json:"ericPerMWh" yaml:"eric_per_mwh"`
	RenPerMWh     float64 `gorm:"column:ren_eur_mwh;not null" json:"renPerMWh" yaml:"ren_per_mwh"`
}

func (a Adjustments) Validate() error {
	if !finite(a.LossesPercent) || a.LossesPercent < 0 || a.LossesPercent > 100 {
		return fmt.Errorf("lossesPercent must be in [0, 100], got %v", a.LossesPercent)
	}
	if !finite(a.EricPerMWh) || a.EricPerMWh < 0 {
		return fmt.Errorf("ericPerMWh must be >= 0, got %v", a.EricPerMWh)
	}
	if !finite(a.RenPerMWh) || a.RenPerMWh < 0 {
		return fmt.Errorf("renPerMWh must be >= 0, got %v", a.RenPerMWh)
	}
	return nil
}

// NetworkCosts are per-install-type grid charges in EUR/MWh. They are only
// used to strip networks out of client prices that include them.
type NetworkCosts struct {
	MTPerMWh  float64 `gorm:"column:network_mt_eur_mwh;not null;default:0" json:"networkMTPerMWh" yaml:"mt_per_mwh"`
	BTEPerMWh float64 `gorm:"column:network_bte_eur_mwh;not null;default:0" json:"networkBTEPerMWh" yaml:"bte_per_mwh"`
	BTNPerMWh float64 `gorm:"column:network_btn_eur_mwh;not null;default:0" json:"networkBTNPerMWh" yaml:"btn_per_mwh"`
}

// For returns the network cost for an install type, or 0 when unknown.
func (n NetworkCosts) For(t InstallType) float64 {
	switch t {
	case InstallMT:
		return n.MTPerMWh
	case InstallBTE:
		return n.BTEPerMWh
	case InstallBTN:
		return n.BTNPerMWh
	}
	return 0
}

func (n NetworkCosts) Validate() error {
	for name, v := range map[string]float64{"mt": n.MTPerMWh, "bte": n.BTEPerMWh, "btn": n.BTNPerMWh} {
		if !finite(v) || v < 0 {
			return fmt.Errorf("network cost %s must be >= 0, got %v", name, v)
		}
	}
	return nil
}

// AdjustmentSettings is one immutable version of the adjustment terms.
type AdjustmentSettings struct {
	Version int64 `gorm:"primaryKey;autoIncrement" json:"version"`

	Adjustments `gorm:"embedded"`

	Networks  NetworkCosts `gorm:"embedded" json:"networks"`
	Note      string       `gorm:"type:text" json:"note,omitempty"`
	CreatedBy string       `gorm:"type:text" json:"createdBy,omitempty"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"createdAt"`
}

func (AdjustmentSettings) TableName() string {
	return "adjustment_settings"
}

func (s *AdjustmentSettings) Validate() error {
	if s == nil {
		return errors.New("settings are nil")
	}
	if err := s.Adjustments.Validate(); err != nil {
		return err
	}
	return s.Networks.Validate()
}

// SettingsPointer designates the current settings version. The table holds a
// single row with ID 1.
type SettingsPointer struct {
	ID        int       `gorm:"primaryKey"`
	Version   int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (SettingsPointer) TableName() string {
	return "adjustment_settings_current"
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
