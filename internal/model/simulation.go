package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// InstallType is the client's supply voltage level.
type InstallType string

const (
	InstallMT  InstallType = "MT"
	InstallBTE InstallType = "BTE"
	InstallBTN InstallType = "BTN"
)

func ParseInstallType(s string) (InstallType, error) {
	switch t := InstallType(s); t {
	case InstallMT, InstallBTE, InstallBTN:
		return t, nil
	}
	return "", fmt.Errorf("unknown install type %q (expected MT, BTE or BTN)", s)
}

// TariffCycle only matters for BTN installs.
type TariffCycle string

const (
	CycleSimples TariffCycle = "Simples"
	CycleBi      TariffCycle = "Bi-horário"
	CycleTri     TariffCycle = "Tri-horário"
)

// ParseTariffCycle accepts the cycle names with or without the accent.
func ParseTariffCycle(s string) (TariffCycle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simples":
		return CycleSimples, nil
	case "bi-horário", "bi-horario":
		return CycleBi, nil
	case "tri-horário", "tri-horario":
		return CycleTri, nil
	}
	return "", fmt.Errorf("unknown tariff cycle %q", s)
}

// PriceUnit is the unit the client typed prices in.
type PriceUnit string

const (
	UnitMWh PriceUnit = "/MWh"
	UnitKWh PriceUnit = "/kWh"
)

// ParsePriceUnit defaults to /MWh when s is empty.
func ParsePriceUnit(s string) (PriceUnit, error) {
	switch PriceUnit(strings.TrimSpace(s)) {
	case "", UnitMWh:
		return UnitMWh, nil
	case UnitKWh:
		return UnitKWh, nil
	}
	return "", fmt.Errorf("unknown price unit %q (expected /MWh or /kWh)", s)
}

// ToMWh converts a price in unit u to EUR/MWh.
func (u PriceUnit) ToMWh(v float64) float64 {
	if u == UnitKWh {
		return v * 1000
	}
	return v
}

// Simulation is a saved comparison between a client's tariff and the reference.
type Simulation struct {
	ID          string      `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string      `gorm:"type:text;not null;index" json:"email"`
	NIF         string      `gorm:"column:nif;type:text" json:"nif,omitempty"`
	Company     string      `gorm:"type:text" json:"company,omitempty"`
	Responsible string      `gorm:"type:text" json:"responsible,omitempty"`
	Supplier    string      `gorm:"type:text" json:"supplier,omitempty"`
	InstallType InstallType `gorm:"type:text;not null" json:"installType"`
	Cycle       TariffCycle `gorm:"type:text" json:"cycle,omitempty"`
	Unit        PriceUnit   `gorm:"type:text;not null" json:"unit"`
	StartMonth  Month       `gorm:"type:date;not null" json:"startMonth"`
	TermMonths  int         `gorm:"not null" json:"termMonths"`

	AnnualConsumptionMWh *float64       `json:"annualConsumptionMWh,omitempty"`
	IncludeNetworks      bool           `gorm:"not null;default:false" json:"includeNetworks"`
	Prices               datatypes.JSON `json:"prices"`

	ClientAvgMWh       *float64 `json:"clientAvgMWh"`
	ClientEnergyAvgMWh *float64 `json:"clientEnergyAvgMWh"`
	NetworkPerMWh      float64  `gorm:"not null;default:0" json:"networkPerMWh"`
	MonthsFound        int      `gorm:"not null;default:0" json:"monthsFound"`
	AvgIndexPrice      *float64 `json:"avgIndexPrice"`
	ReferencePrice     *float64 `json:"referencePrice"`
	DeviationAbs       *float64 `json:"deviationAbs"`
	DeviationPct       *float64 `json:"deviationPct"`
	SettingsVersion    int64    `gorm:"not null;default:0" json:"settingsVersion"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (Simulation) TableName() string {
	return "simulations"
}

// Lead is a person who asked for a simulation. Email is stored lower-cased.
type Lead struct {
	Email            string     `gorm:"type:text;primaryKey" json:"email"`
	VerifiedAt       *time.Time `json:"verifiedAt,omitempty"`
	TermsAccepted    bool       `gorm:"not null;default:false" json:"termsAccepted"`
	TermsAcceptedAt  *time.Time `json:"termsAcceptedAt,omitempty"`
	MarketingOptIn   bool       `gorm:"not null;default:false" json:"marketingOptIn"`
	MarketingOptInAt *time.Time `json:"marketingOptInAt,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Lead) TableName() string {
	return "leads"
}

func (l *Lead) Verified() bool {
	return l != nil && l.VerifiedAt != nil
}
