package model

import "time"

// DefaultSource labels rows whose sheet carries no source column.
const DefaultSource = "upload"

// MonthlyPrice is one OMIP monthly index value in EUR/MWh.
// Month is the primary key, so a month is stored at most once.
type MonthlyPrice struct {
	Month     Month     `gorm:"type:date;primaryKey" json:"month"`
	Price     float64   `gorm:"column:price_eur_mwh;not null" json:"price"`
	Source    string    `gorm:"type:text;not null;default:upload" json:"source"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (MonthlyPrice) TableName() string {
	return "omip_monthly"
}
