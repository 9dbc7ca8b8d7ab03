package models

import (
	"time"
)

// Contribution 出资记录，记录出资时刻的公平分快照
type Contribution struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	AssetID     string    `gorm:"size:64;not null;index:idx_asset_investor" json:"asset_id"`
	Investor    string    `gorm:"size:42;not null;index:idx_asset_investor" json:"investor"`
	Amount      string    `gorm:"type:decimal(65,0);not null" json:"amount"`
	EquityScore int       `gorm:"not null" json:"equity_score"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Contribution) TableName() string {
	return "contributions"
}
