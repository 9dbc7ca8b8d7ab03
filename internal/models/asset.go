package models

import (
	"time"
)

type AssetStatus string

const (
	AssetStatusProposed  AssetStatus = "proposed"
	AssetStatusFunding   AssetStatus = "funding"
	AssetStatusFunded    AssetStatus = "funded"
	AssetStatusActive    AssetStatus = "active"
	AssetStatusCompleted AssetStatus = "completed"
)

// MobilityAsset 共享出行资产（电单车、接驳车等）
// 状态只允许单向推进：proposed → funding → funded → active → completed
type MobilityAsset struct {
	ID           string      `gorm:"primaryKey;size:64" json:"id"`
	Name         string      `gorm:"size:128;not null" json:"name"`
	AssetType    string      `gorm:"size:32;not null" json:"asset_type"`
	Location     string      `gorm:"size:128;not null;index" json:"location"`
	TargetAmount string      `gorm:"type:decimal(65,0);not null" json:"target_amount"`
	RaisedAmount string      `gorm:"type:decimal(65,0);not null;default:0" json:"raised_amount"`
	EquityScore  int         `gorm:"not null" json:"equity_score"`
	Status       AssetStatus `gorm:"type:enum('proposed','funding','funded','active','completed');not null;index" json:"status"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MobilityAsset) TableName() string {
	return "mobility_assets"
}
