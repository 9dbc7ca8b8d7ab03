package models

import (
	"time"
)

// RevenueEvent 单次营收分配事件，事件ID全局唯一，重放直接拒绝
// 守恒约束：baseline_share + equity_bonus_pool == total_revenue
type RevenueEvent struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID           string    `gorm:"size:64;not null;uniqueIndex:uk_event" json:"event_id"`
	AssetID           string    `gorm:"size:64;not null;index" json:"asset_id"`
	TotalRevenue      string    `gorm:"type:decimal(65,0);not null" json:"total_revenue"`
	RideCount         int64     `gorm:"not null" json:"ride_count"`
	UnderservedRides  int64     `gorm:"not null" json:"underserved_rides"`
	CO2SavedKg        int64     `gorm:"not null;default:0" json:"co2_saved_kg"`
	EquityScore       int       `gorm:"not null" json:"equity_score"`
	EquityBonusPool   string    `gorm:"type:decimal(65,0);not null;default:0" json:"equity_bonus_pool"`
	EquityBonus       string    `gorm:"type:decimal(65,0);not null;default:0" json:"equity_bonus"`
	BaselineShare     string    `gorm:"type:decimal(65,0);not null;default:0" json:"baseline_share"`
	RetainedRemainder string    `gorm:"type:decimal(65,0);not null;default:0" json:"retained_remainder"`
	Distributed       bool      `gorm:"not null;default:false;index" json:"distributed"`
	DistributedAt     *time.Time `json:"distributed_at"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (RevenueEvent) TableName() string {
	return "revenue_events"
}

// InvestorShare 单个出资人在某次分配中的份额
type InvestorShare struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID     string    `gorm:"size:64;not null;uniqueIndex:uk_event_investor" json:"event_id"`
	Investor    string    `gorm:"size:42;not null;uniqueIndex:uk_event_investor" json:"investor"`
	BaseAmount  string    `gorm:"type:decimal(65,0);not null" json:"base_amount"`
	BonusAmount string    `gorm:"type:decimal(65,0);not null" json:"bonus_amount"`
	TotalAmount string    `gorm:"type:decimal(65,0);not null" json:"total_amount"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (InvestorShare) TableName() string {
	return "investor_shares"
}
