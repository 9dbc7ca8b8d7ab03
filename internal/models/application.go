package models

import (
	"time"
)

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// LoanApplication 贷款申请，利率在提交时一次性算定并冻结
// 城市数据以快照列落库，保证审计可回放
type LoanApplication struct {
	ID              string            `gorm:"primaryKey;size:64" json:"id"`
	Borrower        string            `gorm:"size:42;not null;index" json:"borrower"`
	AssetID         string            `gorm:"size:64;not null;index" json:"asset_id"`
	RequestedAmount string            `gorm:"type:decimal(65,0);not null" json:"requested_amount"`
	BaseRate        int               `gorm:"not null" json:"base_rate"`
	AdjustedRate    int               `gorm:"not null" json:"adjusted_rate"`
	EquityScore     int               `gorm:"not null" json:"equity_score"`
	Location        string            `gorm:"size:128;not null" json:"location"`
	IncomeLevel     int               `gorm:"not null" json:"income_level"`
	PollutionLevel  int               `gorm:"not null" json:"pollution_level"`
	TransportScore  int               `gorm:"not null" json:"public_transport_score"`
	Density         int               `gorm:"not null" json:"population_density"`
	DataTimestamp   time.Time         `gorm:"not null" json:"data_timestamp"`
	Status          ApplicationStatus `gorm:"type:enum('pending','approved','rejected');not null;index" json:"status"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LoanApplication) TableName() string {
	return "loan_applications"
}
