package models

import (
	"time"
)

type ProposalStatus string

const (
	ProposalStatusActive ProposalStatus = "active"
	ProposalStatusPassed ProposalStatus = "passed"
	ProposalStatusFailed ProposalStatus = "failed"
)

// Proposal 治理提案，投票窗口关闭后即为终态
type Proposal struct {
	ID             string         `gorm:"primaryKey;size:64" json:"id"`
	Title          string         `gorm:"size:128;not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Proposer       string         `gorm:"size:42;not null;index" json:"proposer"`
	BoostThreshold int            `gorm:"not null" json:"equity_boost_threshold"`
	StartTime      time.Time      `gorm:"not null" json:"start_time"`
	EndTime        time.Time      `gorm:"not null;index" json:"end_time"`
	ForPower       string         `gorm:"type:decimal(65,0);not null;default:0" json:"for_power"`
	AgainstPower   string         `gorm:"type:decimal(65,0);not null;default:0" json:"against_power"`
	TotalPower     string         `gorm:"type:decimal(65,0);not null;default:0" json:"total_power"`
	Status         ProposalStatus `gorm:"type:enum('active','passed','failed');not null;index" json:"status"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Proposal) TableName() string {
	return "proposals"
}
