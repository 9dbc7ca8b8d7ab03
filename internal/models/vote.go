package models

import (
	"time"
)

type VoteChoice string

const (
	VoteChoiceFor     VoteChoice = "for"
	VoteChoiceAgainst VoteChoice = "against"
	VoteChoiceAbstain VoteChoice = "abstain"
)

// Vote 一人一票，(proposal_id, voter)唯一，重复投票直接拒绝
type Vote struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProposalID   string     `gorm:"size:64;not null;uniqueIndex:uk_proposal_voter" json:"proposal_id"`
	Voter        string     `gorm:"size:42;not null;uniqueIndex:uk_proposal_voter" json:"voter"`
	BasePower    string     `gorm:"type:decimal(65,0);not null" json:"base_voting_power"`
	BoostedPower string     `gorm:"type:decimal(65,0);not null" json:"boosted_power"`
	EquityScore  int        `gorm:"not null" json:"equity_score"`
	Choice       VoteChoice `gorm:"type:enum('for','against','abstain');not null" json:"choice"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Vote) TableName() string {
	return "votes"
}

// VoterRecord 选民登记表，由预言机维护质押量与公平分
// 其总票权作为法定人数计算的分母
type VoterRecord struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Voter       string    `gorm:"size:42;not null;uniqueIndex" json:"voter"`
	StakeAmount string    `gorm:"type:decimal(65,0);not null;default:0" json:"stake_amount"`
	EquityScore int       `gorm:"not null;default:0" json:"equity_score"`
	VotesCast   int       `gorm:"not null;default:0" json:"votes_cast"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (VoterRecord) TableName() string {
	return "voter_records"
}
