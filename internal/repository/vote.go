package repository

import (
	"context"
	"errors"

	"mobility-finance-engine/internal/models"

	"gorm.io/gorm"
)

type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

func (r *VoteRepository) Get(ctx context.Context, proposalID, voter string) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("proposal_id = ? AND voter = ?", proposalID, voter).
		First(&vote).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &vote, err
}

func (r *VoteRepository) ListByProposal(ctx context.Context, proposalID string) ([]models.Vote, error) {
	var votes []models.Vote
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Order("id ASC").
		Find(&votes).Error
	return votes, err
}

// GetVoter 获取选民登记，不存在返回nil
func (r *VoteRepository) GetVoter(ctx context.Context, voter string) (*models.VoterRecord, error) {
	var record models.VoterRecord
	err := r.db.WithContext(ctx).
		Where("voter = ?", voter).
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &record, err
}

// UpsertVoter 更新或创建选民登记
func (r *VoteRepository) UpsertVoter(ctx context.Context, voter, stakeAmount string, equityScore int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := &models.VoterRecord{
			Voter:       voter,
			StakeAmount: stakeAmount,
			EquityScore: equityScore,
		}

		result := tx.Where("voter = ?", voter).
			Assign(map[string]interface{}{
				"stake_amount": stakeAmount,
				"equity_score": equityScore,
			}).
			FirstOrCreate(record)

		return result.Error
	})
}

// TotalRegisteredPower 全体登记选民的票权总和，法定人数分母
func (r *VoteRepository) TotalRegisteredPower(ctx context.Context) (string, error) {
	var total *string
	err := r.db.WithContext(ctx).
		Model(&models.VoterRecord{}).
		Select("CAST(COALESCE(SUM(CAST(stake_amount AS DECIMAL(65,0))), 0) AS CHAR)").
		Scan(&total).Error
	if err != nil || total == nil {
		return "0", err
	}
	return *total, nil
}
