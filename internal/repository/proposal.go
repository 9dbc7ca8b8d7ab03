package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mobility-finance-engine/internal/models"

	"gorm.io/gorm"
)

type ProposalRepository struct {
	db *gorm.DB
}

func NewProposalRepository(db *gorm.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

func (r *ProposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	return r.db.WithContext(ctx).Create(proposal).Error
}

func (r *ProposalRepository) GetByID(ctx context.Context, proposalID string) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.WithContext(ctx).
		Where("id = ?", proposalID).
		First(&proposal).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &proposal, err
}

func (r *ProposalRepository) ListActive(ctx context.Context) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ProposalStatusActive).
		Order("end_time ASC").
		Find(&proposals).Error
	return proposals, err
}

// ListExpiredActive 返回窗口已关闭但尚未定稿的提案，供定时任务处理
func (r *ProposalRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_time < ?", models.ProposalStatusActive, now).
		Order("end_time ASC").
		Find(&proposals).Error
	return proposals, err
}

// ApplyVote 投票落库：写入选票、累加提案计票、更新选民投票次数，单事务
// (proposal_id, voter)唯一索引保证同一选民重复投票在库层也会被拒绝
func (r *ProposalRepository) ApplyVote(ctx context.Context, vote *models.Vote, forPower, againstPower, totalPower string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(vote).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Proposal{}).
			Where("id = ? AND status = ?", vote.ProposalID, models.ProposalStatusActive).
			Updates(map[string]interface{}{
				"for_power":     forPower,
				"against_power": againstPower,
				"total_power":   totalPower,
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("proposal %s is not active", vote.ProposalID)
		}

		return tx.Model(&models.VoterRecord{}).
			Where("voter = ?", vote.Voter).
			Update("votes_cast", gorm.Expr("votes_cast + 1")).Error
	})
}

// Finalize 提案定稿，仅当状态仍为active时生效
func (r *ProposalRepository) Finalize(ctx context.Context, proposalID string, outcome models.ProposalStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Proposal{}).
			Where("id = ? AND status = ?", proposalID, models.ProposalStatusActive).
			Update("status", outcome)

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("proposal %s is not active", proposalID)
		}
		return nil
	})
}

func (r *ProposalRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("status = ?", models.ProposalStatusActive).
		Count(&count).Error
	return count, err
}
