package repository

import (
	"context"

	"mobility-finance-engine/internal/models"

	"gorm.io/gorm"
)

type ContributionRepository struct {
	db *gorm.DB
}

func NewContributionRepository(db *gorm.DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

// ListByAsset 按出资时间升序返回资产的全部出资记录
// 顺序即为分配余数归属的确定性依据
func (r *ContributionRepository) ListByAsset(ctx context.Context, assetID string) ([]models.Contribution, error) {
	var contribs []models.Contribution
	err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("id ASC").
		Find(&contribs).Error
	return contribs, err
}

func (r *ContributionRepository) ListByInvestor(ctx context.Context, investor string, limit int) ([]models.Contribution, error) {
	var contribs []models.Contribution
	query := r.db.WithContext(ctx).
		Where("investor = ?", investor).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&contribs).Error
	return contribs, err
}

// TotalRaised 全池累计筹集额（字符串十进制求和）
func (r *ContributionRepository) TotalRaised(ctx context.Context) (string, error) {
	var total *string
	err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("CAST(COALESCE(SUM(CAST(amount AS DECIMAL(65,0))), 0) AS CHAR)").
		Scan(&total).Error
	if err != nil || total == nil {
		return "0", err
	}
	return *total, nil
}
