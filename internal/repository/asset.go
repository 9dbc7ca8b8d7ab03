package repository

import (
	"context"
	"errors"
	"fmt"

	"mobility-finance-engine/internal/models"

	"gorm.io/gorm"
)

type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) Create(ctx context.Context, asset *models.MobilityAsset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

// GetByID 按ID获取资产，不存在返回nil
func (r *AssetRepository) GetByID(ctx context.Context, assetID string) (*models.MobilityAsset, error) {
	var asset models.MobilityAsset
	err := r.db.WithContext(ctx).
		Where("id = ?", assetID).
		First(&asset).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &asset, err
}

func (r *AssetRepository) List(ctx context.Context, offset, limit int) ([]models.MobilityAsset, error) {
	var assets []models.MobilityAsset
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	err := query.Find(&assets).Error
	return assets, err
}

// UpdateStatus 条件状态推进，仅当当前状态等于from时生效
// 影响行数为0视为非法状态迁移
func (r *AssetRepository) UpdateStatus(ctx context.Context, assetID string, from, to models.AssetStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.MobilityAsset{}).
			Where("id = ? AND status = ?", assetID, from).
			Update("status", to)

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("asset %s not in status %s", assetID, from)
		}
		return nil
	})
}

// ApplyContribution 出资落库：更新已筹金额与状态、写入出资记录，单事务全有或全无
func (r *AssetRepository) ApplyContribution(ctx context.Context, assetID string, newRaised string, newStatus models.AssetStatus, contrib *models.Contribution) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.MobilityAsset{}).
			Where("id = ? AND status = ?", assetID, models.AssetStatusFunding).
			Updates(map[string]interface{}{
				"raised_amount": newRaised,
				"status":        newStatus,
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("asset %s is not funding", assetID)
		}

		return tx.Create(contrib).Error
	})
}

func (r *AssetRepository) CountByStatus(ctx context.Context) (map[models.AssetStatus]int64, error) {
	type statusCount struct {
		Status models.AssetStatus
		Count  int64
	}

	var results []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.MobilityAsset{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.AssetStatus]int64)
	for _, r := range results {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// ScoreDistribution 资产公平分分布，按十分一档聚合
func (r *AssetRepository) ScoreDistribution(ctx context.Context) (map[string]int64, error) {
	type bucketCount struct {
		Bucket int
		Count  int64
	}

	var results []bucketCount
	err := r.db.WithContext(ctx).
		Model(&models.MobilityAsset{}).
		Select("FLOOR(equity_score / 10) as bucket, COUNT(*) as count").
		Group("bucket").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	dist := make(map[string]int64)
	for _, r := range results {
		lo := r.Bucket * 10
		hi := lo + 9
		if lo >= 100 {
			lo, hi = 100, 100
		}
		dist[fmt.Sprintf("%d-%d", lo, hi)] = r.Count
	}
	return dist, nil
}
