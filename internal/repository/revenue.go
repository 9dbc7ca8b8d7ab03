package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mobility-finance-engine/internal/models"

	"gorm.io/gorm"
)

type RevenueRepository struct {
	db *gorm.DB
}

func NewRevenueRepository(db *gorm.DB) *RevenueRepository {
	return &RevenueRepository{db: db}
}

func (r *RevenueRepository) CreateEvent(ctx context.Context, event *models.RevenueEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *RevenueRepository) GetByEventID(ctx context.Context, eventID string) (*models.RevenueEvent, error) {
	var event models.RevenueEvent
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&event).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &event, err
}

func (r *RevenueRepository) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RevenueEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count > 0, err
}

// MarkDistributed 分配落库：更新事件分配结果并写入全部份额，单事务
// 仅当事件尚未分配时生效，防止重放
func (r *RevenueRepository) MarkDistributed(ctx context.Context, event *models.RevenueEvent, shares []models.InvestorShare) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.RevenueEvent{}).
			Where("event_id = ? AND distributed = false", event.EventID).
			Updates(map[string]interface{}{
				"equity_score":       event.EquityScore,
				"equity_bonus_pool":  event.EquityBonusPool,
				"equity_bonus":       event.EquityBonus,
				"baseline_share":     event.BaselineShare,
				"retained_remainder": event.RetainedRemainder,
				"distributed":        true,
				"distributed_at":     now,
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("event %s already distributed", event.EventID)
		}

		if len(shares) == 0 {
			return nil
		}
		return tx.Create(&shares).Error
	})
}

func (r *RevenueRepository) ListShares(ctx context.Context, eventID string) ([]models.InvestorShare, error) {
	var shares []models.InvestorShare
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("id ASC").
		Find(&shares).Error
	return shares, err
}

// ImpactTotals 全部营收事件的影响力汇总
func (r *RevenueRepository) ImpactTotals(ctx context.Context) (co2 int64, rides int64, underserved int64, err error) {
	type totals struct {
		CO2         int64
		Rides       int64
		Underserved int64
	}

	var t totals
	err = r.db.WithContext(ctx).
		Model(&models.RevenueEvent{}).
		Select("COALESCE(SUM(co2_saved_kg), 0) as co2, COALESCE(SUM(ride_count), 0) as rides, COALESCE(SUM(underserved_rides), 0) as underserved").
		Scan(&t).Error
	return t.CO2, t.Rides, t.Underserved, err
}

// TotalDistributed 已分配事件的营收总额
func (r *RevenueRepository) TotalDistributed(ctx context.Context) (string, error) {
	var total *string
	err := r.db.WithContext(ctx).
		Model(&models.RevenueEvent{}).
		Where("distributed = true").
		Select("CAST(COALESCE(SUM(CAST(total_revenue AS DECIMAL(65,0))), 0) AS CHAR)").
		Scan(&total).Error
	if err != nil || total == nil {
		return "0", err
	}
	return *total, nil
}
