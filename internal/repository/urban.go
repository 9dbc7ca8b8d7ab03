package repository

import (
	"context"
	"errors"

	"mobility-finance-engine/internal/models"

	"gorm.io/gorm"
)

type UrbanDataRepository struct {
	db *gorm.DB
}

func NewUrbanDataRepository(db *gorm.DB) *UrbanDataRepository {
	return &UrbanDataRepository{db: db}
}

func (r *UrbanDataRepository) GetByLocation(ctx context.Context, location string) (*models.UrbanDataRecord, error) {
	var record models.UrbanDataRecord
	err := r.db.WithContext(ctx).
		Where("location = ?", location).
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &record, err
}

// Upsert 按地区覆盖写入最新城市数据
func (r *UrbanDataRepository) Upsert(ctx context.Context, record *models.UrbanDataRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing := &models.UrbanDataRecord{}
		err := tx.Where("location = ?", record.Location).First(existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(record).Error
		}
		if err != nil {
			return err
		}

		return tx.Model(existing).Updates(map[string]interface{}{
			"income_level":           record.IncomeLevel,
			"pollution_level":        record.PollutionLevel,
			"transport_score":        record.TransportScore,
			"density":                record.Density,
			"timestamp":              record.Timestamp,
		}).Error
	})
}
