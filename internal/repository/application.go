package repository

import (
	"context"
	"errors"
	"fmt"

	"mobility-finance-engine/internal/models"

	"gorm.io/gorm"
)

type ApplicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, app *models.LoanApplication) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *ApplicationRepository) GetByID(ctx context.Context, applicationID string) (*models.LoanApplication, error) {
	var app models.LoanApplication
	err := r.db.WithContext(ctx).
		Where("id = ?", applicationID).
		First(&app).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &app, err
}

func (r *ApplicationRepository) ListByBorrower(ctx context.Context, borrower string, limit int) ([]models.LoanApplication, error) {
	var apps []models.LoanApplication
	query := r.db.WithContext(ctx).
		Where("borrower = ?", borrower).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&apps).Error
	return apps, err
}

// Decide 申请裁决，仅当状态仍为pending时生效
// 影响行数为0说明申请已被裁决过
func (r *ApplicationRepository) Decide(ctx context.Context, applicationID string, to models.ApplicationStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.LoanApplication{}).
			Where("id = ? AND status = ?", applicationID, models.ApplicationStatusPending).
			Update("status", to)

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("application %s already decided", applicationID)
		}
		return nil
	})
}

func (r *ApplicationRepository) CountByStatus(ctx context.Context) (map[models.ApplicationStatus]int64, error) {
	type statusCount struct {
		Status models.ApplicationStatus
		Count  int64
	}

	var results []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.LoanApplication{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.ApplicationStatus]int64)
	for _, r := range results {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
