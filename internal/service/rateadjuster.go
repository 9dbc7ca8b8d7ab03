package service

import (
	"context"
	"sync"
	"time"

	"mobility-finance-engine/internal/equity"
	"mobility-finance-engine/internal/identity"
	"mobility-finance-engine/internal/models"
	"mobility-finance-engine/pkg/errors"
	"mobility-finance-engine/pkg/logger"
)

// ApplicationStore 贷款申请存取
type ApplicationStore interface {
	Create(ctx context.Context, app *models.LoanApplication) error
	GetByID(ctx context.Context, applicationID string) (*models.LoanApplication, error)
	ListByBorrower(ctx context.Context, borrower string, limit int) ([]models.LoanApplication, error)
	Decide(ctx context.Context, applicationID string, to models.ApplicationStatus) error
	CountByStatus(ctx context.Context) (map[models.ApplicationStatus]int64, error)
}

// RateAdjusterService 利率调整状态机
// 利率在提交时一次性算定并冻结，裁决后不再重算。
type RateAdjusterService struct {
	apps              ApplicationStore
	admin             string
	maxRateAdjustment int
	now               func() time.Time
	mu                sync.Mutex
}

func NewRateAdjusterService(apps ApplicationStore, adminAddress string, maxRateAdjustment int) *RateAdjusterService {
	return &RateAdjusterService{
		apps:              apps,
		admin:             adminAddress,
		maxRateAdjustment: maxRateAdjustment,
		now:               time.Now,
	}
}

// adjustedRate 计算调整后利率，硬下限1在每次计算后强制执行
//
// 注意：低收入/高污染/交通薄弱三项固定减免是从调整量中扣减的，而调整量
// 本身又从基准利率中扣减，净效果是恰好命中这些条件的申请利率反而升高。
// 此行为与原始公式逐项一致，属已登记的存疑项，待产品澄清前不得擅自修正。
func adjustedRate(baseRate, equityScore, maxRateAdjustment int, d equity.UrbanData) (rate int, floored bool) {
	equityAdjustment := (100 - equityScore) * maxRateAdjustment / 100

	additionalAdjustment := 0
	if d.IncomeLevel <= 3 {
		additionalAdjustment -= 5
	}
	if d.PollutionLevel >= 8 {
		additionalAdjustment -= 3
	}
	if d.TransportScore <= 3 {
		additionalAdjustment -= 4
	}

	totalAdjustment := equityAdjustment + additionalAdjustment
	rate = baseRate - totalAdjustment

	if rate < 1 {
		return 1, true
	}
	return rate, false
}

// SubmitApplication 提交贷款申请
// 校验城市数据、计算公平分与调整后利率，城市数据以快照落库
func (s *RateAdjusterService) SubmitApplication(ctx context.Context, borrower, assetID, requestedAmount string, baseRate int, data equity.UrbanData) (*models.LoanApplication, error) {
	if borrower == "" || assetID == "" {
		return nil, errors.New(errors.ErrInvalidInput, "borrower and asset id are required", nil)
	}
	if baseRate < 1 {
		return nil, errors.New(errors.ErrInvalidInput, "base rate must be at least 1", nil)
	}

	amount, err := parseAmount(requestedAmount)
	if err != nil {
		return nil, err
	}

	if err := data.Validate(); err != nil {
		return nil, err
	}

	score := equity.Score(data)
	rate, floored := adjustedRate(baseRate, score, s.maxRateAdjustment, data)
	if floored {
		logger.WithComponent("rate_adjuster").WithFields(map[string]interface{}{
			"borrower":  borrower,
			"base_rate": baseRate,
			"rate":      rate,
		}).Warn("利率触及下限1，已截断")
	}

	now := s.now()
	app := &models.LoanApplication{
		ID:              newRecordID(now, "app", borrower, assetID),
		Borrower:        identity.Normalize(borrower),
		AssetID:         assetID,
		RequestedAmount: amount.String(),
		BaseRate:        baseRate,
		AdjustedRate:    rate,
		EquityScore:     score,
		Location:        data.Location,
		IncomeLevel:     data.IncomeLevel,
		PollutionLevel:  data.PollutionLevel,
		TransportScore:  data.TransportScore,
		Density:         data.Density,
		DataTimestamp:   data.Timestamp,
		Status:          models.ApplicationStatusPending,
	}

	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"application_id": app.ID,
		"borrower":       app.Borrower,
		"asset_id":       assetID,
		"equity_score":   score,
		"base_rate":      baseRate,
		"adjusted_rate":  rate,
	}).Info("贷款申请已受理")

	return app, nil
}

// Approve 批准申请（仅管理员），pending → approved，终态
func (s *RateAdjusterService) Approve(ctx context.Context, caller, applicationID string) error {
	return s.decide(ctx, caller, applicationID, models.ApplicationStatusApproved)
}

// Reject 驳回申请（仅管理员），pending → rejected，终态
func (s *RateAdjusterService) Reject(ctx context.Context, caller, applicationID string) error {
	return s.decide(ctx, caller, applicationID, models.ApplicationStatusRejected)
}

func (s *RateAdjusterService) decide(ctx context.Context, caller, applicationID string, to models.ApplicationStatus) error {
	if !identity.Same(caller, s.admin) {
		return errors.New(errors.ErrUnauthorized, "caller is not the admin", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if app == nil {
		return errors.New(errors.ErrNotFound, "application not found: "+applicationID, nil)
	}
	if app.Status != models.ApplicationStatusPending {
		return errors.New(errors.ErrAlreadyDecided,
			"application "+applicationID+" is "+string(app.Status), nil)
	}

	if err := s.apps.Decide(ctx, applicationID, to); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"application_id": applicationID,
		"decision":       to,
	}).Info("贷款申请已裁决")

	return nil
}

func (s *RateAdjusterService) Application(ctx context.Context, applicationID string) (*models.LoanApplication, error) {
	return s.apps.GetByID(ctx, applicationID)
}

func (s *RateAdjusterService) BorrowerApplications(ctx context.Context, borrower string, limit int) ([]models.LoanApplication, error) {
	return s.apps.ListByBorrower(ctx, identity.Normalize(borrower), limit)
}

func (s *RateAdjusterService) Stats(ctx context.Context) (map[models.ApplicationStatus]int64, error) {
	return s.apps.CountByStatus(ctx)
}
