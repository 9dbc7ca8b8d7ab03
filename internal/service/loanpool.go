package service

import (
	"context"
	"math/big"
	"sync"

	"mobility-finance-engine/internal/equity"
	"mobility-finance-engine/internal/identity"
	"mobility-finance-engine/internal/models"
	"mobility-finance-engine/pkg/errors"
	"mobility-finance-engine/pkg/logger"
)

// AssetStore 资产存取
type AssetStore interface {
	Create(ctx context.Context, asset *models.MobilityAsset) error
	GetByID(ctx context.Context, assetID string) (*models.MobilityAsset, error)
	List(ctx context.Context, offset, limit int) ([]models.MobilityAsset, error)
	UpdateStatus(ctx context.Context, assetID string, from, to models.AssetStatus) error
	ApplyContribution(ctx context.Context, assetID string, newRaised string, newStatus models.AssetStatus, contrib *models.Contribution) error
}

// ContributionStore 出资记录读取
type ContributionStore interface {
	ListByAsset(ctx context.Context, assetID string) ([]models.Contribution, error)
	ListByInvestor(ctx context.Context, investor string, limit int) ([]models.Contribution, error)
	TotalRaised(ctx context.Context) (string, error)
}

// UrbanDataSource 城市数据来源，由oracle.Provider实现
type UrbanDataSource interface {
	UrbanData(ctx context.Context, location string) (equity.UrbanData, error)
}

// LoanPoolService 资产资金池状态机
// 资产生命周期：proposed → funding → funded → active → completed，只进不退。
// 外部账本假定串行化同一资产上的并发调用，服务内再用互斥锁兜底。
type LoanPoolService struct {
	assets   AssetStore
	contribs ContributionStore
	urban    UrbanDataSource
	admin    string
	mu       sync.Mutex
}

func NewLoanPoolService(assets AssetStore, contribs ContributionStore, urban UrbanDataSource, adminAddress string) *LoanPoolService {
	return &LoanPoolService{
		assets:   assets,
		contribs: contribs,
		urban:    urban,
		admin:    adminAddress,
	}
}

// CreateAsset 创建资产（仅管理员），初始状态proposed
// 公平分取自资产所在地区的城市数据
func (s *LoanPoolService) CreateAsset(ctx context.Context, caller, assetID, name, assetType, location, targetAmount string) (*models.MobilityAsset, error) {
	if !identity.Same(caller, s.admin) {
		return nil, errors.New(errors.ErrUnauthorized, "caller is not the admin", nil)
	}
	if assetID == "" || name == "" || assetType == "" {
		return nil, errors.New(errors.ErrInvalidInput, "asset id, name and type are required", nil)
	}

	target, err := parseAmount(targetAmount)
	if err != nil {
		return nil, err
	}

	existing, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New(errors.ErrInvalidInput, "asset already exists: "+assetID, nil)
	}

	data, err := s.urban.UrbanData(ctx, location)
	if err != nil {
		return nil, err
	}
	score := equity.Score(data)

	asset := &models.MobilityAsset{
		ID:           assetID,
		Name:         name,
		AssetType:    assetType,
		Location:     location,
		TargetAmount: target.String(),
		RaisedAmount: "0",
		EquityScore:  score,
		Status:       models.AssetStatusProposed,
	}

	if err := s.assets.Create(ctx, asset); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"asset_id":     assetID,
		"location":     location,
		"equity_score": score,
		"target":       target.String(),
	}).Info("资产已创建")

	return asset, nil
}

// OpenFunding 开放募资（仅管理员），proposed → funding
func (s *LoanPoolService) OpenFunding(ctx context.Context, caller, assetID string) error {
	return s.advance(ctx, caller, assetID, models.AssetStatusProposed, models.AssetStatusFunding)
}

// Activate 投入运营（仅管理员），funded → active
func (s *LoanPoolService) Activate(ctx context.Context, caller, assetID string) error {
	return s.advance(ctx, caller, assetID, models.AssetStatusFunded, models.AssetStatusActive)
}

// Complete 完结资产（仅管理员），active → completed，终态
func (s *LoanPoolService) Complete(ctx context.Context, caller, assetID string) error {
	return s.advance(ctx, caller, assetID, models.AssetStatusActive, models.AssetStatusCompleted)
}

func (s *LoanPoolService) advance(ctx context.Context, caller, assetID string, from, to models.AssetStatus) error {
	if !identity.Same(caller, s.admin) {
		return errors.New(errors.ErrUnauthorized, "caller is not the admin", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return err
	}
	if asset == nil {
		return errors.New(errors.ErrNotFound, "asset not found: "+assetID, nil)
	}
	if asset.Status != from {
		return errors.New(errors.ErrInvalidState,
			"asset "+assetID+" is "+string(asset.Status)+", expected "+string(from), nil)
	}

	if err := s.assets.UpdateStatus(ctx, assetID, from, to); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"asset_id": assetID,
		"from":     from,
		"to":       to,
	}).Info("资产状态已推进")

	return nil
}

// Contribute 出资，要求资产处于funding状态
// 超出剩余目标额整单拒绝（不做部分受理），出资人需降额重试；
// 筹满目标额时自动转为funded。
func (s *LoanPoolService) Contribute(ctx context.Context, investor, assetID, amount string) (*models.Contribution, error) {
	if investor == "" {
		return nil, errors.New(errors.ErrInvalidInput, "investor is required", nil)
	}

	value, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, errors.New(errors.ErrNotFound, "asset not found: "+assetID, nil)
	}
	if asset.Status != models.AssetStatusFunding {
		return nil, errors.New(errors.ErrInvalidState,
			"asset "+assetID+" is not funding", nil)
	}

	raised := parseStored(asset.RaisedAmount)
	target := parseStored(asset.TargetAmount)

	newRaised := new(big.Int).Add(raised, value)
	if newRaised.Cmp(target) > 0 {
		return nil, errors.New(errors.ErrFundingExceeded,
			"contribution would exceed funding target", nil)
	}

	data, err := s.urban.UrbanData(ctx, asset.Location)
	if err != nil {
		return nil, err
	}
	score := equity.Score(data)

	newStatus := models.AssetStatusFunding
	if newRaised.Cmp(target) == 0 {
		newStatus = models.AssetStatusFunded
	}

	contrib := &models.Contribution{
		AssetID:     assetID,
		Investor:    identity.Normalize(investor),
		Amount:      value.String(),
		EquityScore: score,
	}

	if err := s.assets.ApplyContribution(ctx, assetID, newRaised.String(), newStatus, contrib); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"asset_id":     assetID,
		"investor":     contrib.Investor,
		"amount":       value.String(),
		"raised":       newRaised.String(),
		"equity_score": score,
		"status":       newStatus,
	}).Info("出资已受理")

	return contrib, nil
}

// Asset 实现AssetLedger
func (s *LoanPoolService) Asset(ctx context.Context, assetID string) (*models.MobilityAsset, error) {
	return s.assets.GetByID(ctx, assetID)
}

// AssetContributions 实现AssetLedger
func (s *LoanPoolService) AssetContributions(ctx context.Context, assetID string) ([]models.Contribution, error) {
	return s.contribs.ListByAsset(ctx, assetID)
}

// InvestorContributions 某出资人的历史出资记录
func (s *LoanPoolService) InvestorContributions(ctx context.Context, investor string, limit int) ([]models.Contribution, error) {
	return s.contribs.ListByInvestor(ctx, identity.Normalize(investor), limit)
}

func (s *LoanPoolService) Assets(ctx context.Context, offset, limit int) ([]models.MobilityAsset, error) {
	return s.assets.List(ctx, offset, limit)
}

// PoolBalance 全池累计筹集额
func (s *LoanPoolService) PoolBalance(ctx context.Context) (string, error) {
	return s.contribs.TotalRaised(ctx)
}
