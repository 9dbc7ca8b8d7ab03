package service

import (
	"context"
	"math/big"
	"sync"
	"time"

	"mobility-finance-engine/internal/identity"
	"mobility-finance-engine/internal/models"
	"mobility-finance-engine/pkg/errors"
	"mobility-finance-engine/pkg/logger"
)

// RevenueStore 营收事件存取
type RevenueStore interface {
	CreateEvent(ctx context.Context, event *models.RevenueEvent) error
	GetByEventID(ctx context.Context, eventID string) (*models.RevenueEvent, error)
	ExistsByEventID(ctx context.Context, eventID string) (bool, error)
	MarkDistributed(ctx context.Context, event *models.RevenueEvent, shares []models.InvestorShare) error
	ListShares(ctx context.Context, eventID string) ([]models.InvestorShare, error)
	ImpactTotals(ctx context.Context) (co2, rides, underserved int64, err error)
	TotalDistributed(ctx context.Context) (string, error)
}

// RevenueService 营收分配状态机
// 每个事件只分配一次，重放直接拒绝。整数截断除法的余数归属规则固定：
// 按比例拆分的余数归最后一位出资人，奖金池未派发部分留存在事件上，
// 保证各份额与留存之和恰好等于营收总额。
type RevenueService struct {
	events       RevenueStore
	ledger       AssetLedger
	admin        string
	oracle       string
	bonusRatePct int
	mu           sync.Mutex
}

func NewRevenueService(events RevenueStore, ledger AssetLedger, adminAddress, oracleAddress string, bonusRatePct int) *RevenueService {
	return &RevenueService{
		events:       events,
		ledger:       ledger,
		admin:        adminAddress,
		oracle:       oracleAddress,
		bonusRatePct: bonusRatePct,
	}
}

// RecordRevenue 记录营收（仅预言机），待分配
func (s *RevenueService) RecordRevenue(ctx context.Context, caller, assetID, eventID, totalRevenue string, rideCount, co2SavedKg, underservedRides int64) (*models.RevenueEvent, error) {
	if !identity.Same(caller, s.oracle) {
		return nil, errors.New(errors.ErrUnauthorized, "caller is not the oracle", nil)
	}
	if eventID == "" {
		return nil, errors.New(errors.ErrInvalidInput, "event id is required", nil)
	}
	if rideCount < 0 || underservedRides < 0 || underservedRides > rideCount {
		return nil, errors.New(errors.ErrInvalidInput, "invalid ride counts", nil)
	}

	revenue, err := parseAmount(totalRevenue)
	if err != nil {
		return nil, err
	}

	asset, err := s.ledger.Asset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, errors.New(errors.ErrNotFound, "asset not found: "+assetID, nil)
	}

	exists, err := s.events.ExistsByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.New(errors.ErrInvalidInput, "event already recorded: "+eventID, nil)
	}

	event := &models.RevenueEvent{
		EventID:          eventID,
		AssetID:          assetID,
		TotalRevenue:     revenue.String(),
		RideCount:        rideCount,
		UnderservedRides: underservedRides,
		CO2SavedKg:       co2SavedKg,
	}

	if err := s.events.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"event_id": eventID,
		"asset_id": assetID,
		"revenue":  revenue.String(),
		"rides":    rideCount,
	}).Info("营收已记录")

	return event, nil
}

// Distribute 执行分配（仅管理员）
// 基线份额按出资比例分给出资人，公平奖金按同比例从奖金池派发。
// 所有除法均为截断整数除法，计算顺序不可重排。
func (s *RevenueService) Distribute(ctx context.Context, caller, eventID string, equityScore int) (*models.RevenueEvent, []models.InvestorShare, error) {
	if !identity.Same(caller, s.admin) {
		return nil, nil, errors.New(errors.ErrUnauthorized, "caller is not the admin", nil)
	}
	if equityScore < 0 || equityScore > 100 {
		return nil, nil, errors.New(errors.ErrInvalidInput, "equity score out of range [0,100]", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.events.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if event == nil {
		return nil, nil, errors.New(errors.ErrNotFound, "revenue event not found: "+eventID, nil)
	}
	if event.Distributed {
		return nil, nil, errors.New(errors.ErrAlreadyDistributed,
			"event "+eventID+" already distributed", nil)
	}

	contribs, err := s.ledger.AssetContributions(ctx, event.AssetID)
	if err != nil {
		return nil, nil, err
	}

	total := parseStored(event.TotalRevenue)
	hundred := big.NewInt(100)

	pool := new(big.Int).Mul(total, big.NewInt(int64(s.currentBonusRate())))
	pool.Quo(pool, hundred)

	baseBonus := new(big.Int).Mul(pool, big.NewInt(int64(equityScore)))
	baseBonus.Quo(baseBonus, hundred)

	var underservedRatio int64
	if event.RideCount > 0 {
		underservedRatio = event.UnderservedRides * 100 / event.RideCount
	}

	underservedBonus := new(big.Int).Mul(baseBonus, big.NewInt(underservedRatio))
	underservedBonus.Quo(underservedBonus, hundred)

	bonus := new(big.Int).Add(baseBonus, underservedBonus)
	if bonus.Cmp(pool) > 0 {
		// 高分高占比场景下公式派发额会超过奖金池，截断到池上限，否则凭空造钱
		logger.WithComponent("revenue_distributor").WithFields(map[string]interface{}{
			"event_id": eventID,
			"bonus":    bonus.String(),
			"pool":     pool.String(),
		}).Warn("公平奖金触及池上限，已截断")
		bonus.Set(pool)
	}

	baseline := new(big.Int).Sub(total, pool)

	shares := splitShares(event.EventID, contribs, baseline, bonus)

	distributed := big.NewInt(0)
	for _, share := range shares {
		distributed.Add(distributed, parseStored(share.TotalAmount))
	}
	retained := new(big.Int).Sub(total, distributed)

	event.EquityScore = equityScore
	event.EquityBonusPool = pool.String()
	event.EquityBonus = bonus.String()
	event.BaselineShare = baseline.String()
	event.RetainedRemainder = retained.String()
	event.Distributed = true
	now := time.Now()
	event.DistributedAt = &now

	if err := s.events.MarkDistributed(ctx, event, shares); err != nil {
		return nil, nil, err
	}

	logger.WithFields(map[string]interface{}{
		"event_id":   eventID,
		"total":      total.String(),
		"pool":       pool.String(),
		"bonus":      bonus.String(),
		"baseline":   baseline.String(),
		"retained":   retained.String(),
		"recipients": len(shares),
	}).Info("营收已分配")

	return event, shares, nil
}

// splitShares 按出资额比例拆分基线份额与公平奖金
// 出资人按首次出资顺序聚合，两类拆分的整除余数都归最后一位出资人
func splitShares(eventID string, contribs []models.Contribution, baseline, bonus *big.Int) []models.InvestorShare {
	type stake struct {
		investor string
		amount   *big.Int
	}

	var order []string
	amounts := make(map[string]*big.Int)
	totalStake := big.NewInt(0)
	for _, c := range contribs {
		amount := parseStored(c.Amount)
		if existing, ok := amounts[c.Investor]; ok {
			existing.Add(existing, amount)
		} else {
			order = append(order, c.Investor)
			amounts[c.Investor] = amount
		}
		totalStake.Add(totalStake, amount)
	}

	if len(order) == 0 || totalStake.Sign() == 0 {
		return nil
	}

	stakes := make([]stake, 0, len(order))
	for _, investor := range order {
		stakes = append(stakes, stake{investor: investor, amount: amounts[investor]})
	}

	shares := make([]models.InvestorShare, 0, len(stakes))
	baseRemaining := new(big.Int).Set(baseline)
	bonusRemaining := new(big.Int).Set(bonus)

	for i, st := range stakes {
		var base, extra *big.Int
		if i == len(stakes)-1 {
			base = baseRemaining
			extra = bonusRemaining
		} else {
			base = new(big.Int).Mul(baseline, st.amount)
			base.Quo(base, totalStake)
			extra = new(big.Int).Mul(bonus, st.amount)
			extra.Quo(extra, totalStake)
			baseRemaining = new(big.Int).Sub(baseRemaining, base)
			bonusRemaining = new(big.Int).Sub(bonusRemaining, extra)
		}

		shares = append(shares, models.InvestorShare{
			EventID:     eventID,
			Investor:    st.investor,
			BaseAmount:  base.String(),
			BonusAmount: extra.String(),
			TotalAmount: new(big.Int).Add(base, extra).String(),
		})
	}

	return shares
}

func (s *RevenueService) currentBonusRate() int {
	return s.bonusRatePct
}

// SetBonusRate 调整奖金池比例（仅管理员），允许0-50
func (s *RevenueService) SetBonusRate(caller string, pct int) error {
	if !identity.Same(caller, s.admin) {
		return errors.New(errors.ErrUnauthorized, "caller is not the admin", nil)
	}
	if pct < 0 || pct > 50 {
		return errors.New(errors.ErrInvalidInput, "bonus rate out of range [0,50]", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bonusRatePct = pct

	logger.WithFields(map[string]interface{}{
		"bonus_rate_pct": pct,
	}).Info("奖金池比例已更新")

	return nil
}

func (s *RevenueService) Event(ctx context.Context, eventID string) (*models.RevenueEvent, error) {
	return s.events.GetByEventID(ctx, eventID)
}

func (s *RevenueService) Shares(ctx context.Context, eventID string) ([]models.InvestorShare, error) {
	return s.events.ListShares(ctx, eventID)
}

// ImpactMetrics 影响力汇总：减碳量、总行程数、欠服务地区行程数
func (s *RevenueService) ImpactMetrics(ctx context.Context) (co2, rides, underserved int64, err error) {
	return s.events.ImpactTotals(ctx)
}

func (s *RevenueService) TotalDistributed(ctx context.Context) (string, error) {
	return s.events.TotalDistributed(ctx)
}
