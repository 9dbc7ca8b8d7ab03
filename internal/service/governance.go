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

// ProposalStore 提案存取
type ProposalStore interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	GetByID(ctx context.Context, proposalID string) (*models.Proposal, error)
	ListActive(ctx context.Context) ([]models.Proposal, error)
	ListExpiredActive(ctx context.Context, now time.Time) ([]models.Proposal, error)
	ApplyVote(ctx context.Context, vote *models.Vote, forPower, againstPower, totalPower string) error
	Finalize(ctx context.Context, proposalID string, outcome models.ProposalStatus) error
	CountActive(ctx context.Context) (int64, error)
}

// VoteStore 选票与选民登记存取
type VoteStore interface {
	Get(ctx context.Context, proposalID, voter string) (*models.Vote, error)
	ListByProposal(ctx context.Context, proposalID string) ([]models.Vote, error)
	GetVoter(ctx context.Context, voter string) (*models.VoterRecord, error)
	UpsertVoter(ctx context.Context, voter, stakeAmount string, equityScore int) error
	TotalRegisteredPower(ctx context.Context) (string, error)
}

// GovernanceService 公平加权治理状态机
// 公平分达到提案门槛的选民获得固定比例的票权加成。
// 同一选民对同一提案只允许投一票，重复投票拒绝而非覆盖，
// 保证计票只增不改、重放顺序无关。
type GovernanceService struct {
	proposals        ProposalStore
	votes            VoteStore
	admin            string
	oracle           string
	boostMultiplier  int
	defaultThreshold int
	minDuration      time.Duration
	quorumPct        int
	now              func() time.Time
	mu               sync.Mutex
}

type GovernanceParams struct {
	AdminAddress          string
	OracleAddress         string
	EquityBoostMultiplier int
	DefaultBoostThreshold int
	MinProposalDuration   time.Duration
	QuorumThresholdPct    int
}

func NewGovernanceService(proposals ProposalStore, votes VoteStore, params GovernanceParams) *GovernanceService {
	return &GovernanceService{
		proposals:        proposals,
		votes:            votes,
		admin:            params.AdminAddress,
		oracle:           params.OracleAddress,
		boostMultiplier:  params.EquityBoostMultiplier,
		defaultThreshold: params.DefaultBoostThreshold,
		minDuration:      params.MinProposalDuration,
		quorumPct:        params.QuorumThresholdPct,
		now:              time.Now,
	}
}

// CreateProposal 创建提案
// boostThreshold传负值时使用配置的默认门槛
func (s *GovernanceService) CreateProposal(ctx context.Context, proposer, title, description string, boostThreshold int, duration time.Duration) (*models.Proposal, error) {
	if proposer == "" || title == "" {
		return nil, errors.New(errors.ErrInvalidInput, "proposer and title are required", nil)
	}
	if duration < s.minDuration {
		return nil, errors.New(errors.ErrInvalidInput, "proposal duration below minimum", nil)
	}
	if boostThreshold < 0 {
		boostThreshold = s.defaultThreshold
	}
	if boostThreshold > 100 {
		return nil, errors.New(errors.ErrInvalidInput, "boost threshold out of range [0,100]", nil)
	}

	now := s.now()
	proposal := &models.Proposal{
		ID:             newRecordID(now, "prop", proposer, title),
		Title:          title,
		Description:    description,
		Proposer:       identity.Normalize(proposer),
		BoostThreshold: boostThreshold,
		StartTime:      now,
		EndTime:        now.Add(duration),
		ForPower:       "0",
		AgainstPower:   "0",
		TotalPower:     "0",
		Status:         models.ProposalStatusActive,
	}

	if err := s.proposals.Create(ctx, proposal); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"proposal_id":     proposal.ID,
		"proposer":        proposal.Proposer,
		"boost_threshold": boostThreshold,
		"end_time":        proposal.EndTime,
	}).Info("提案已创建")

	return proposal, nil
}

// boostedPower 计算加成后票权
// 仅当公平分达到提案门槛时加成，multiplier=150表示加成50%
func boostedPower(basePower *big.Int, equityScore, threshold, multiplier int) *big.Int {
	boosted := new(big.Int).Set(basePower)
	if equityScore >= threshold {
		boostPct := multiplier - 100
		boost := new(big.Int).Mul(basePower, big.NewInt(int64(boostPct)))
		boost.Quo(boost, big.NewInt(100))
		boosted.Add(boosted, boost)
	}
	return boosted
}

// Vote 投票
// 窗口外拒绝；弃权票只计入参与度，不计入赞成/反对
func (s *GovernanceService) Vote(ctx context.Context, voter, proposalID, basePower string, equityScore int, choice models.VoteChoice) (*models.Vote, error) {
	if voter == "" {
		return nil, errors.New(errors.ErrInvalidInput, "voter is required", nil)
	}
	if equityScore < 0 || equityScore > 100 {
		return nil, errors.New(errors.ErrInvalidInput, "equity score out of range [0,100]", nil)
	}
	switch choice {
	case models.VoteChoiceFor, models.VoteChoiceAgainst, models.VoteChoiceAbstain:
	default:
		return nil, errors.New(errors.ErrInvalidInput, "invalid vote choice", nil)
	}

	power, err := parseAmount(basePower)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, errors.New(errors.ErrNotFound, "proposal not found: "+proposalID, nil)
	}
	now := s.now()
	if proposal.Status != models.ProposalStatusActive || now.After(proposal.EndTime) {
		return nil, errors.New(errors.ErrVotingClosed, "voting window closed", nil)
	}

	normalized := identity.Normalize(voter)
	existing, err := s.votes.Get(ctx, proposalID, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New(errors.ErrAlreadyVoted,
			"voter already voted on proposal "+proposalID, nil)
	}

	boosted := boostedPower(power, equityScore, proposal.BoostThreshold, s.boostMultiplier)

	forPower := parseStored(proposal.ForPower)
	againstPower := parseStored(proposal.AgainstPower)
	totalPower := parseStored(proposal.TotalPower)

	switch choice {
	case models.VoteChoiceFor:
		forPower.Add(forPower, boosted)
	case models.VoteChoiceAgainst:
		againstPower.Add(againstPower, boosted)
	}
	totalPower.Add(totalPower, boosted)

	vote := &models.Vote{
		ProposalID:   proposalID,
		Voter:        normalized,
		BasePower:    power.String(),
		BoostedPower: boosted.String(),
		EquityScore:  equityScore,
		Choice:       choice,
	}

	if err := s.proposals.ApplyVote(ctx, vote, forPower.String(), againstPower.String(), totalPower.String()); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"proposal_id":   proposalID,
		"voter":         normalized,
		"choice":        choice,
		"base_power":    power.String(),
		"boosted_power": boosted.String(),
		"equity_score":  equityScore,
	}).Info("选票已计入")

	return vote, nil
}

// Tally 读取计票结果，窗口关闭前调用返回VOTING_OPEN
func (s *GovernanceService) Tally(ctx context.Context, proposalID string) (forPower, againstPower string, err error) {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return "", "", err
	}
	if proposal == nil {
		return "", "", errors.New(errors.ErrNotFound, "proposal not found: "+proposalID, nil)
	}
	if s.now().Before(proposal.EndTime) || s.now().Equal(proposal.EndTime) {
		return "", "", errors.New(errors.ErrVotingOpen, "voting window still open", nil)
	}
	return proposal.ForPower, proposal.AgainstPower, nil
}

// Finalize 定稿提案：窗口关闭后按法定人数与多数裁定通过/否决
// 参与度 = 计票总权重 * 100 / 登记选民票权总和（截断）
func (s *GovernanceService) Finalize(ctx context.Context, proposalID string) (models.ProposalStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return "", err
	}
	if proposal == nil {
		return "", errors.New(errors.ErrNotFound, "proposal not found: "+proposalID, nil)
	}
	if proposal.Status != models.ProposalStatusActive {
		return "", errors.New(errors.ErrInvalidState,
			"proposal "+proposalID+" is "+string(proposal.Status), nil)
	}
	if !s.now().After(proposal.EndTime) {
		return "", errors.New(errors.ErrVotingOpen, "voting window still open", nil)
	}

	registered, err := s.votes.TotalRegisteredPower(ctx)
	if err != nil {
		return "", err
	}

	outcome := models.ProposalStatusFailed
	totalRegistered := parseStored(registered)
	totalVoted := parseStored(proposal.TotalPower)

	if totalRegistered.Sign() > 0 {
		participation := new(big.Int).Mul(totalVoted, big.NewInt(100))
		participation.Quo(participation, totalRegistered)

		if participation.Cmp(big.NewInt(int64(s.quorumPct))) >= 0 {
			forPower := parseStored(proposal.ForPower)
			againstPower := parseStored(proposal.AgainstPower)
			if forPower.Cmp(againstPower) > 0 {
				outcome = models.ProposalStatusPassed
			}
		}
	}

	if err := s.proposals.Finalize(ctx, proposalID, outcome); err != nil {
		return "", err
	}

	logger.WithFields(map[string]interface{}{
		"proposal_id": proposalID,
		"outcome":     outcome,
		"for":         proposal.ForPower,
		"against":     proposal.AgainstPower,
	}).Info("提案已定稿")

	return outcome, nil
}

// FinalizeExpired 定稿所有窗口已关闭的提案，定时任务入口
func (s *GovernanceService) FinalizeExpired(ctx context.Context) (int, error) {
	expired, err := s.proposals.ListExpiredActive(ctx, s.now())
	if err != nil {
		return 0, err
	}

	finalized := 0
	for _, proposal := range expired {
		if _, err := s.Finalize(ctx, proposal.ID); err != nil {
			logger.Error("Failed to finalize proposal:", proposal.ID, err)
			continue
		}
		finalized++
	}
	return finalized, nil
}

// UpdateVoterData 更新选民登记（仅预言机）
func (s *GovernanceService) UpdateVoterData(ctx context.Context, caller, voter, stakeAmount string, equityScore int) error {
	if !identity.Same(caller, s.oracle) {
		return errors.New(errors.ErrUnauthorized, "caller is not the oracle", nil)
	}
	if equityScore < 0 || equityScore > 100 {
		return errors.New(errors.ErrInvalidInput, "equity score out of range [0,100]", nil)
	}

	stake, err := parseAmount(stakeAmount)
	if err != nil {
		return err
	}

	return s.votes.UpsertVoter(ctx, identity.Normalize(voter), stake.String(), equityScore)
}

// Voter 读取选民登记，未登记返回nil
func (s *GovernanceService) Voter(ctx context.Context, voter string) (*models.VoterRecord, error) {
	return s.votes.GetVoter(ctx, identity.Normalize(voter))
}

func (s *GovernanceService) Proposal(ctx context.Context, proposalID string) (*models.Proposal, error) {
	return s.proposals.GetByID(ctx, proposalID)
}

func (s *GovernanceService) ActiveProposals(ctx context.Context) ([]models.Proposal, error) {
	return s.proposals.ListActive(ctx)
}

func (s *GovernanceService) ProposalVotes(ctx context.Context, proposalID string) ([]models.Vote, error) {
	return s.votes.ListByProposal(ctx, proposalID)
}

func (s *GovernanceService) ActiveProposalCount(ctx context.Context) (int64, error) {
	return s.proposals.CountActive(ctx)
}
