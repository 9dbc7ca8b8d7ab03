package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobility-finance-engine/internal/models"
	"mobility-finance-engine/pkg/errors"
)

type fakeProposalStore struct {
	proposals map[string]*models.Proposal
	votes     *fakeVoteStore
}

func (s *fakeProposalStore) Create(_ context.Context, proposal *models.Proposal) error {
	copied := *proposal
	s.proposals[proposal.ID] = &copied
	return nil
}

func (s *fakeProposalStore) GetByID(_ context.Context, proposalID string) (*models.Proposal, error) {
	proposal, ok := s.proposals[proposalID]
	if !ok {
		return nil, nil
	}
	copied := *proposal
	return &copied, nil
}

func (s *fakeProposalStore) ListActive(_ context.Context) ([]models.Proposal, error) {
	var out []models.Proposal
	for _, p := range s.proposals {
		if p.Status == models.ProposalStatusActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeProposalStore) ListExpiredActive(_ context.Context, now time.Time) ([]models.Proposal, error) {
	var out []models.Proposal
	for _, p := range s.proposals {
		if p.Status == models.ProposalStatusActive && now.After(p.EndTime) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeProposalStore) ApplyVote(_ context.Context, vote *models.Vote, forPower, againstPower, totalPower string) error {
	key := vote.ProposalID + "|" + vote.Voter
	if _, ok := s.votes.votes[key]; ok {
		return errors.New(errors.ErrAlreadyVoted, "duplicate vote", nil)
	}
	copied := *vote
	s.votes.votes[key] = &copied

	proposal := s.proposals[vote.ProposalID]
	proposal.ForPower = forPower
	proposal.AgainstPower = againstPower
	proposal.TotalPower = totalPower
	return nil
}

func (s *fakeProposalStore) Finalize(_ context.Context, proposalID string, outcome models.ProposalStatus) error {
	proposal, ok := s.proposals[proposalID]
	if !ok || proposal.Status != models.ProposalStatusActive {
		return errors.New(errors.ErrInvalidState, "proposal not active", nil)
	}
	proposal.Status = outcome
	return nil
}

func (s *fakeProposalStore) CountActive(_ context.Context) (int64, error) {
	var count int64
	for _, p := range s.proposals {
		if p.Status == models.ProposalStatusActive {
			count++
		}
	}
	return count, nil
}

type fakeVoteStore struct {
	votes  map[string]*models.Vote
	voters map[string]*models.VoterRecord
}

func (s *fakeVoteStore) Get(_ context.Context, proposalID, voter string) (*models.Vote, error) {
	vote, ok := s.votes[proposalID+"|"+voter]
	if !ok {
		return nil, nil
	}
	copied := *vote
	return &copied, nil
}

func (s *fakeVoteStore) ListByProposal(_ context.Context, proposalID string) ([]models.Vote, error) {
	var out []models.Vote
	for _, v := range s.votes {
		if v.ProposalID == proposalID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (s *fakeVoteStore) GetVoter(_ context.Context, voter string) (*models.VoterRecord, error) {
	record, ok := s.voters[voter]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *fakeVoteStore) UpsertVoter(_ context.Context, voter, stakeAmount string, equityScore int) error {
	s.voters[voter] = &models.VoterRecord{
		Voter:       voter,
		StakeAmount: stakeAmount,
		EquityScore: equityScore,
	}
	return nil
}

func (s *fakeVoteStore) TotalRegisteredPower(_ context.Context) (string, error) {
	total := big.NewInt(0)
	for _, record := range s.voters {
		total.Add(total, parseStored(record.StakeAmount))
	}
	return total.String(), nil
}

type governanceFixture struct {
	svc       *GovernanceService
	proposals *fakeProposalStore
	votes     *fakeVoteStore
	current   time.Time
}

func newGovernanceFixture() *governanceFixture {
	votes := &fakeVoteStore{
		votes:  make(map[string]*models.Vote),
		voters: make(map[string]*models.VoterRecord),
	}
	proposals := &fakeProposalStore{
		proposals: make(map[string]*models.Proposal),
		votes:     votes,
	}

	svc := NewGovernanceService(proposals, votes, GovernanceParams{
		AdminAddress:          testAdmin,
		OracleAddress:         testOracle,
		EquityBoostMultiplier: 150,
		DefaultBoostThreshold: 70,
		MinProposalDuration:   time.Hour,
		QuorumThresholdPct:    10,
	})

	f := &governanceFixture{
		svc:       svc,
		proposals: proposals,
		votes:     votes,
		current:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	svc.now = func() time.Time { return f.current }
	return f
}

func (f *governanceFixture) advance(d time.Duration) {
	f.current = f.current.Add(d)
}

func TestBoostedPower(t *testing.T) {
	// 公平分达标：150倍乘数表示加成50%
	assert.Equal(t, "150", boostedPower(big.NewInt(100), 80, 70, 150).String())
	// 门槛恰好命中也加成
	assert.Equal(t, "150", boostedPower(big.NewInt(100), 70, 70, 150).String())
	// 未达标不加成
	assert.Equal(t, "100", boostedPower(big.NewInt(100), 69, 70, 150).String())
	// 乘数100等于不加成
	assert.Equal(t, "100", boostedPower(big.NewInt(100), 80, 70, 100).String())
	// 加成部分截断取整：33*50/100 = 16
	assert.Equal(t, "49", boostedPower(big.NewInt(33), 80, 70, 150).String())
}

func TestCreateProposal(t *testing.T) {
	f := newGovernanceFixture()
	ctx := context.Background()

	proposal, err := f.svc.CreateProposal(ctx, "proposer-a", "Expand south routes", "", -1, 2*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, models.ProposalStatusActive, proposal.Status)
	assert.Equal(t, 70, proposal.BoostThreshold, "negative threshold falls back to configured default")
	assert.Equal(t, f.current.Add(2*time.Hour), proposal.EndTime)
	assert.Equal(t, "0", proposal.ForPower)
}

func TestCreateProposal_Validation(t *testing.T) {
	f := newGovernanceFixture()
	ctx := context.Background()

	_, err := f.svc.CreateProposal(ctx, "proposer-a", "Too short", "", -1, 30*time.Minute)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidInput))

	_, err = f.svc.CreateProposal(ctx, "proposer-a", "Bad threshold", "", 101, 2*time.Hour)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidInput))

	_, err = f.svc.CreateProposal(ctx, "", "No proposer", "", -1, 2*time.Hour)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidInput))
}

func TestVote(t *testing.T) {
	f := newGovernanceFixture()
	ctx := context.Background()

	proposal, err := f.svc.CreateProposal(ctx, "proposer-a", "Expand south routes", "", -1, 2*time.Hour)
	require.NoError(t, err)

	vote, err := f.svc.Vote(ctx, "voter-a", proposal.ID, "100", 80, models.VoteChoiceFor)
	require.NoError(t, err)
	assert.Equal(t, "150", vote.BoostedPower)

	_, err = f.svc.Vote(ctx, "voter-b", proposal.ID, "100", 50, models.VoteChoiceAgainst)
	require.NoError(t, err)

	// 弃权只计入参与度
	_, err = f.svc.Vote(ctx, "voter-c", proposal.ID, "40", 90, models.VoteChoiceAbstain)
	require.NoError(t, err)

	stored := f.proposals.proposals[proposal.ID]
	assert.Equal(t, "150", stored.ForPower)
	assert.Equal(t, "100", stored.AgainstPower)
	assert.Equal(t, "310", stored.TotalPower)
}

func TestVote_Duplicate(t *testing.T) {
	f := newGovernanceFixture()
	ctx := context.Background()

	proposal, err := f.svc.CreateProposal(ctx, "proposer-a", "Expand south routes", "", -1, 2*time.Hour)
	require.NoError(t, err)

	_, err = f.svc.Vote(ctx, "voter-a", proposal.ID, "100", 80, models.VoteChoiceFor)
	require.NoError(t, err)

	// 重复投票拒绝而非覆盖，改投同样拒绝
	_, err = f.svc.Vote(ctx, "voter-a", proposal.ID, "100", 80, models.VoteChoiceAgainst)
	assert.True(t, errors.IsCode(err, errors.ErrAlreadyVoted))
	assert.Equal(t, "150", f.proposals.proposals[proposal.ID].ForPower)
}

func TestVote_WindowClosed(t *testing.T) {
	f := newGovernanceFixture()
	ctx := context.Background()

	proposal, err := f.svc.CreateProposal(ctx, "proposer-a", "Expand south routes", "", -1, 2*time.Hour)
	require.NoError(t, err)

	f.advance(3 * time.Hour)

	_, err = f.svc.Vote(ctx, "voter-a", proposal.ID, "100", 80, models.VoteChoiceFor)
	assert.True(t, errors.IsCode(err, errors.ErrVotingClosed))
}

func TestVote_InvalidChoice(t *testing.T) {
	f := newGovernanceFixture()
	ctx := context.Background()

	proposal, err := f.svc.CreateProposal(ctx, "proposer-a", "Expand south routes", "", -1, 2*time.Hour)
	require.NoError(t, err)

	_, err = f.svc.Vote(ctx, "voter-a", proposal.ID, "100", 80, models.VoteChoice("maybe"))
	assert.True(t, errors.IsCode(err, errors.ErrInvalidInput))
}

func TestTally(t *testing.T) {
	f := newGovernanceFixture()
	ctx := context.Background()

	proposal, err := f.svc.CreateProposal(ctx, "proposer-a", "Expand south routes", "", -1, 2*time.Hour)
	require.NoError(t, err)

	_, err = f.svc.Vote(ctx, "voter-a", proposal.ID, "100", 80, models.VoteChoiceFor)
	require.NoError(t, err)

	// 窗口未关闭不可读取计票结果
	_, _, err = f.svc.Tally(ctx, proposal.ID)
	assert.True(t, errors.IsCode(err, errors.ErrVotingOpen))

	f.advance(3 * time.Hour)

	forPower, againstPower, err := f.svc.Tally(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, "150", forPower)
	assert.Equal(t, "0", againstPower)
}

func TestFinalize_Passes(t *testing.T) {
	f := newGovernanceFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.UpdateVoterData(ctx, testOracle, "voter-a", "100", 80))
	require.NoError(t, f.svc.UpdateVoterData(ctx, testOracle, "voter-b", "900", 50))

	proposal, err := f.svc.CreateProposal(ctx, "proposer-a", "Expand south routes", "", -1, 2*time.Hour)
	require.NoError(t, err)

	_, err = f.svc.Vote(ctx, "voter-a", proposal.ID, "100", 80, models.VoteChoiceFor)
	require.NoError(t, err)

	// 窗口未关闭不可定稿
	_, err = f.svc.Finalize(ctx, proposal.ID)
	assert.True(t, errors.IsCode(err, errors.ErrVotingOpen))

	f.advance(3 * time.Hour)

	// 参与度 150*100/1000 = 15% >= 10%，赞成多于反对
	outcome, err := f.svc.Finalize(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusPassed, outcome)

	// 定稿后不可重复定稿
	_, err = f.svc.Finalize(ctx, proposal.ID)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidState))
}

func TestFinalize_QuorumNotMet(t *testing.T) {
	f := newGovernanceFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.UpdateVoterData(ctx, testOracle, "voter-a", "100", 80))
	require.NoError(t, f.svc.UpdateVoterData(ctx, testOracle, "voter-b", "9900", 50))

	proposal, err := f.svc.CreateProposal(ctx, "proposer-a", "Expand south routes", "", -1, 2*time.Hour)
	require.NoError(t, err)

	_, err = f.svc.Vote(ctx, "voter-a", proposal.ID, "100", 80, models.VoteChoiceFor)
	require.NoError(t, err)

	f.advance(3 * time.Hour)

	// 参与度 150*100/10000 = 1% < 10%，即使全票赞成也否决
	outcome, err := f.svc.Finalize(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusFailed, outcome)
}

func TestFinalize_NoRegisteredVoters(t *testing.T) {
	f := newGovernanceFixture()
	ctx := context.Background()

	proposal, err := f.svc.CreateProposal(ctx, "proposer-a", "Expand south routes", "", -1, 2*time.Hour)
	require.NoError(t, err)

	f.advance(3 * time.Hour)

	outcome, err := f.svc.Finalize(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusFailed, outcome)
}

func TestFinalizeExpired(t *testing.T) {
	f := newGovernanceFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.UpdateVoterData(ctx, testOracle, "voter-a", "100", 80))

	first, err := f.svc.CreateProposal(ctx, "proposer-a", "Expand south routes", "", -1, 2*time.Hour)
	require.NoError(t, err)
	_, err = f.svc.Vote(ctx, "voter-a", first.ID, "100", 80, models.VoteChoiceFor)
	require.NoError(t, err)

	f.advance(time.Hour)
	second, err := f.svc.CreateProposal(ctx, "proposer-b", "Night service pilot", "", -1, 4*time.Hour)
	require.NoError(t, err)

	f.advance(2 * time.Hour)

	// 只有第一个提案窗口已关闭
	finalized, err := f.svc.FinalizeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, finalized)
	assert.Equal(t, models.ProposalStatusPassed, f.proposals.proposals[first.ID].Status)
	assert.Equal(t, models.ProposalStatusActive, f.proposals.proposals[second.ID].Status)
}

func TestProposalReads(t *testing.T) {
	f := newGovernanceFixture()
	ctx := context.Background()

	proposal, err := f.svc.CreateProposal(ctx, "proposer-a", "Expand south routes", "", -1, 2*time.Hour)
	require.NoError(t, err)
	_, err = f.svc.Vote(ctx, "voter-a", proposal.ID, "100", 80, models.VoteChoiceFor)
	require.NoError(t, err)

	got, err := f.svc.Proposal(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, proposal.ID, got.ID)

	votes, err := f.svc.ProposalVotes(ctx, proposal.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "voter-a", votes[0].Voter)

	active, err := f.svc.ActiveProposals(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	count, err := f.svc.ActiveProposalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpdateVoterData_OracleOnly(t *testing.T) {
	f := newGovernanceFixture()
	ctx := context.Background()

	err := f.svc.UpdateVoterData(ctx, testAdmin, "voter-a", "100", 80)
	assert.True(t, errors.IsCode(err, errors.ErrUnauthorized))

	err = f.svc.UpdateVoterData(ctx, testOracle, "voter-a", "100", 101)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidInput))

	require.NoError(t, f.svc.UpdateVoterData(ctx, testOracle, "voter-a", "100", 80))

	total, err := f.votes.TotalRegisteredPower(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", total)
}
