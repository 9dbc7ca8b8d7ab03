package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobility-finance-engine/internal/equity"
	"mobility-finance-engine/internal/models"
	"mobility-finance-engine/pkg/errors"
)

const (
	testAdmin  = "0x0000000000000000000000000000000000000001"
	testOracle = "0x0000000000000000000000000000000000000002"
)

type fakeAssetStore struct {
	assets   map[string]*models.MobilityAsset
	contribs []models.Contribution
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{assets: make(map[string]*models.MobilityAsset)}
}

func (s *fakeAssetStore) Create(_ context.Context, asset *models.MobilityAsset) error {
	copied := *asset
	s.assets[asset.ID] = &copied
	return nil
}

func (s *fakeAssetStore) GetByID(_ context.Context, assetID string) (*models.MobilityAsset, error) {
	asset, ok := s.assets[assetID]
	if !ok {
		return nil, nil
	}
	copied := *asset
	return &copied, nil
}

func (s *fakeAssetStore) List(_ context.Context, offset, limit int) ([]models.MobilityAsset, error) {
	var out []models.MobilityAsset
	for _, asset := range s.assets {
		out = append(out, *asset)
	}
	return out, nil
}

func (s *fakeAssetStore) UpdateStatus(_ context.Context, assetID string, from, to models.AssetStatus) error {
	asset, ok := s.assets[assetID]
	if !ok || asset.Status != from {
		return errors.New(errors.ErrInvalidState, "asset not in expected status", nil)
	}
	asset.Status = to
	return nil
}

func (s *fakeAssetStore) ApplyContribution(_ context.Context, assetID string, newRaised string, newStatus models.AssetStatus, contrib *models.Contribution) error {
	asset, ok := s.assets[assetID]
	if !ok || asset.Status != models.AssetStatusFunding {
		return errors.New(errors.ErrInvalidState, "asset not funding", nil)
	}
	asset.RaisedAmount = newRaised
	asset.Status = newStatus
	s.contribs = append(s.contribs, *contrib)
	return nil
}

func (s *fakeAssetStore) ListByAsset(_ context.Context, assetID string) ([]models.Contribution, error) {
	var out []models.Contribution
	for _, c := range s.contribs {
		if c.AssetID == assetID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeAssetStore) ListByInvestor(_ context.Context, investor string, limit int) ([]models.Contribution, error) {
	var out []models.Contribution
	for _, c := range s.contribs {
		if c.Investor == investor {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeAssetStore) TotalRaised(_ context.Context) (string, error) {
	total := big.NewInt(0)
	for _, c := range s.contribs {
		amount, _ := new(big.Int).SetString(c.Amount, 10)
		total.Add(total, amount)
	}
	return total.String(), nil
}

type fixedUrbanSource struct {
	data equity.UrbanData
}

func (s fixedUrbanSource) UrbanData(_ context.Context, location string) (equity.UrbanData, error) {
	d := s.data
	d.Location = location
	return d, nil
}

func disadvantagedDistrict() fixedUrbanSource {
	return fixedUrbanSource{data: equity.UrbanData{
		IncomeLevel:    1,
		PollutionLevel: 10,
		TransportScore: 1,
		Density:        10,
		Timestamp:      time.Now(),
	}}
}

func newPoolService() (*LoanPoolService, *fakeAssetStore) {
	store := newFakeAssetStore()
	svc := NewLoanPoolService(store, store, disadvantagedDistrict(), testAdmin)
	return svc, store
}

func TestCreateAsset(t *testing.T) {
	svc, _ := newPoolService()
	ctx := context.Background()

	asset, err := svc.CreateAsset(ctx, testAdmin, "bike-01", "South Bike Share", "bike_sharing", "south-district", "1000")
	require.NoError(t, err)

	assert.Equal(t, models.AssetStatusProposed, asset.Status)
	assert.Equal(t, "1000", asset.TargetAmount)
	assert.Equal(t, "0", asset.RaisedAmount)
	assert.Equal(t, 65, asset.EquityScore)
}

func TestCreateAsset_AdminOnly(t *testing.T) {
	svc, _ := newPoolService()

	_, err := svc.CreateAsset(context.Background(), "0x0000000000000000000000000000000000000099",
		"bike-01", "South Bike Share", "bike_sharing", "south-district", "1000")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUnauthorized))
}

func TestCreateAsset_Duplicate(t *testing.T) {
	svc, _ := newPoolService()
	ctx := context.Background()

	_, err := svc.CreateAsset(ctx, testAdmin, "bike-01", "South Bike Share", "bike_sharing", "south-district", "1000")
	require.NoError(t, err)

	_, err = svc.CreateAsset(ctx, testAdmin, "bike-01", "Duplicate", "bike_sharing", "south-district", "500")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidInput))
}

func TestAssetLifecycle(t *testing.T) {
	svc, store := newPoolService()
	ctx := context.Background()

	_, err := svc.CreateAsset(ctx, testAdmin, "bike-01", "South Bike Share", "bike_sharing", "south-district", "1000")
	require.NoError(t, err)

	// proposed状态不可直接投运
	err = svc.Activate(ctx, testAdmin, "bike-01")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidState))

	require.NoError(t, svc.OpenFunding(ctx, testAdmin, "bike-01"))
	assert.Equal(t, models.AssetStatusFunding, store.assets["bike-01"].Status)

	_, err = svc.Contribute(ctx, "investor-a", "bike-01", "1000")
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusFunded, store.assets["bike-01"].Status)

	require.NoError(t, svc.Activate(ctx, testAdmin, "bike-01"))
	require.NoError(t, svc.Complete(ctx, testAdmin, "bike-01"))
	assert.Equal(t, models.AssetStatusCompleted, store.assets["bike-01"].Status)

	// 终态不可再推进
	err = svc.Complete(ctx, testAdmin, "bike-01")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidState))
}

func TestContribute_ExceedsTarget(t *testing.T) {
	svc, store := newPoolService()
	ctx := context.Background()

	_, err := svc.CreateAsset(ctx, testAdmin, "bike-01", "South Bike Share", "bike_sharing", "south-district", "1000")
	require.NoError(t, err)
	require.NoError(t, svc.OpenFunding(ctx, testAdmin, "bike-01"))

	_, err = svc.Contribute(ctx, "investor-a", "bike-01", "900")
	require.NoError(t, err)

	// 超出剩余目标额整单拒绝，不做部分受理
	_, err = svc.Contribute(ctx, "investor-b", "bike-01", "200")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrFundingExceeded))
	assert.Equal(t, "900", store.assets["bike-01"].RaisedAmount)
	assert.Equal(t, models.AssetStatusFunding, store.assets["bike-01"].Status)

	// 降额后可受理，筹满自动转funded
	_, err = svc.Contribute(ctx, "investor-b", "bike-01", "100")
	require.NoError(t, err)
	assert.Equal(t, "1000", store.assets["bike-01"].RaisedAmount)
	assert.Equal(t, models.AssetStatusFunded, store.assets["bike-01"].Status)
}

func TestContribute_RequiresFundingStatus(t *testing.T) {
	svc, _ := newPoolService()
	ctx := context.Background()

	_, err := svc.CreateAsset(ctx, testAdmin, "bike-01", "South Bike Share", "bike_sharing", "south-district", "1000")
	require.NoError(t, err)

	_, err = svc.Contribute(ctx, "investor-a", "bike-01", "100")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidState))
}

func TestContribute_InvalidAmount(t *testing.T) {
	svc, _ := newPoolService()
	ctx := context.Background()

	_, err := svc.CreateAsset(ctx, testAdmin, "bike-01", "South Bike Share", "bike_sharing", "south-district", "1000")
	require.NoError(t, err)
	require.NoError(t, svc.OpenFunding(ctx, testAdmin, "bike-01"))

	for _, amount := range []string{"0", "-5", "abc", ""} {
		_, err = svc.Contribute(ctx, "investor-a", "bike-01", amount)
		require.Error(t, err, "amount %q", amount)
		assert.True(t, errors.IsCode(err, errors.ErrInvalidInput))
	}
}

func TestContribute_SnapshotsEquityScore(t *testing.T) {
	svc, store := newPoolService()
	ctx := context.Background()

	_, err := svc.CreateAsset(ctx, testAdmin, "bike-01", "South Bike Share", "bike_sharing", "south-district", "1000")
	require.NoError(t, err)
	require.NoError(t, svc.OpenFunding(ctx, testAdmin, "bike-01"))

	contrib, err := svc.Contribute(ctx, "investor-a", "bike-01", "100")
	require.NoError(t, err)
	assert.Equal(t, 65, contrib.EquityScore)
	assert.Len(t, store.contribs, 1)
}

func TestPoolBalance(t *testing.T) {
	svc, _ := newPoolService()
	ctx := context.Background()

	_, err := svc.CreateAsset(ctx, testAdmin, "bike-01", "South Bike Share", "bike_sharing", "south-district", "1000")
	require.NoError(t, err)
	require.NoError(t, svc.OpenFunding(ctx, testAdmin, "bike-01"))

	_, err = svc.Contribute(ctx, "investor-a", "bike-01", "600")
	require.NoError(t, err)
	_, err = svc.Contribute(ctx, "investor-b", "bike-01", "300")
	require.NoError(t, err)

	balance, err := svc.PoolBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "900", balance)

	mine, err := svc.InvestorContributions(ctx, "investor-a", 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "600", mine[0].Amount)
}
