package oracle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobility-finance-engine/internal/equity"
	"mobility-finance-engine/internal/models"
	"mobility-finance-engine/internal/oracle"
	"mobility-finance-engine/pkg/errors"
)

type fakeStore struct {
	records map[string]*models.UrbanDataRecord
	upserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*models.UrbanDataRecord)}
}

func (s *fakeStore) GetByLocation(_ context.Context, location string) (*models.UrbanDataRecord, error) {
	return s.records[location], nil
}

func (s *fakeStore) Upsert(_ context.Context, record *models.UrbanDataRecord) error {
	s.upserts++
	s.records[record.Location] = record
	return nil
}

const oracleAddr = "0x0000000000000000000000000000000000000002"

func TestGenerate_Deterministic(t *testing.T) {
	ts := time.Now()
	a := oracle.Generate("south-district", ts)
	b := oracle.Generate("south-district", ts)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, oracle.Generate("north-district", ts))

	require.NoError(t, a.Validate())
}

func TestProvider_GeneratesAndCaches(t *testing.T) {
	store := newFakeStore()
	p := oracle.NewProvider(store, oracleAddr)
	ctx := context.Background()

	first, err := p.UrbanData(ctx, "south-district")
	require.NoError(t, err)
	assert.Equal(t, 1, store.upserts)

	second, err := p.UrbanData(ctx, "south-district")
	require.NoError(t, err)
	assert.Equal(t, 1, store.upserts, "cached record should not be regenerated")

	assert.Equal(t, first.IncomeLevel, second.IncomeLevel)
	assert.Equal(t, first.PollutionLevel, second.PollutionLevel)
	assert.Equal(t, first.TransportScore, second.TransportScore)
	assert.Equal(t, first.Density, second.Density)
}

func TestProvider_EmptyLocation(t *testing.T) {
	p := oracle.NewProvider(newFakeStore(), oracleAddr)

	_, err := p.UrbanData(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidInput))
}

func TestProvider_UpdateOracleOnly(t *testing.T) {
	store := newFakeStore()
	p := oracle.NewProvider(store, oracleAddr)
	ctx := context.Background()

	data, err := equity.New("south-district", 2, 9, 2, 8, time.Now())
	require.NoError(t, err)

	err = p.Update(ctx, "0x0000000000000000000000000000000000000099", data)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUnauthorized))

	require.NoError(t, p.Update(ctx, oracleAddr, data))

	got, err := p.UrbanData(ctx, "south-district")
	require.NoError(t, err)
	assert.Equal(t, 2, got.IncomeLevel)
	assert.Equal(t, 9, got.PollutionLevel)
}
