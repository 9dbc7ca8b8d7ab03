package equity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobility-finance-engine/internal/equity"
	"mobility-finance-engine/pkg/errors"
)

func mustData(t *testing.T, income, pollution, transport, density int) equity.UrbanData {
	t.Helper()
	d, err := equity.New("district-9", income, pollution, transport, density, time.Now())
	require.NoError(t, err)
	return d
}

func TestScore_DisadvantagedDistrict(t *testing.T) {
	// 低收入、高污染、交通薄弱、高密度地区应得到最高档公平分
	d := mustData(t, 1, 10, 1, 10)

	// (11-1)*10 + 10*5 + (11-1)*8 + 10*3 = 260; 260/4 = 65
	assert.Equal(t, 65, equity.Score(d))
}

func TestScore_AffluentDistrict(t *testing.T) {
	d := mustData(t, 10, 1, 10, 1)

	// 10 + 5 + 8 + 3 = 26; 26/4 = 6
	assert.Equal(t, 6, equity.Score(d))
}

func TestScore_TruncatingDivision(t *testing.T) {
	// raw = (11-5)*10 + 5*5 + (11-5)*8 + 5*3 = 148; 148/4 = 37
	d := mustData(t, 5, 5, 5, 5)
	assert.Equal(t, 37, equity.Score(d))

	// raw = (11-4)*10 + 5*5 + (11-5)*8 + 5*3 = 158; 158/4 = 39 (截断)
	d = mustData(t, 4, 5, 5, 5)
	assert.Equal(t, 39, equity.Score(d))
}

func TestScore_Bounds(t *testing.T) {
	for income := 1; income <= 10; income++ {
		for pollution := 1; pollution <= 10; pollution++ {
			d := mustData(t, income, pollution, 1, 10)
			score := equity.Score(d)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}

func TestScore_MonotonicInIncome(t *testing.T) {
	// 收入水平越低，公平分越高
	prev := -1
	for income := 10; income >= 1; income-- {
		d := mustData(t, income, 5, 5, 5)
		score := equity.Score(d)
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}
}

func TestNew_RejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name                                  string
		income, pollution, transport, density int
	}{
		{"income_zero", 0, 5, 5, 5},
		{"income_high", 11, 5, 5, 5},
		{"pollution_zero", 5, 0, 5, 5},
		{"transport_high", 5, 5, 11, 5},
		{"density_zero", 5, 5, 5, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := equity.New("district-9", tc.income, tc.pollution, tc.transport, tc.density, time.Now())
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrInvalidInput))
		})
	}
}

func TestNew_RejectsEmptyLocation(t *testing.T) {
	_, err := equity.New("", 5, 5, 5, 5, time.Now())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidInput))
}
