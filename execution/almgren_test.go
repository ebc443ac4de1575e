package execution

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{
		InitialPrice:    100,
		Volatility:      0.3,
		PermanentImpact: 0.1,
		TemporaryImpact: 0.2,
		RiskAversion:    1,
		HorizonDays:     1,
	}
}

func TestNewSchedulerValidation(t *testing.T) {
	_, err := NewScheduler(Params{})
	require.ErrorIs(t, err, ErrInvalidParams)

	p := testParams()
	p.Volatility = -1
	_, err = NewScheduler(p)
	require.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewScheduler(testParams())
	require.NoError(t, err)
}

func TestOptimalTrajectoryInvariants(t *testing.T) {
	s, err := NewScheduler(testParams())
	require.NoError(t, err)

	const totalSize = 1000.0
	const numPeriods = 10
	tr, err := s.OptimalTrajectory(totalSize, numPeriods)
	require.NoError(t, err)

	require.Len(t, tr.Times, numPeriods+1)
	require.Len(t, tr.SharesRemaining, numPeriods+1)
	require.Len(t, tr.ExecutionSizes, numPeriods)
	require.Len(t, tr.ExpectedPrices, numPeriods+1)

	assert.Equal(t, totalSize, tr.SharesRemaining[0])
	assert.InDelta(t, 0, tr.SharesRemaining[numPeriods], 1e-9)

	sum := 0.0
	for _, size := range tr.ExecutionSizes {
		sum += size
	}
	assert.InDelta(t, totalSize, sum, 1e-6)

	assert.Equal(t, 0.0, tr.Times[0])
	assert.InDelta(t, 6.5*3600, tr.Times[numPeriods], 1e-9)
	assert.Equal(t, 100.0, tr.ExpectedPrices[0])
	for i, price := range tr.ExpectedPrices {
		assert.Falsef(t, math.IsNaN(price) || math.IsInf(price, 0), "price[%d] = %v", i, price)
	}
}

func TestOptimalTrajectoryLargeHorizonNoOverflow(t *testing.T) {
	// Parameters chosen so T/tau is far beyond what math.Sinh can evaluate;
	// the asymptotic form must keep everything finite.
	p := testParams()
	p.Volatility = 5
	p.TemporaryImpact = 1e-9
	p.RiskAversion = 10
	s, err := NewScheduler(p)
	require.NoError(t, err)

	tr, err := s.OptimalTrajectory(500, 20)
	require.NoError(t, err)
	for i, rem := range tr.SharesRemaining {
		require.Falsef(t, math.IsNaN(rem) || math.IsInf(rem, 0), "remaining[%d] = %v", i, rem)
	}
	sum := 0.0
	for _, size := range tr.ExecutionSizes {
		sum += size
	}
	assert.InDelta(t, 500, sum, 1e-6)
}

func TestOptimalTrajectoryRejectsBadInputs(t *testing.T) {
	s, err := NewScheduler(testParams())
	require.NoError(t, err)

	_, err = s.OptimalTrajectory(0, 10)
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = s.OptimalTrajectory(100, 0)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestImplementationShortfallSign(t *testing.T) {
	s, err := NewScheduler(testParams())
	require.NoError(t, err)

	// A single period executes the full size at a price depressed by both
	// impact terms, so the shortfall must be positive.
	tr, err := s.OptimalTrajectory(100, 1)
	require.NoError(t, err)

	shortfall, err := s.ImplementationShortfall(100, tr.ExecutionSizes, tr.ExpectedPrices)
	require.NoError(t, err)

	wantPrice := 100.0 - 0.1*100 - 0.2*100
	assert.InDelta(t, wantPrice, tr.ExpectedPrices[1], 1e-9)
	assert.InDelta(t, (100.0-wantPrice)*100, shortfall, 1e-6)
	assert.Positive(t, shortfall)
}

func TestImplementationShortfallShapeMismatch(t *testing.T) {
	s, err := NewScheduler(testParams())
	require.NoError(t, err)

	_, err = s.ImplementationShortfall(10, []float64{5, 5}, []float64{100, 99})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestCalibrateRiskAversion(t *testing.T) {
	s, err := NewScheduler(testParams())
	require.NoError(t, err)

	best, err := s.CalibrateRiskAversion(1000, 10, 0.1, 10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, best, 0.1)
	assert.LessOrEqual(t, best, 10.0)
	assert.Equal(t, best, s.Params().RiskAversion, "calibration must re-parameterize the scheduler")

	_, err = s.CalibrateRiskAversion(1000, 10, 5, 1)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestSimulate(t *testing.T) {
	s, err := NewScheduler(testParams())
	require.NoError(t, err)

	res, err := s.Simulate(1000, 8, 25, 42)
	require.NoError(t, err)

	require.Len(t, res.PricePaths, 25)
	require.Len(t, res.TimesHours, 9)
	require.Len(t, res.ExecutionSizes, 9, "execution sizes are padded to align with times")
	assert.Equal(t, 0.0, res.ExecutionSizes[8])
	assert.InDelta(t, 6.5, res.TimesHours[8], 1e-9)
	for _, path := range res.PricePaths {
		require.Len(t, path, 9)
		assert.Equal(t, 100.0, path[0])
	}

	// Same seed, same paths.
	again, err := s.Simulate(1000, 8, 25, 42)
	require.NoError(t, err)
	assert.Equal(t, res.PricePaths, again.PricePaths)

	other, err := s.Simulate(1000, 8, 25, 7)
	require.NoError(t, err)
	assert.NotEqual(t, res.PricePaths[0], other.PricePaths[0])
}
