package execution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SimulationResult bundles the deterministic optimal schedule with
// Monte-Carlo price paths perturbed around it. Times are reported in hours.
type SimulationResult struct {
	TimesHours      []float64
	SharesRemaining []float64
	ExecutionSizes  []float64 // padded with a trailing 0 to align with times
	ExpectedPrices  []float64
	PricePaths      [][]float64 // numPaths rows of numPeriods+1 prices
}

// Simulate computes the optimal trajectory once and then generates numPaths
// stochastic price paths around it: each period adds a Normal increment at
// per-period volatility and subtracts the permanent and temporary impact
// implied by the already-fixed schedule. This is sensitivity analysis over
// price noise, not a re-optimization.
func (s *Scheduler) Simulate(totalSize float64, numPeriods, numPaths int, seed uint64) (SimulationResult, error) {
	if numPaths < 1 {
		return SimulationResult{}, fmt.Errorf("%w: num paths %d", ErrInvalidParams, numPaths)
	}
	tr, err := s.OptimalTrajectory(totalSize, numPeriods)
	if err != nil {
		return SimulationResult{}, err
	}

	p := s.params
	T := p.HorizonDays * tradingDaySeconds
	dt := T / float64(numPeriods)
	sigmaDt := p.Volatility * math.Sqrt(dt/tradingYearSeconds)

	noise := distuv.Normal{
		Mu:    0,
		Sigma: sigmaDt,
		Src:   rand.NewSource(seed),
	}

	res := SimulationResult{
		TimesHours:      make([]float64, len(tr.Times)),
		SharesRemaining: tr.SharesRemaining,
		ExecutionSizes:  append(append([]float64(nil), tr.ExecutionSizes...), 0),
		ExpectedPrices:  tr.ExpectedPrices,
		PricePaths:      make([][]float64, numPaths),
	}
	for i, t := range tr.Times {
		res.TimesHours[i] = t / 3600
	}

	for path := 0; path < numPaths; path++ {
		prices := make([]float64, numPeriods+1)
		prices[0] = p.InitialPrice
		executedBefore := 0.0
		for i := 0; i < numPeriods; i++ {
			permanent := p.PermanentImpact * executedBefore
			temporary := p.TemporaryImpact * tr.ExecutionSizes[i]
			prices[i+1] = prices[i] + noise.Rand() - permanent - temporary
			executedBefore += tr.ExecutionSizes[i]
		}
		res.PricePaths[path] = prices
	}
	return res, nil
}
