// Package execution computes optimal trade schedules and their expected
// implementation shortfall under the Almgren-Chriss market impact model.
package execution

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

const (
	tradingDaySeconds  = 6.5 * 3600
	tradingYearSeconds = 252 * tradingDaySeconds

	// Beyond this ratio of horizon to decay timescale the sinh quotient is
	// replaced with its asymptotic exponential form; math.Sinh itself
	// overflows near 710.
	sinhAsymptoticThreshold = 350
)

var (
	ErrInvalidParams = errors.New("invalid execution parameters")
)

// Params are the static market and preference inputs of one scheduling
// computation. They are immutable per computation; calibration produces a
// new effective parameter set.
type Params struct {
	InitialPrice    float64 // reference price at decision time
	Volatility      float64 // annualized
	PermanentImpact float64 // price displacement per unit executed, persistent
	TemporaryImpact float64 // price displacement per unit executed, transient
	RiskAversion    float64
	HorizonDays     float64
}

func (p Params) validate() error {
	switch {
	case p.InitialPrice <= 0:
		return fmt.Errorf("%w: initial price %v", ErrInvalidParams, p.InitialPrice)
	case p.Volatility <= 0:
		return fmt.Errorf("%w: volatility %v", ErrInvalidParams, p.Volatility)
	case p.TemporaryImpact <= 0:
		return fmt.Errorf("%w: temporary impact %v", ErrInvalidParams, p.TemporaryImpact)
	case p.PermanentImpact < 0:
		return fmt.Errorf("%w: permanent impact %v", ErrInvalidParams, p.PermanentImpact)
	case p.RiskAversion <= 0:
		return fmt.Errorf("%w: risk aversion %v", ErrInvalidParams, p.RiskAversion)
	case p.HorizonDays <= 0:
		return fmt.Errorf("%w: horizon %v days", ErrInvalidParams, p.HorizonDays)
	}
	return nil
}

// Scheduler evaluates Almgren-Chriss trajectories for a fixed parameter set.
type Scheduler struct {
	params Params
}

func NewScheduler(p Params) (*Scheduler, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Scheduler{params: p}, nil
}

// Params returns the scheduler's current parameter set.
func (s *Scheduler) Params() Params { return s.params }

// Trajectory is a discretized optimal execution schedule.
type Trajectory struct {
	Times           []float64 // elapsed seconds, numPeriods+1 points
	SharesRemaining []float64 // numPeriods+1 points, starts at the order size
	ExecutionSizes  []float64 // per-period executions, numPeriods entries
	ExpectedPrices  []float64 // impact-adjusted price path, numPeriods+1 points
}

// OptimalTrajectory computes the risk-adjusted optimal schedule for
// executing totalSize over numPeriods. The horizon is converted to seconds
// at 6.5 trading hours per day and volatility is rescaled to per-second
// units over a 252-day year. The final period always flushes any residual.
func (s *Scheduler) OptimalTrajectory(totalSize float64, numPeriods int) (Trajectory, error) {
	if totalSize <= 0 {
		return Trajectory{}, fmt.Errorf("%w: total size %v", ErrInvalidParams, totalSize)
	}
	if numPeriods < 1 {
		return Trajectory{}, fmt.Errorf("%w: num periods %d", ErrInvalidParams, numPeriods)
	}

	p := s.params
	T := p.HorizonDays * tradingDaySeconds
	sigma := p.Volatility / math.Sqrt(tradingYearSeconds)
	tau := math.Sqrt(p.TemporaryImpact / (p.RiskAversion * sigma * sigma))

	tr := Trajectory{
		Times:           make([]float64, numPeriods+1),
		SharesRemaining: make([]float64, numPeriods+1),
		ExecutionSizes:  make([]float64, numPeriods),
		ExpectedPrices:  make([]float64, numPeriods+1),
	}
	for i := range tr.Times {
		tr.Times[i] = T * float64(i) / float64(numPeriods)
	}
	tr.SharesRemaining[0] = totalSize
	tr.ExpectedPrices[0] = p.InitialPrice

	cumExecuted := 0.0
	for i := 0; i < numPeriods; i++ {
		remainingTime := T - tr.Times[i]
		if i == numPeriods-1 || remainingTime <= 0 {
			tr.ExecutionSizes[i] = tr.SharesRemaining[i]
			tr.SharesRemaining[i+1] = 0
		} else {
			target := totalSize * (1 - sinhRatio(remainingTime/tau, T/tau))
			tr.ExecutionSizes[i] = tr.SharesRemaining[i] - target
			tr.SharesRemaining[i+1] = target
		}

		cumExecuted += tr.ExecutionSizes[i]
		tr.ExpectedPrices[i+1] = p.InitialPrice -
			p.PermanentImpact*cumExecuted -
			p.TemporaryImpact*tr.ExecutionSizes[i]
	}
	return tr, nil
}

// sinhRatio computes sinh(x)/sinh(y) for 0 <= x <= y, falling back to the
// asymptotic exp(x-y) form when the arguments would overflow math.Sinh.
func sinhRatio(x, y float64) float64 {
	if y > sinhAsymptoticThreshold {
		return math.Exp(x - y)
	}
	return math.Sinh(x) / math.Sinh(y)
}

// ImplementationShortfall is the cost of the schedule versus executing the
// whole order at the initial price: (initial - vwap) * totalSize. Positive
// means the schedule executed worse than the reference price.
func (s *Scheduler) ImplementationShortfall(totalSize float64, executionSizes, expectedPrices []float64) (float64, error) {
	if totalSize <= 0 {
		return 0, fmt.Errorf("%w: total size %v", ErrInvalidParams, totalSize)
	}
	if len(expectedPrices) != len(executionSizes)+1 {
		return 0, fmt.Errorf("%w: %d prices for %d executions",
			ErrInvalidParams, len(expectedPrices), len(executionSizes))
	}
	weighted := 0.0
	for i, size := range executionSizes {
		weighted += size * expectedPrices[i+1]
	}
	vwap := weighted / totalSize
	return (s.params.InitialPrice - vwap) * totalSize, nil
}

// CalibrateRiskAversion searches [lo, hi] for the risk aversion that
// minimizes implementation shortfall for the given order, then adopts it as
// the scheduler's risk aversion. This is the one operation that
// re-parameterizes the scheduler.
func (s *Scheduler) CalibrateRiskAversion(totalSize float64, numPeriods int, lo, hi float64) (float64, error) {
	if lo <= 0 || hi <= lo {
		return 0, fmt.Errorf("%w: risk aversion bounds [%v, %v]", ErrInvalidParams, lo, hi)
	}
	if totalSize <= 0 || numPeriods < 1 {
		return 0, fmt.Errorf("%w: size %v periods %d", ErrInvalidParams, totalSize, numPeriods)
	}

	objective := func(x []float64) float64 {
		trial := *s
		trial.params.RiskAversion = clamp(x[0], lo, hi)
		tr, err := trial.OptimalTrajectory(totalSize, numPeriods)
		if err != nil {
			return math.Inf(1)
		}
		shortfall, err := trial.ImplementationShortfall(totalSize, tr.ExecutionSizes, tr.ExpectedPrices)
		if err != nil {
			return math.Inf(1)
		}
		return shortfall
	}

	problem := optimize.Problem{Func: objective}
	result, err := optimize.Minimize(problem, []float64{(lo + hi) / 2}, nil, &optimize.NelderMead{})
	if err != nil {
		return 0, fmt.Errorf("risk aversion calibration: %w", err)
	}
	best := clamp(result.X[0], lo, hi)
	s.params.RiskAversion = best
	return best, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
