// Package slippage estimates expected execution slippage from order size,
// price and daily volume using parametric cost curves, with optional
// empirical calibration against observed executions.
package slippage

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// ModelName selects one of the supported cost curves.
type ModelName string

const (
	SquareRoot ModelName = "square_root"
	Linear     ModelName = "linear"
	PowerLaw   ModelName = "power_law"
	Fitted     ModelName = "fitted"
)

// DefaultPowerLawExponent is the exponent used by the power-law curve when
// no fitted parameters are available.
const DefaultPowerLawExponent = 0.6

var (
	ErrUnknownModel    = errors.New("unknown slippage model")
	ErrFitUnavailable  = errors.New("fitted model requested before a successful fit")
	ErrFitNotConverged = errors.New("slippage fit did not converge")
	ErrInvalidInput    = errors.New("invalid slippage input")
)

// FitParams is the (scale, exponent) pair of a fitted power-law curve.
type FitParams struct {
	Scale    float64 // constrained to [0, 1]
	Exponent float64 // constrained to [0, 2]
}

// Estimator converts order size, price and daily volume into an expected
// slippage in price units. The configured factors are fixed at construction;
// only Fit mutates the estimator, replacing the fitted parameters wholesale.
type Estimator struct {
	impactFactor float64
	volatility   float64 // annualized
	depthFactor  float64

	mu     sync.RWMutex
	fitted *FitParams
}

func NewEstimator(impactFactor, volatility, depthFactor float64) *Estimator {
	return &Estimator{
		impactFactor: impactFactor,
		volatility:   volatility,
		depthFactor:  depthFactor,
	}
}

// FittedParams returns the current fitted parameters, if any.
func (e *Estimator) FittedParams() (FitParams, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.fitted == nil {
		return FitParams{}, false
	}
	return *e.fitted, true
}

// Calculate dispatches to the named cost curve. Requesting Fitted before a
// successful Fit is ErrFitUnavailable, never a silent fallback.
func (e *Estimator) Calculate(orderSize, price, dailyVolume float64, model ModelName) (float64, error) {
	ratio, err := sizeRatio(orderSize, dailyVolume)
	if err != nil {
		return 0, err
	}
	switch model {
	case SquareRoot:
		return e.fromBps(e.impactFactor*math.Sqrt(ratio)*10000, price), nil
	case Linear:
		return e.fromBps(e.impactFactor*ratio*10000, price), nil
	case PowerLaw:
		return e.fromBps(e.impactFactor*math.Pow(ratio, DefaultPowerLawExponent)*10000, price), nil
	case Fitted:
		fp, ok := e.FittedParams()
		if !ok {
			return 0, ErrFitUnavailable
		}
		return e.fromBps(fp.Scale*math.Pow(ratio, fp.Exponent)*10000, price), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
}

func sizeRatio(orderSize, dailyVolume float64) (float64, error) {
	if orderSize < 0 {
		return 0, fmt.Errorf("%w: order size %v", ErrInvalidInput, orderSize)
	}
	if dailyVolume <= 0 {
		return 0, fmt.Errorf("%w: daily volume %v", ErrInvalidInput, dailyVolume)
	}
	return orderSize / dailyVolume, nil
}

// fromBps converts a basis-point slippage into price units.
func (e *Estimator) fromBps(bps, price float64) float64 {
	return bps / 10000 * price
}

// AdjustForVolatility scales a base estimate by the volatility expected over
// the execution horizon (hours of a 252-day, 6.5-hour trading year).
func (e *Estimator) AdjustForVolatility(base, horizonHours float64) float64 {
	volFactor := e.volatility * math.Sqrt(horizonHours/(252*6.5))
	return base * (1 + volFactor)
}

// AdjustForDepth scales a base estimate by how much of the touch liquidity
// the order consumes.
func (e *Estimator) AdjustForDepth(base, depthRatio float64) float64 {
	return base * (1 + depthRatio*e.depthFactor)
}

// SimulationSummary aggregates simulated slippage (in bps) for one order
// size under one model.
type SimulationSummary struct {
	OrderSize    float64
	OrderSizePct float64 // of daily volume
	Model        ModelName
	MeanBps      float64
	StdBps       float64
	MinBps       float64
	MaxBps       float64
}

// Simulate runs the three parametric curves over the given order sizes with
// the impact factor perturbed uniformly within ±20% per run, and summarizes
// the resulting slippage in basis points.
func (e *Estimator) Simulate(orderSizes []float64, price, dailyVolume float64, numRuns int, seed uint64) ([]SimulationSummary, error) {
	if numRuns < 1 {
		return nil, fmt.Errorf("%w: num runs %d", ErrInvalidInput, numRuns)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price %v", ErrInvalidInput, price)
	}
	if _, err := sizeRatio(0, dailyVolume); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	models := []ModelName{SquareRoot, Linear, PowerLaw}

	samples := make(map[ModelName]map[float64][]float64, len(models))
	for _, m := range models {
		samples[m] = make(map[float64][]float64, len(orderSizes))
	}
	for run := 0; run < numRuns; run++ {
		perturbed := NewEstimator(e.impactFactor*(0.8+0.4*rng.Float64()), e.volatility, e.depthFactor)
		for _, size := range orderSizes {
			for _, m := range models {
				slip, err := perturbed.Calculate(size, price, dailyVolume, m)
				if err != nil {
					return nil, err
				}
				samples[m][size] = append(samples[m][size], slip/price*10000)
			}
		}
	}

	summaries := make([]SimulationSummary, 0, len(orderSizes)*len(models))
	for _, size := range orderSizes {
		for _, m := range models {
			bps := samples[m][size]
			mean, std := stat.MeanStdDev(bps, nil)
			if len(bps) < 2 {
				std = 0
			}
			minBps, maxBps := bps[0], bps[0]
			for _, v := range bps[1:] {
				minBps = math.Min(minBps, v)
				maxBps = math.Max(maxBps, v)
			}
			summaries = append(summaries, SimulationSummary{
				OrderSize:    size,
				OrderSizePct: size / dailyVolume * 100,
				Model:        m,
				MeanBps:      mean,
				StdBps:       std,
				MinBps:       minBps,
				MaxBps:       maxBps,
			})
		}
	}
	return summaries, nil
}
