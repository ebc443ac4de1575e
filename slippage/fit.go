package slippage

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Observation is one historical execution used for curve fitting.
type Observation struct {
	OrderSize   float64
	Price       float64
	DailyVolume float64
	Slippage    float64 // in price units, as reported post-trade
}

const (
	fitScaleMin    = 0.0
	fitScaleMax    = 1.0
	fitExponentMin = 0.0
	fitExponentMax = 2.0
)

// Fit performs a bounded least-squares fit of the power-law curve
// slippage_bps = scale * ratio^exponent against the observations, with
// scale in [0,1] and exponent in [0,2] to keep the fit in an economically
// plausible regime. On success the stored fitted parameters are replaced
// wholesale; on ErrFitNotConverged any prior fit is left untouched.
func (e *Estimator) Fit(observations []Observation) (FitParams, error) {
	if len(observations) < 2 {
		return FitParams{}, fmt.Errorf("%w: need at least 2 observations, got %d", ErrInvalidInput, len(observations))
	}

	ratios := make([]float64, 0, len(observations))
	bps := make([]float64, 0, len(observations))
	for _, obs := range observations {
		ratio, err := sizeRatio(obs.OrderSize, obs.DailyVolume)
		if err != nil {
			return FitParams{}, err
		}
		if obs.Price <= 0 {
			return FitParams{}, fmt.Errorf("%w: price %v", ErrInvalidInput, obs.Price)
		}
		ratios = append(ratios, ratio)
		bps = append(bps, obs.Slippage/obs.Price*10000)
	}

	residual := func(x []float64) float64 {
		scale := clamp(x[0], fitScaleMin, fitScaleMax)
		exponent := clamp(x[1], fitExponentMin, fitExponentMax)
		sse := 0.0
		for i, ratio := range ratios {
			diff := scale*math.Pow(ratio, exponent)*10000 - bps[i]
			sse += diff * diff
		}
		return sse
	}

	problem := optimize.Problem{Func: residual}
	result, err := optimize.Minimize(problem, fitSeed(ratios, bps), nil, &optimize.NelderMead{})
	if err != nil {
		return FitParams{}, fmt.Errorf("%w: %v", ErrFitNotConverged, err)
	}

	fp := FitParams{
		Scale:    clamp(result.X[0], fitScaleMin, fitScaleMax),
		Exponent: clamp(result.X[1], fitExponentMin, fitExponentMax),
	}
	if math.IsNaN(fp.Scale) || math.IsNaN(fp.Exponent) || math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		return FitParams{}, ErrFitNotConverged
	}

	e.mu.Lock()
	e.fitted = &fp
	e.mu.Unlock()
	return fp, nil
}

// fitSeed derives a starting point from a log-log linear regression where
// possible; a power law is a line in log space, so the regression lands
// close to the optimum and NelderMead only has to absorb the bounds.
func fitSeed(ratios, bps []float64) []float64 {
	logX := make([]float64, 0, len(ratios))
	logY := make([]float64, 0, len(ratios))
	for i := range ratios {
		if ratios[i] > 0 && bps[i] > 0 {
			logX = append(logX, math.Log(ratios[i]))
			logY = append(logY, math.Log(bps[i]/10000))
		}
	}
	if len(logX) < 2 {
		return []float64{(fitScaleMin + fitScaleMax) / 2, DefaultPowerLawExponent}
	}
	alpha, beta := stat.LinearRegression(logX, logY, nil, false)
	scale := clamp(math.Exp(alpha), fitScaleMin, fitScaleMax)
	exponent := clamp(beta, fitExponentMin, fitExponentMax)
	if math.IsNaN(scale) || math.IsNaN(exponent) {
		return []float64{(fitScaleMin + fitScaleMax) / 2, DefaultPowerLawExponent}
	}
	return []float64{scale, exponent}
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
