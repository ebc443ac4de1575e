package fees

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// StrategySummary aggregates simulated execution costs for one strategy.
type StrategySummary struct {
	Strategy Strategy
	MeanCost float64
	StdCost  float64
	MinCost  float64
	MaxCost  float64
}

// SimulateExecution perturbs the fill probability with a Beta draw per run
// (concentrated around the configured value) and reports per-strategy cost
// statistics across runs. Degenerate fill probabilities of exactly 0 or 1
// are kept fixed since the Beta parameterization collapses there.
func (p Params) SimulateExecution(orderSize, price float64, isBuy bool, numRuns int, seed uint64) ([]StrategySummary, error) {
	if numRuns < 1 {
		return nil, fmt.Errorf("%w: num runs %d", ErrInvalidParams, numRuns)
	}
	if orderSize < 0 || price <= 0 {
		return nil, fmt.Errorf("%w: size %v price %v", ErrInvalidParams, orderSize, price)
	}

	src := rand.NewSource(seed)
	var fillDist *distuv.Beta
	if p.fillProbability > 0 && p.fillProbability < 1 {
		fillDist = &distuv.Beta{
			Alpha: p.fillProbability * 10,
			Beta:  (1 - p.fillProbability) * 10,
			Src:   src,
		}
	}

	strategies := []Strategy{Taker, Maker, Mixed}
	costs := make(map[Strategy][]float64, len(strategies))
	for run := 0; run < numRuns; run++ {
		trial := p
		if fillDist != nil {
			trial.fillProbability = fillDist.Rand()
		}
		for _, strategy := range strategies {
			cost, err := trial.ExpectedCost(orderSize, price, isBuy, strategy)
			if err != nil {
				return nil, err
			}
			costs[strategy] = append(costs[strategy], cost)
		}
	}

	summaries := make([]StrategySummary, 0, len(strategies))
	for _, strategy := range strategies {
		cs := costs[strategy]
		mean, std := stat.MeanStdDev(cs, nil)
		if len(cs) < 2 {
			std = 0
		}
		minCost, maxCost := cs[0], cs[0]
		for _, c := range cs[1:] {
			minCost = math.Min(minCost, c)
			maxCost = math.Max(maxCost, c)
		}
		summaries = append(summaries, StrategySummary{
			Strategy: strategy,
			MeanCost: mean,
			StdCost:  std,
			MinCost:  minCost,
			MaxCost:  maxCost,
		})
	}
	return summaries, nil
}
