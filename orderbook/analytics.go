package orderbook

import (
	"errors"
	"sort"
)

// Side selects one half of the book for depth/liquidity queries.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// TradeSide is the direction of a hypothetical order. A buy consumes asks,
// a sell consumes bids.
type TradeSide string

const (
	Buy  TradeSide = "buy"
	Sell TradeSide = "sell"
)

var (
	ErrInvalidSide  = errors.New("invalid side")
	ErrInvalidDepth = errors.New("invalid depth")
)

// Depth returns up to n levels of the requested side ordered best price
// first (descending for bids, ascending for asks).
func (b *Book) Depth(side Side, n int) ([]Level, error) {
	if n < 0 {
		return nil, ErrInvalidDepth
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var src map[float64]float64
	switch side {
	case SideBid:
		src = b.bids
	case SideAsk:
		src = b.asks
	default:
		return nil, ErrInvalidSide
	}

	levels := sortedLevels(src, side == SideBid)
	if n < len(levels) {
		levels = levels[:n]
	}
	return levels, nil
}

func sortedLevels(side map[float64]float64, descending bool) []Level {
	levels := make([]Level, 0, len(side))
	for p, v := range side {
		levels = append(levels, Level{Price: p, Volume: v})
	}
	sort.Slice(levels, func(i, j int) bool {
		if descending {
			return levels[i].Price > levels[j].Price
		}
		return levels[i].Price < levels[j].Price
	})
	return levels
}

// SlippageEstimate walks the book from the best price outward, filling size
// against resting volume, and returns the relative cost of the fill versus
// executing everything at the best price. Sell-side results are sign-flipped
// so an adverse move always reads as a positive cost. If the book runs out
// before size is filled, the remainder is priced at the last level touched;
// this is a conservative approximation on thin books, not an economic bound.
func (b *Book) SlippageEstimate(size float64, side TradeSide) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var levels []Level
	switch side {
	case Buy:
		levels = sortedLevels(b.asks, false)
	case Sell:
		levels = sortedLevels(b.bids, true)
	default:
		return 0, false
	}
	if len(levels) == 0 {
		return 0, false
	}

	remaining := size
	totalCost := 0.0
	for _, lv := range levels {
		if remaining <= 0 {
			break
		}
		executed := min(lv.Volume, remaining)
		totalCost += executed * lv.Price
		remaining -= executed
	}
	if remaining > 0 {
		totalCost += remaining * levels[len(levels)-1].Price
	}

	expectedCost := size * levels[0].Price
	if expectedCost == 0 {
		return 0, false
	}
	slippage := (totalCost - expectedCost) / expectedCost
	if side == Sell {
		slippage = -slippage
	}
	return slippage, true
}

// LiquidityDistribution partitions a price window of width mid*rangePct
// (below mid for bids, above mid for asks) into bins equal-width buckets and
// sums the resting volume in each. It returns the bins+1 bucket edges and
// the per-bucket volumes. Levels exactly on the far edge fold into the last
// bucket.
func (b *Book) LiquidityDistribution(side Side, rangePct float64, bins int) (edges []float64, volumes []float64, ok bool) {
	if bins <= 0 || rangePct <= 0 {
		return nil, nil, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	bid, okB := bestLevel(b.bids, true)
	ask, okA := bestLevel(b.asks, false)
	if !okB || !okA {
		return nil, nil, false
	}
	mid := (bid.Price + ask.Price) / 2

	var src map[float64]float64
	var minPrice, maxPrice float64
	window := mid * rangePct
	switch side {
	case SideBid:
		src = b.bids
		minPrice, maxPrice = mid-window, mid
	case SideAsk:
		src = b.asks
		minPrice, maxPrice = mid, mid+window
	default:
		return nil, nil, false
	}

	edges = make([]float64, bins+1)
	width := (maxPrice - minPrice) / float64(bins)
	for i := range edges {
		edges[i] = minPrice + float64(i)*width
	}
	volumes = make([]float64, bins)
	for price, vol := range src {
		if price < minPrice || price > maxPrice {
			continue
		}
		idx := int((price - minPrice) / (maxPrice - minPrice) * float64(bins))
		if idx == bins {
			idx = bins - 1
		}
		volumes[idx] += vol
	}
	return edges, volumes, true
}
