package orderbook

import "time"

// Summary is a point-in-time value snapshot of the book's top levels and
// derived prices, suitable for handing to a presentation or strategy layer
// without sharing the book itself.
type Summary struct {
	Symbol           string
	Bids             []Level // best ten, price descending
	Asks             []Level // best ten, price ascending
	MidPrice         float64
	Spread           float64
	SpreadPercentage float64
	HasPrices        bool // false when either side is empty
	LastUpdateTime   time.Time
	LastSequenceID   int64
}

const summaryDepth = 10

// Summary captures the current top of book.
func (b *Book) Summary() Summary {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Summary{
		Symbol:         b.symbol,
		LastUpdateTime: b.lastUpdateTime,
		LastSequenceID: b.lastSequenceID,
	}
	s.Bids = sortedLevels(b.bids, true)
	if len(s.Bids) > summaryDepth {
		s.Bids = s.Bids[:summaryDepth]
	}
	s.Asks = sortedLevels(b.asks, false)
	if len(s.Asks) > summaryDepth {
		s.Asks = s.Asks[:summaryDepth]
	}
	if len(s.Bids) > 0 && len(s.Asks) > 0 {
		bid, ask := s.Bids[0].Price, s.Asks[0].Price
		s.MidPrice = (bid + ask) / 2
		s.Spread = ask - bid
		if s.MidPrice != 0 {
			s.SpreadPercentage = s.Spread / s.MidPrice * 100
		}
		s.HasPrices = true
	}
	return s
}
