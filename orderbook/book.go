// Package orderbook maintains a sequenced price-level view of one
// instrument's market depth and exposes read-only analytic queries over it.
package orderbook

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

var (
	ErrStaleUpdate     = errors.New("stale update sequence")
	ErrMalformedUpdate = errors.New("malformed update")
)

// Level is a single (price, volume) entry on one side of the book.
type Level struct {
	Price  float64
	Volume float64
}

// Update is a normalized, sequence-numbered book delta. A volume of 0 (or
// below) removes the price level. Venue wire formats are resolved to this
// shape before they reach the book.
type Update struct {
	SequenceID int64
	Bids       []Level
	Asks       []Level
}

// Book holds the current bid/ask price levels for one instrument.
// Apply is the only mutator; all queries take the read lock, so readers
// never observe a half-applied update.
type Book struct {
	symbol string

	mu             sync.RWMutex
	bids           map[float64]float64 // price -> volume
	asks           map[float64]float64
	lastUpdateTime time.Time
	lastSequenceID int64

	obsMu     sync.Mutex
	observers []Observer
}

func New(symbol string) *Book {
	return &Book{
		symbol: symbol,
		bids:   make(map[float64]float64),
		asks:   make(map[float64]float64),
	}
}

// Symbol returns the instrument this book tracks.
func (b *Book) Symbol() string { return b.symbol }

// Apply validates and applies one update. It returns ErrStaleUpdate when the
// sequence id does not advance (a normal condition on reconnect replays, the
// book is untouched) and ErrMalformedUpdate on invalid fields. On success the
// sequence/timestamp metadata commits after all level changes and registered
// observers are notified.
func (b *Book) Apply(u Update) error {
	if err := validate(u); err != nil {
		return err
	}

	b.mu.Lock()
	if b.lastSequenceID != 0 && u.SequenceID <= b.lastSequenceID {
		b.mu.Unlock()
		return ErrStaleUpdate
	}
	applyLevels(b.bids, u.Bids)
	applyLevels(b.asks, u.Asks)
	b.lastSequenceID = u.SequenceID
	b.lastUpdateTime = time.Now()
	b.mu.Unlock()

	b.notifyObservers()
	return nil
}

func applyLevels(side map[float64]float64, levels []Level) {
	for _, lv := range levels {
		if lv.Volume > 0 {
			side[lv.Price] = lv.Volume
		} else {
			delete(side, lv.Price)
		}
	}
}

func validate(u Update) error {
	if u.SequenceID <= 0 {
		return fmt.Errorf("%w: sequence id %d", ErrMalformedUpdate, u.SequenceID)
	}
	for _, side := range [][]Level{u.Bids, u.Asks} {
		for _, lv := range side {
			if math.IsNaN(lv.Price) || math.IsInf(lv.Price, 0) || lv.Price <= 0 {
				return fmt.Errorf("%w: price %v", ErrMalformedUpdate, lv.Price)
			}
			if math.IsNaN(lv.Volume) || math.IsInf(lv.Volume, 0) {
				return fmt.Errorf("%w: volume %v", ErrMalformedUpdate, lv.Volume)
			}
		}
	}
	return nil
}

// LastSequenceID returns the sequence id of the most recent accepted update,
// or 0 if none has been applied.
func (b *Book) LastSequenceID() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastSequenceID
}

// LastUpdateTime returns the wall-clock time of the most recent accepted
// update; the zero time if none has been applied.
func (b *Book) LastUpdateTime() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdateTime
}

// BestBid returns the highest-priced bid level.
func (b *Book) BestBid() (Level, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return bestLevel(b.bids, true)
}

// BestAsk returns the lowest-priced ask level.
func (b *Book) BestAsk() (Level, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return bestLevel(b.asks, false)
}

func bestLevel(side map[float64]float64, highest bool) (Level, bool) {
	if len(side) == 0 {
		return Level{}, false
	}
	first := true
	var best float64
	for p := range side {
		if first || (highest && p > best) || (!highest && p < best) {
			best = p
			first = false
		}
	}
	vol := side[best]
	if vol <= 0 {
		panic(fmt.Sprintf("orderbook: level %v has non-positive volume %v", best, vol))
	}
	return Level{Price: best, Volume: vol}, true
}

// topOfBook reads both best levels under a single lock so composed
// queries never pair sides from two different updates.
func (b *Book) topOfBook() (bid, ask Level, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bid, okB := bestLevel(b.bids, true)
	ask, okA := bestLevel(b.asks, false)
	return bid, ask, okB && okA
}

// MidPrice returns the average of best bid and best ask.
func (b *Book) MidPrice() (float64, bool) {
	bid, ask, ok := b.topOfBook()
	if !ok {
		return 0, false
	}
	return (bid.Price + ask.Price) / 2, true
}

// Spread returns best ask minus best bid.
func (b *Book) Spread() (float64, bool) {
	bid, ask, ok := b.topOfBook()
	if !ok {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// SpreadPercentage returns the spread as a percentage of the mid price.
func (b *Book) SpreadPercentage() (float64, bool) {
	bid, ask, ok := b.topOfBook()
	if !ok {
		return 0, false
	}
	mid := (bid.Price + ask.Price) / 2
	if mid == 0 {
		return 0, false
	}
	return (ask.Price - bid.Price) / mid * 100, true
}
