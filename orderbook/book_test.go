package orderbook

import (
	"errors"
	"math"
	"testing"
)

func seedBook(t *testing.T) *Book {
	t.Helper()
	b := New("BTC-USDT")
	err := b.Apply(Update{
		SequenceID: 1,
		Bids:       []Level{{Price: 100, Volume: 2}, {Price: 99, Volume: 5}},
		Asks:       []Level{{Price: 101, Volume: 3}, {Price: 102, Volume: 4}},
	})
	if err != nil {
		t.Fatalf("seed apply failed: %v", err)
	}
	return b
}

func TestApplyAndBestPrices(t *testing.T) {
	b := seedBook(t)

	bid, ok := b.BestBid()
	if !ok || bid.Price != 100 || bid.Volume != 2 {
		t.Fatalf("unexpected best bid %+v ok=%v", bid, ok)
	}
	ask, ok := b.BestAsk()
	if !ok || ask.Price != 101 || ask.Volume != 3 {
		t.Fatalf("unexpected best ask %+v ok=%v", ask, ok)
	}
	if mid, ok := b.MidPrice(); !ok || mid != 100.5 {
		t.Fatalf("unexpected mid %f ok=%v", mid, ok)
	}
	if spread, ok := b.Spread(); !ok || spread != 1 {
		t.Fatalf("unexpected spread %f ok=%v", spread, ok)
	}
	pct, ok := b.SpreadPercentage()
	if !ok || math.Abs(pct-0.99502) > 1e-4 {
		t.Fatalf("unexpected spread pct %f ok=%v", pct, ok)
	}
	if b.LastSequenceID() != 1 {
		t.Fatalf("unexpected sequence id %d", b.LastSequenceID())
	}
}

func TestApplyRejectsStaleSequence(t *testing.T) {
	b := seedBook(t)
	before := b.Summary()

	err := b.Apply(Update{SequenceID: 1, Bids: []Level{{Price: 100, Volume: 9}}})
	if !errors.Is(err, ErrStaleUpdate) {
		t.Fatalf("expected stale error, got %v", err)
	}

	after := b.Summary()
	if after.LastSequenceID != before.LastSequenceID || !after.LastUpdateTime.Equal(before.LastUpdateTime) {
		t.Fatalf("metadata mutated by stale update: %+v vs %+v", after, before)
	}
	bid, _ := b.BestBid()
	if bid.Volume != 2 {
		t.Fatalf("level mutated by stale update: %+v", bid)
	}
}

func TestApplyRejectsMalformed(t *testing.T) {
	b := seedBook(t)
	cases := []Update{
		{SequenceID: 0},
		{SequenceID: -3},
		{SequenceID: 5, Bids: []Level{{Price: math.NaN(), Volume: 1}}},
		{SequenceID: 5, Asks: []Level{{Price: 101, Volume: math.Inf(1)}}},
		{SequenceID: 5, Bids: []Level{{Price: -1, Volume: 1}}},
	}
	for i, u := range cases {
		if err := b.Apply(u); !errors.Is(err, ErrMalformedUpdate) {
			t.Fatalf("case %d: expected malformed error, got %v", i, err)
		}
	}
	if b.LastSequenceID() != 1 {
		t.Fatalf("malformed update advanced sequence to %d", b.LastSequenceID())
	}
}

func TestRemoveAndReAddLevel(t *testing.T) {
	b := seedBook(t)

	if err := b.Apply(Update{SequenceID: 2, Bids: []Level{{Price: 100, Volume: 0}}}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if bid, _ := b.BestBid(); bid.Price != 99 {
		t.Fatalf("expected best bid 99 after removal, got %+v", bid)
	}
	// Removing an absent level is a no-op, not an error.
	if err := b.Apply(Update{SequenceID: 3, Bids: []Level{{Price: 100, Volume: 0}}}); err != nil {
		t.Fatalf("repeat remove failed: %v", err)
	}
	if err := b.Apply(Update{SequenceID: 4, Bids: []Level{{Price: 100, Volume: 7}}}); err != nil {
		t.Fatalf("re-add failed: %v", err)
	}
	bid, _ := b.BestBid()
	if bid.Price != 100 || bid.Volume != 7 {
		t.Fatalf("unexpected re-added level %+v", bid)
	}
}

func TestComposedQueriesAtomicUnderApply(t *testing.T) {
	b := New("BTC-USDT")
	if err := b.Apply(Update{
		SequenceID: 1,
		Bids:       []Level{{Price: 100, Volume: 1}},
		Asks:       []Level{{Price: 101, Volume: 1}},
	}); err != nil {
		t.Fatalf("seed apply failed: %v", err)
	}

	// Two full states whose only valid mids are 100.5 and 200.5; each update
	// swaps the book between them in one shot. A mid of 150.5 would mean a
	// query paired a bid from one state with an ask from the other.
	toHigh := Update{
		Bids: []Level{{Price: 100, Volume: 0}, {Price: 200, Volume: 1}},
		Asks: []Level{{Price: 101, Volume: 0}, {Price: 201, Volume: 1}},
	}
	toLow := Update{
		Bids: []Level{{Price: 200, Volume: 0}, {Price: 100, Volume: 1}},
		Asks: []Level{{Price: 201, Volume: 0}, {Price: 101, Volume: 1}},
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for seq := int64(2); seq < 2000; seq++ {
			u := toHigh
			if seq%2 == 1 {
				u = toLow
			}
			u.SequenceID = seq
			if err := b.Apply(u); err != nil {
				t.Errorf("apply failed: %v", err)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		if mid, ok := b.MidPrice(); ok && mid != 100.5 && mid != 200.5 {
			t.Fatalf("mid %v matches no applied state", mid)
		}
		if spread, ok := b.Spread(); ok && spread != 1 {
			t.Fatalf("spread %v matches no applied state", spread)
		}
	}
}

func TestEmptyBookQueries(t *testing.T) {
	b := New("ETH-USDT")
	if _, ok := b.BestBid(); ok {
		t.Fatal("empty book reported a best bid")
	}
	if _, ok := b.BestAsk(); ok {
		t.Fatal("empty book reported a best ask")
	}
	if _, ok := b.MidPrice(); ok {
		t.Fatal("empty book reported a mid price")
	}
	if _, ok := b.Spread(); ok {
		t.Fatal("empty book reported a spread")
	}
	if _, ok := b.SpreadPercentage(); ok {
		t.Fatal("empty book reported a spread percentage")
	}
	if _, ok := b.SlippageEstimate(1, Buy); ok {
		t.Fatal("empty book reported a slippage estimate")
	}
	if _, _, ok := b.LiquidityDistribution(SideBid, 0.01, 10); ok {
		t.Fatal("empty book reported a liquidity distribution")
	}
}

func TestSummarySnapshot(t *testing.T) {
	b := seedBook(t)
	s := b.Summary()
	if s.Symbol != "BTC-USDT" || !s.HasPrices {
		t.Fatalf("unexpected summary %+v", s)
	}
	if len(s.Bids) != 2 || s.Bids[0].Price != 100 || s.Bids[1].Price != 99 {
		t.Fatalf("unexpected summary bids %+v", s.Bids)
	}
	if len(s.Asks) != 2 || s.Asks[0].Price != 101 {
		t.Fatalf("unexpected summary asks %+v", s.Asks)
	}
	if s.MidPrice != 100.5 || s.Spread != 1 {
		t.Fatalf("unexpected summary prices %+v", s)
	}
}
