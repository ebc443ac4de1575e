package orderbook

import (
	"math"
	"testing"
)

func TestDepthOrdering(t *testing.T) {
	b := New("BTC-USDT")
	if err := b.Apply(Update{
		SequenceID: 1,
		Bids:       []Level{{Price: 99, Volume: 5}, {Price: 100, Volume: 2}, {Price: 98.5, Volume: 1}},
		Asks:       []Level{{Price: 102, Volume: 4}, {Price: 101, Volume: 3}},
	}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	bids, err := b.Depth(SideBid, 2)
	if err != nil {
		t.Fatalf("depth failed: %v", err)
	}
	if len(bids) != 2 || bids[0].Price != 100 || bids[1].Price != 99 {
		t.Fatalf("unexpected bid depth %+v", bids)
	}

	asks, err := b.Depth(SideAsk, 10)
	if err != nil {
		t.Fatalf("depth failed: %v", err)
	}
	if len(asks) != 2 || asks[0].Price != 101 || asks[1].Price != 102 {
		t.Fatalf("unexpected ask depth %+v", asks)
	}

	if _, err := b.Depth("middle", 1); err != ErrInvalidSide {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}
}

func TestDepthRejectsNegativeCount(t *testing.T) {
	b := seedBook(t)

	if _, err := b.Depth(SideBid, -1); err != ErrInvalidDepth {
		t.Fatalf("expected ErrInvalidDepth, got %v", err)
	}
}

func TestSlippageEstimateBuy(t *testing.T) {
	b := seedBook(t)

	// 3@101 + 1@102 = 405 vs 4@101 = 404.
	got, ok := b.SlippageEstimate(4, Buy)
	if !ok {
		t.Fatal("expected a slippage estimate")
	}
	want := (405.0 - 404.0) / 404.0
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("buy slippage = %v, want %v", got, want)
	}
}

func TestSlippageEstimateSellSignFlip(t *testing.T) {
	b := seedBook(t)

	// 2@100 + 2@99 = 398 vs 2*2... expected cost 4*100 = 400.
	got, ok := b.SlippageEstimate(4, Sell)
	if !ok {
		t.Fatal("expected a slippage estimate")
	}
	want := -((398.0 - 400.0) / 400.0) // adverse sell move reported positive
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("sell slippage = %v, want %v", got, want)
	}
	if got <= 0 {
		t.Fatalf("adverse sell slippage should be positive, got %v", got)
	}
}

func TestSlippageEstimateExhaustedBook(t *testing.T) {
	b := seedBook(t)

	// Asks hold 7 units; the extra 3 are priced at the worst level (102).
	got, ok := b.SlippageEstimate(10, Buy)
	if !ok {
		t.Fatal("expected a slippage estimate")
	}
	actual := 3*101.0 + 4*102.0 + 3*102.0
	expected := 10 * 101.0
	want := (actual - expected) / expected
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("thin-book slippage = %v, want %v", got, want)
	}
}

func TestLiquidityDistribution(t *testing.T) {
	b := New("BTC-USDT")
	if err := b.Apply(Update{
		SequenceID: 1,
		Bids:       []Level{{Price: 99, Volume: 1}, {Price: 100, Volume: 2}},
		Asks:       []Level{{Price: 101, Volume: 3}, {Price: 102, Volume: 4}},
	}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	// mid = 100.5, ask window = [100.5, 102.51], two buckets.
	edges, volumes, ok := b.LiquidityDistribution(SideAsk, 0.02, 2)
	if !ok {
		t.Fatal("expected a distribution")
	}
	if len(edges) != 3 || len(volumes) != 2 {
		t.Fatalf("unexpected shape edges=%d volumes=%d", len(edges), len(volumes))
	}
	if math.Abs(edges[0]-100.5) > 1e-9 || math.Abs(edges[2]-102.51) > 1e-9 {
		t.Fatalf("unexpected edges %v", edges)
	}
	// 101 falls in the first bucket, 102 in the second.
	if volumes[0] != 3 || volumes[1] != 4 {
		t.Fatalf("unexpected volumes %v", volumes)
	}
}

func TestLiquidityDistributionRejectsNonPositiveRange(t *testing.T) {
	b := New("BTC-USDT")
	if err := b.Apply(Update{
		SequenceID: 1,
		Bids:       []Level{{Price: 100, Volume: 1}},
		Asks:       []Level{{Price: 100, Volume: 5}},
	}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	// A zero-width window would put the level at mid into a NaN bucket.
	if _, _, ok := b.LiquidityDistribution(SideBid, 0, 4); ok {
		t.Fatal("expected no distribution for rangePct 0")
	}
	if _, _, ok := b.LiquidityDistribution(SideBid, -0.01, 4); ok {
		t.Fatal("expected no distribution for negative rangePct")
	}
}

func TestLiquidityDistributionTopEdgeFold(t *testing.T) {
	b := New("BTC-USDT")
	if err := b.Apply(Update{
		SequenceID: 1,
		Bids:       []Level{{Price: 100, Volume: 1}},
		Asks:       []Level{{Price: 100, Volume: 5}}, // crossed on purpose: mid = 100
	}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	// Bid window is [99, 100]; the level at exactly 100 lands on the top
	// edge and must fold into the last bucket rather than index out.
	_, volumes, ok := b.LiquidityDistribution(SideBid, 0.01, 4)
	if !ok {
		t.Fatal("expected a distribution")
	}
	if volumes[len(volumes)-1] != 1 {
		t.Fatalf("top-edge level not folded into last bucket: %v", volumes)
	}
}
