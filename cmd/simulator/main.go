// The simulator subscribes to one venue's order book feed, maintains the
// book, and periodically logs depth analytics and execution cost estimates
// for the configured hypothetical order.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"execution-sim/config"
	"execution-sim/execution"
	"execution-sim/feed"
	"execution-sim/infrastructure/logger"
	"execution-sim/metrics"
	"execution-sim/orderbook"
	"execution-sim/slippage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "simulator:", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Config{
		Level:   cfg.Logger.Level,
		Format:  cfg.Logger.Format,
		Outputs: cfg.Logger.Outputs,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "simulator:", err)
		os.Exit(1)
	}
	defer log.Sync()

	metrics.StartMetricsServer(cfg.MetricsAddr)
	log.Info("starting simulator",
		zap.String("exchange", cfg.Exchange),
		zap.String("symbol", cfg.Symbol),
		zap.String("metrics_addr", cfg.MetricsAddr))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := newRunner(cfg, log)
	if err := runner.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("simulator stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("simulator shut down")
}

type runner struct {
	log  *zap.Logger
	book *orderbook.Book
	vol  *realizedVol

	mu  sync.RWMutex
	cfg config.AppConfig
}

func newRunner(cfg config.AppConfig, log *zap.Logger) *runner {
	return &runner{
		log:  log,
		book: orderbook.New(cfg.Symbol),
		vol:  newRealizedVol(120),
		cfg:  cfg,
	}
}

func (r *runner) config() config.AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

func (r *runner) run(ctx context.Context) error {
	r.book.Register(bookMetrics{})

	client, err := feed.NewClient(feed.Venue(r.cfg.Exchange), r.cfg.Symbol, r.onUpdate, r.log)
	if err != nil {
		return err
	}
	client.OnReconnect = metrics.FeedReconnects.Inc

	errCh := make(chan error, 1)
	go func() { errCh <- client.Run(ctx) }()

	go func() {
		path := flag.Lookup("config").Value.String()
		err := config.Watch(ctx, path, 5*time.Second, func(cfg config.AppConfig) {
			r.mu.Lock()
			r.cfg.Order = cfg.Order
			r.cfg.Execution = cfg.Execution
			r.cfg.Slippage = cfg.Slippage
			r.cfg.Venues = cfg.Venues
			r.mu.Unlock()
			r.log.Info("reloaded model parameters")
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			r.log.Warn("config watcher stopped", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *runner) onUpdate(u orderbook.Update) {
	start := time.Now()
	err := r.book.Apply(u)
	switch {
	case err == nil:
		metrics.ObserveApply(start, "")
		if mid, ok := r.book.MidPrice(); ok {
			r.vol.add(mid)
		}
	case errors.Is(err, orderbook.ErrStaleUpdate):
		metrics.ObserveApply(start, metrics.ReasonStale)
	default:
		metrics.ObserveApply(start, metrics.ReasonMalformed)
		r.log.Warn("rejected update", zap.Int64("sequence", u.SequenceID), zap.Error(err))
	}
}

func (r *runner) report() {
	cfg := r.config()
	s := r.book.Summary()
	if !s.HasPrices {
		r.log.Info("book not ready", zap.Int64("sequence", s.LastSequenceID))
		return
	}

	fields := []zap.Field{
		zap.Float64("best_bid", s.Bids[0].Price),
		zap.Float64("best_ask", s.Asks[0].Price),
		zap.Float64("mid", s.MidPrice),
		zap.Float64("spread_pct", s.SpreadPercentage),
		zap.Int64("sequence", s.LastSequenceID),
	}

	if cfg.Order.Size > 0 {
		side := orderbook.Sell
		if cfg.Order.IsBuy {
			side = orderbook.Buy
		}
		if slip, ok := r.book.SlippageEstimate(cfg.Order.Size, side); ok {
			fields = append(fields, zap.Float64("book_slippage_pct", slip*100))
		}
		fields = append(fields, r.modelFields(cfg, s.MidPrice)...)
	}
	r.log.Info("book analytics", fields...)
}

// modelFields evaluates the cost models against the live mid price.
func (r *runner) modelFields(cfg config.AppConfig, mid float64) []zap.Field {
	var fields []zap.Field

	vol := cfg.Execution.Volatility
	if vol == 0 {
		vol = r.vol.annualized()
	}
	if vol > 0 && cfg.Execution.TemporaryImpact > 0 {
		sched, err := execution.NewScheduler(execution.Params{
			InitialPrice:    mid,
			Volatility:      vol,
			PermanentImpact: cfg.Execution.PermanentImpact,
			TemporaryImpact: cfg.Execution.TemporaryImpact,
			RiskAversion:    cfg.Execution.RiskAversion,
			HorizonDays:     cfg.Execution.HorizonDays,
		})
		if err == nil {
			if tr, err := sched.OptimalTrajectory(cfg.Order.Size, cfg.Execution.Periods); err == nil {
				if shortfall, err := sched.ImplementationShortfall(cfg.Order.Size, tr.ExecutionSizes, tr.ExpectedPrices); err == nil {
					fields = append(fields, zap.Float64("expected_shortfall", shortfall))
				}
			}
		}
	}

	if cfg.Order.DailyVolume > 0 {
		est := slippage.NewEstimator(cfg.Slippage.ImpactFactor, vol, cfg.Slippage.DepthFactor)
		if v, err := est.Calculate(cfg.Order.Size, mid, cfg.Order.DailyVolume, slippage.SquareRoot); err == nil {
			fields = append(fields, zap.Float64("model_slippage", v))
		}
	}
	return fields
}

// bookMetrics publishes top-of-book prices after every accepted update.
type bookMetrics struct{}

func (bookMetrics) OnBookUpdate(b *orderbook.Book) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return
	}
	metrics.UpdateBookPrices(bid.Price, ask.Price, (bid.Price+ask.Price)/2)
}

// realizedVol tracks a rolling window of mid prices and annualizes the
// standard deviation of their log returns.
type realizedVol struct {
	mu     sync.Mutex
	window int
	prices []float64
}

func newRealizedVol(window int) *realizedVol {
	return &realizedVol{window: window}
}

func (v *realizedVol) add(mid float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prices = append(v.prices, mid)
	if len(v.prices) > v.window {
		v.prices = v.prices[1:]
	}
}

func (v *realizedVol) annualized() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.prices) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(v.prices)-1)
	for i := 1; i < len(v.prices); i++ {
		if v.prices[i-1] > 0 {
			returns = append(returns, math.Log(v.prices[i]/v.prices[i-1]))
		}
	}
	if len(returns) < 1 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance) * math.Sqrt(float64(len(returns)))
}
