// costreport prints a one-shot execution cost report for the configured
// hypothetical order: optimal schedule, slippage estimates across models,
// and fee strategy/venue comparison.
package main

import (
	"flag"
	"fmt"
	"os"

	"execution-sim/config"
	"execution-sim/execution"
	"execution-sim/fees"
	"execution-sim/slippage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	price := flag.Float64("price", 0, "reference price (required: no live feed in this tool)")
	seed := flag.Uint64("seed", 1, "simulation seed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *price <= 0 {
		fatal(fmt.Errorf("a positive -price is required"))
	}
	if cfg.Order.Size <= 0 {
		fatal(fmt.Errorf("config order.size must be positive"))
	}

	reportExecution(cfg, *price)
	reportSlippage(cfg, *price, *seed)
	reportFees(cfg, *price, *seed)
}

func reportExecution(cfg config.AppConfig, price float64) {
	vol := cfg.Execution.Volatility
	if vol <= 0 {
		fmt.Println("== execution: skipped (execution.volatility not configured) ==")
		return
	}
	sched, err := execution.NewScheduler(execution.Params{
		InitialPrice:    price,
		Volatility:      vol,
		PermanentImpact: cfg.Execution.PermanentImpact,
		TemporaryImpact: cfg.Execution.TemporaryImpact,
		RiskAversion:    cfg.Execution.RiskAversion,
		HorizonDays:     cfg.Execution.HorizonDays,
	})
	if err != nil {
		fatal(err)
	}

	tr, err := sched.OptimalTrajectory(cfg.Order.Size, cfg.Execution.Periods)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("== execution schedule: %.2f over %d periods (%.2f days) ==\n",
		cfg.Order.Size, cfg.Execution.Periods, cfg.Execution.HorizonDays)
	fmt.Printf("%10s %16s %16s %16s\n", "hours", "remaining", "execute", "exp price")
	for i, size := range tr.ExecutionSizes {
		fmt.Printf("%10.2f %16.4f %16.4f %16.4f\n",
			tr.Times[i]/3600, tr.SharesRemaining[i], size, tr.ExpectedPrices[i+1])
	}

	shortfall, err := sched.ImplementationShortfall(cfg.Order.Size, tr.ExecutionSizes, tr.ExpectedPrices)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("implementation shortfall: %.4f\n\n", shortfall)
}

func reportSlippage(cfg config.AppConfig, price float64, seed uint64) {
	if cfg.Order.DailyVolume <= 0 {
		fmt.Println("== slippage: skipped (order.dailyVolume not configured) ==")
		return
	}
	est := slippage.NewEstimator(cfg.Slippage.ImpactFactor, cfg.Execution.Volatility, cfg.Slippage.DepthFactor)

	fmt.Printf("== slippage for %.2f @ %.2f (%.4f%% of daily volume) ==\n",
		cfg.Order.Size, price, cfg.Order.Size/cfg.Order.DailyVolume*100)
	for _, model := range []slippage.ModelName{slippage.SquareRoot, slippage.Linear, slippage.PowerLaw} {
		v, err := est.Calculate(cfg.Order.Size, price, cfg.Order.DailyVolume, model)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%12s: %.6f (%.2f bps)\n", model, v, v/price*10000)
	}

	summaries, err := est.Simulate([]float64{cfg.Order.Size}, price, cfg.Order.DailyVolume, 200, seed)
	if err != nil {
		fatal(err)
	}
	fmt.Println("perturbed impact (bps):")
	for _, s := range summaries {
		fmt.Printf("%12s: mean %.2f std %.2f min %.2f max %.2f\n",
			s.Model, s.MeanBps, s.StdBps, s.MinBps, s.MaxBps)
	}
	fmt.Println()
}

func reportFees(cfg config.AppConfig, price float64, seed uint64) {
	if len(cfg.Venues) == 0 {
		fmt.Println("== fees: skipped (no venues configured) ==")
		return
	}
	results, best, err := fees.AnalyzeVenueSelection(cfg.Venues, cfg.Order.Size, price, cfg.Order.IsBuy)
	if err != nil {
		fatal(err)
	}

	side := "sell"
	if cfg.Order.IsBuy {
		side = "buy"
	}
	fmt.Printf("== venue comparison (%s %.2f @ %.2f) ==\n", side, cfg.Order.Size, price)
	for _, r := range results {
		fmt.Printf("%12s %8s: cost %.4f savings %.4f\n", r.Venue, r.Strategy, r.ExpectedCost, r.Savings)
	}
	fmt.Printf("best: %s/%s at %.4f\n", best.Venue, best.Strategy, best.ExpectedCost)

	params, err := fees.NewParams(cfg.Venues[0].MakerRebateBps, cfg.Venues[0].TakerFeeBps,
		cfg.Venues[0].SpreadBps, cfg.Venues[0].FillProbability)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("optimal maker ratio on %s: %.4f\n", cfg.Venues[0].Name, params.OptimalMakerRatio(cfg.Order.IsBuy))

	summaries, err := params.SimulateExecution(cfg.Order.Size, price, cfg.Order.IsBuy, 1000, seed)
	if err != nil {
		fatal(err)
	}
	fmt.Println("fill-probability simulation:")
	for _, s := range summaries {
		fmt.Printf("%8s: mean %.4f std %.4f min %.4f max %.4f\n",
			s.Strategy, s.MeanCost, s.StdCost, s.MinCost, s.MaxCost)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "costreport:", err)
	os.Exit(1)
}
