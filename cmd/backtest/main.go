package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"TwQuant/internal/di"
	"TwQuant/internal/domain/models"
	"TwQuant/internal/service/export"
	"TwQuant/internal/usecase"
	"TwQuant/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	symbol := flag.String("symbol", "", "stock symbol, e.g. 2330")
	strategy := flag.String("strategy", "ma_cross", "strategy id")
	from := flag.String("from", "", "start date YYYY-MM-DD (default one year back)")
	to := flag.String("to", "", "end date YYYY-MM-DD (default latest session)")
	capital := flag.Float64("capital", 0, "initial capital (default from config)")
	fee := flag.Float64("fee", -1, "fee rate (default from config)")
	tax := flag.Float64("tax", -1, "tax rate (default from config)")
	stopLoss := flag.Float64("stop-loss", 0, "stop loss fraction, 0 disables")
	takeProfit := flag.Float64("take-profit", 0, "take profit fraction, 0 disables")
	params := flag.String("params", "", "strategy parameters, e.g. short=5,long=20")
	withTrades := flag.Bool("trades", false, "print individual trades")
	asJSON := flag.Bool("json", false, "print the full report as JSON")
	doExport := flag.Bool("export", false, "write the report to the Parquet export dir")
	flag.Parse()

	if *symbol == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	ch, err := di.ProvideClickHouseClient(cfg)
	if err != nil {
		log.Fatalf("clickhouse: %v", err)
	}
	defer ch.Close()

	store := di.ProvideBarStore(ch, logger)
	uc := usecase.NewBacktestUseCase(store, di.ProvideMetrics())

	req := models.BacktestRequest{
		Symbol:         *symbol,
		Strategy:       *strategy,
		From:           *from,
		To:             *to,
		InitialCapital: cfg.Backtest.InitialCapital,
		FeeRate:        cfg.Backtest.FeeRate,
		TaxRate:        cfg.Backtest.TaxRate,
		StopLoss:       *stopLoss,
		TakeProfit:     *takeProfit,
		IncludeTrades:  true,
		IncludeEquity:  *asJSON,
	}
	if *capital > 0 {
		req.InitialCapital = *capital
	}
	if *fee >= 0 {
		req.FeeRate = *fee
	}
	if *tax >= 0 {
		req.TaxRate = *tax
	}
	if req.InitialCapital <= 0 {
		req.InitialCapital = 100000
	}

	if *params != "" {
		req.Params, err = parseParams(*params)
		if err != nil {
			log.Fatalf("bad -params: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	report, err := uc.Run(ctx, req)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("encode report: %v", err)
		}
	} else {
		printSummary(report, *withTrades)
	}

	if *doExport {
		if cfg.Export.Dir == "" {
			log.Fatalf("export.dir not configured")
		}
		path, err := export.New(cfg.Export.Dir).WriteReport(report, time.Now())
		if err != nil {
			log.Fatalf("export failed: %v", err)
		}
		fmt.Printf("report written to %s\n", path)
	}
}

func parseParams(s string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("want key=value, got %q", pair)
		}
		v, err := strconv.ParseFloat(kv[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", kv[0], err)
		}
		out[kv[0]] = v
	}
	return out, nil
}

func printSummary(r *models.Report, withTrades bool) {
	fmt.Printf("%s / %s over %d bars\n", r.Symbol, r.Strategy, r.BarCount)
	fmt.Printf("  initial capital   %14.2f\n", r.InitialCapital)
	fmt.Printf("  final equity      %14.2f\n", r.FinalEquity)
	fmt.Printf("  total return      %13.2f%%\n", r.TotalReturn*100)
	fmt.Printf("  annualized        %13.2f%%\n", r.AnnualizedReturn*100)
	fmt.Printf("  buy & hold        %13.2f%%\n", r.BuyHoldReturn*100)
	fmt.Printf("  max drawdown      %13.2f%%\n", r.MaxDrawdown*100)
	fmt.Printf("  win rate          %13.2f%%\n", r.WinRate*100)
	fmt.Printf("  profit/loss ratio %14.2f\n", r.ProfitLossRatio)
	fmt.Printf("  sharpe ratio      %14.2f\n", r.SharpeRatio)
	fmt.Printf("  trades            %14d\n", r.TradeCount)

	if withTrades {
		fmt.Println()
		for _, t := range r.Trades {
			fmt.Printf("  %s  %-12s %8.2f x %-6d net %12.2f\n",
				t.Date.Format("2006-01-02"), t.Kind, t.Price, t.Shares, t.NetProfit)
		}
	}
}
