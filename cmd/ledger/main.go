// Command ledger inspects a trade ledger file: it rebuilds the live-position
// set the engine would start with and summarizes closed trades.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"funding-arb-bot/internal/engine"
	"funding-arb-bot/internal/ledger"

	"go.uber.org/zap"
)

func main() {
	path := flag.String("file", "data/trading_history.csv", "path to the trade ledger")
	asJSON := flag.Bool("json", false, "emit JSON instead of text")
	flag.Parse()

	log := zap.NewNop()
	store := ledger.NewCSV(*path, log)
	rows, err := store.ReadAll()
	if err != nil {
		fatal(err)
	}
	positions := engine.Rebuild(rows, log)

	type closedTrade struct {
		Pair          string  `json:"pair"`
		Reason        string  `json:"reason"`
		RealizedPnL   float64 `json:"realized_pnl"`
		FundingProfit float64 `json:"funding_profit"`
		TradeID       string  `json:"trade_id"`
	}
	var closed []closedTrade
	var totalPnL, totalFunding float64
	reasons := make(map[string]int)
	for _, row := range rows {
		if row.Action != ledger.ActionClose {
			continue
		}
		closed = append(closed, closedTrade{
			Pair:          row.Pair,
			Reason:        row.CloseReason,
			RealizedPnL:   row.RealizedPnL,
			FundingProfit: row.FundingProfit,
			TradeID:       row.TradeID,
		})
		totalPnL += row.RealizedPnL
		totalFunding += row.FundingProfit
		reasons[row.CloseReason]++
	}

	if *asJSON {
		out := map[string]any{
			"open_positions":       positions,
			"closed_trades":        closed,
			"total_realized_pnl":   totalPnL,
			"total_funding_profit": totalFunding,
			"close_reason_counts":  reasons,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fatal(err)
		}
		return
	}

	fmt.Printf("ledger: %s (%d rows)\n\n", *path, len(rows))
	fmt.Printf("open positions: %d\n", len(positions))
	pairs := make([]string, 0, len(positions))
	for pair := range positions {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)
	for _, pair := range pairs {
		pos := positions[pair]
		fmt.Printf("  %-12s short %-8s long %-8s size %.0f USDT  rate %.2f%%  trade %s\n",
			pos.Pair, pos.ShortVenue, pos.LongVenue, pos.SizeUSD, pos.InitialRateDifference*100, pos.TradeID)
	}
	fmt.Printf("\nclosed trades: %d  realized PnL %.2f USDT  funding profit %.4f USDT\n", len(closed), totalPnL, totalFunding)
	reasonNames := make([]string, 0, len(reasons))
	for reason := range reasons {
		reasonNames = append(reasonNames, reason)
	}
	sort.Strings(reasonNames)
	for _, reason := range reasonNames {
		fmt.Printf("  %-28s %d\n", reason, reasons[reason])
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
