package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testStore(t *testing.T) *CSV {
	t.Helper()
	return NewCSV(filepath.Join(t.TempDir(), "data", "trading_history.csv"), zap.NewNop())
}

func openRow(pair, tradeID string, ts time.Time) Row {
	return Row{
		Timestamp:       ts,
		Pair:            pair,
		Action:          ActionOpen,
		ShortVenue:      "gateio",
		LongVenue:       "bitget",
		SizeUSD:         100,
		ShortPrice:      0.004521,
		LongPrice:       0.004518,
		RateDiffPercent: 15.33,
		TradeID:         tradeID,
	}
}

func TestAppendCreatesHeader(t *testing.T) {
	s := testStore(t)
	if err := s.Append(openRow("FUN/USDT", "FUN/USDT_01", time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != strings.Join(Header, ",") {
		t.Fatalf("header = %q", lines[0])
	}
}

func TestAppendReadAllRoundtrip(t *testing.T) {
	s := testStore(t)
	open := openRow("SNT/USDT", "SNT/USDT_01", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	closeRow := Row{
		Timestamp:        time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC),
		Pair:             "SNT/USDT",
		Action:           ActionClose,
		ShortVenue:       "gateio",
		LongVenue:        "bitget",
		SizeUSD:          100,
		ShortPrice:       0.004601,
		LongPrice:        0.004600,
		RateDiffPercent:  1.8,
		CloseReason:      "LOW_ARBITRAGE_RATE",
		RealizedPnL:      -1.77,
		HasRealizedPnL:   true,
		FundingProfit:    0.027397,
		HasFundingProfit: true,
		TradeID:          "SNT/USDT_01",
	}
	for _, r := range []Row{open, closeRow} {
		if err := s.Append(r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	rows, err := s.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Action != ActionOpen || rows[1].Action != ActionClose {
		t.Fatalf("append order not preserved: %s then %s", rows[0].Action, rows[1].Action)
	}
	got := rows[1]
	if got.CloseReason != "LOW_ARBITRAGE_RATE" {
		t.Fatalf("close reason = %q", got.CloseReason)
	}
	if !got.HasRealizedPnL || got.RealizedPnL != -1.77 {
		t.Fatalf("realized pnl = %v (has=%v)", got.RealizedPnL, got.HasRealizedPnL)
	}
	if !got.HasFundingProfit || got.FundingProfit != 0.027397 {
		t.Fatalf("funding profit = %v (has=%v)", got.FundingProfit, got.HasFundingProfit)
	}
	if got.TradeID != "SNT/USDT_01" {
		t.Fatalf("trade id = %q", got.TradeID)
	}
	if !got.Timestamp.Equal(closeRow.Timestamp) {
		t.Fatalf("timestamp = %v, want %v", got.Timestamp, closeRow.Timestamp)
	}
	// OPEN rows never carry close-only fields.
	if rows[0].HasRealizedPnL || rows[0].CloseReason != "" {
		t.Fatalf("open row carries close fields: %+v", rows[0])
	}
}

func TestReadAllMissingFile(t *testing.T) {
	s := testStore(t)
	rows, err := s.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if rows != nil {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestReadAllSkipsMalformedLines(t *testing.T) {
	s := testStore(t)
	if err := s.Append(openRow("FUN/USDT", "FUN/USDT_01", time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}
	garbage := "not,a,row\nboom\n2026-03-01T10:00:00Z,X/USDT,HOLD,a,b,1,1,1,1,,,,x\n"
	if err := appendRaw(s.path, garbage); err != nil {
		t.Fatalf("append raw: %v", err)
	}
	if err := s.Append(openRow("SNT/USDT", "SNT/USDT_01", time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}

	rows, err := s.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 good rows, got %d", len(rows))
	}
	if rows[0].Pair != "FUN/USDT" || rows[1].Pair != "SNT/USDT" {
		t.Fatalf("unexpected pairs: %q, %q", rows[0].Pair, rows[1].Pair)
	}
}

func TestReadAllToleratesPartialLastLine(t *testing.T) {
	s := testStore(t)
	if err := s.Append(openRow("FUN/USDT", "FUN/USDT_01", time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}
	// A concurrent writer crash can leave a torn trailing line.
	if err := appendRaw(s.path, "2026-03-01T10:00:00Z,SNT/USDT,OP"); err != nil {
		t.Fatalf("append raw: %v", err)
	}
	rows, err := s.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected torn line skipped, got %d rows", len(rows))
	}
}

func TestReadAllLegacyRows(t *testing.T) {
	s := testStore(t)
	header := strings.Join(Header[:12], ",") + "\n"
	// Rows written before the trade_id column existed: 12 columns and a bare
	// local-style timestamp.
	legacy := "2025-11-04T09:15:22.123456,CVC/USDT,OPEN,gateio,bitget,100,0.1201,0.1199,18.25,,,\n" +
		"2025-11-05T01:15:22.123456,CVC/USDT,CLOSE,gateio,bitget,100,0.1188,0.1190,1.10,LOW_ARBITRAGE_RATE,0.92,0.033300\n"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.path, []byte(header+legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 legacy rows, got %d", len(rows))
	}
	if rows[0].TradeID != "" || rows[1].TradeID != "" {
		t.Fatalf("legacy rows must have empty trade IDs: %q, %q", rows[0].TradeID, rows[1].TradeID)
	}
	if rows[0].Timestamp.Year() != 2025 || rows[0].Timestamp.Month() != 11 {
		t.Fatalf("legacy timestamp parsed as %v", rows[0].Timestamp)
	}
	if !rows[1].HasRealizedPnL || rows[1].RealizedPnL != 0.92 {
		t.Fatalf("legacy close pnl = %v (has=%v)", rows[1].RealizedPnL, rows[1].HasRealizedPnL)
	}
}

func appendRaw(path, data string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(data)
	return err
}
