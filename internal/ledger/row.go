package ledger

import (
	"fmt"
	"strconv"
	"time"
)

type Action string

const (
	ActionOpen  Action = "OPEN"
	ActionClose Action = "CLOSE"
)

// Header is the fixed column schema of the trade ledger. New columns are only
// ever appended; readers must tolerate rows written before a column existed.
var Header = []string{
	"timestamp_utc",
	"pair",
	"action",
	"short_venue",
	"long_venue",
	"size_usdt",
	"short_price",
	"long_price",
	"funding_rate_diff_annualized_percent",
	"close_reason",
	"realized_pnl",
	"funding_fee_profit",
	"trade_id",
}

// Row is one immutable trade event. CloseReason, RealizedPnL and
// FundingProfit are only set on CLOSE rows; the Has flags distinguish a zero
// value from an absent field. TradeID correlates an OPEN row with its CLOSE
// row; rows written before the column existed carry an empty TradeID.
type Row struct {
	Timestamp        time.Time
	Pair             string
	Action           Action
	ShortVenue       string
	LongVenue        string
	SizeUSD          float64
	ShortPrice       float64
	LongPrice        float64
	RateDiffPercent  float64
	CloseReason      string
	RealizedPnL      float64
	HasRealizedPnL   bool
	FundingProfit    float64
	HasFundingProfit bool
	TradeID          string
}

func (r Row) record() []string {
	closeReason := ""
	realized := ""
	funding := ""
	if r.Action == ActionClose {
		closeReason = r.CloseReason
		if r.HasRealizedPnL {
			realized = strconv.FormatFloat(r.RealizedPnL, 'f', 2, 64)
		}
		if r.HasFundingProfit {
			funding = strconv.FormatFloat(r.FundingProfit, 'f', 6, 64)
		}
	}
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Pair,
		string(r.Action),
		r.ShortVenue,
		r.LongVenue,
		strconv.FormatFloat(r.SizeUSD, 'f', -1, 64),
		strconv.FormatFloat(r.ShortPrice, 'f', 6, 64),
		strconv.FormatFloat(r.LongPrice, 'f', 6, 64),
		strconv.FormatFloat(r.RateDiffPercent, 'f', 4, 64),
		closeReason,
		realized,
		funding,
		r.TradeID,
	}
}

// parseRow converts one CSV record back into a Row. Records shorter than the
// current schema are padded with empty optional fields so legacy rows stay
// readable.
func parseRow(record []string) (Row, error) {
	if len(record) < 9 {
		return Row{}, fmt.Errorf("expected at least 9 columns, got %d", len(record))
	}
	for len(record) < len(Header) {
		record = append(record, "")
	}
	ts, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		// Older rows used a bare ISO timestamp without a zone suffix.
		ts, err = time.Parse("2006-01-02T15:04:05.999999", record[0])
		if err != nil {
			return Row{}, fmt.Errorf("invalid timestamp %q: %w", record[0], err)
		}
		ts = ts.UTC()
	}
	action := Action(record[2])
	if action != ActionOpen && action != ActionClose {
		return Row{}, fmt.Errorf("invalid action %q", record[2])
	}
	size, err := strconv.ParseFloat(record[5], 64)
	if err != nil {
		return Row{}, fmt.Errorf("invalid size %q: %w", record[5], err)
	}
	shortPrice, err := strconv.ParseFloat(record[6], 64)
	if err != nil {
		return Row{}, fmt.Errorf("invalid short price %q: %w", record[6], err)
	}
	longPrice, err := strconv.ParseFloat(record[7], 64)
	if err != nil {
		return Row{}, fmt.Errorf("invalid long price %q: %w", record[7], err)
	}
	rateDiff, err := strconv.ParseFloat(record[8], 64)
	if err != nil {
		return Row{}, fmt.Errorf("invalid rate diff %q: %w", record[8], err)
	}
	row := Row{
		Timestamp:       ts,
		Pair:            record[1],
		Action:          action,
		ShortVenue:      record[3],
		LongVenue:       record[4],
		SizeUSD:         size,
		ShortPrice:      shortPrice,
		LongPrice:       longPrice,
		RateDiffPercent: rateDiff,
		CloseReason:     record[9],
		TradeID:         record[12],
	}
	if v, err := strconv.ParseFloat(record[10], 64); err == nil {
		row.RealizedPnL = v
		row.HasRealizedPnL = true
	}
	if v, err := strconv.ParseFloat(record[11], 64); err == nil {
		row.FundingProfit = v
		row.HasFundingProfit = true
	}
	return row, nil
}
