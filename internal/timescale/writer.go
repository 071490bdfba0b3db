package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"funding-arb-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// CycleRecord is one pair's per-cycle evaluation, archived for analytics. The
// ledger remains the durable source of truth; this stream is advisory.
type CycleRecord struct {
	Time           time.Time
	Pair           string
	State          string
	FundingRateA   float64
	FundingRateB   float64
	MarkPriceA     float64
	MarkPriceB     float64
	RateDifference float64
	PriceSpread    float64
	UnrealizedPnL  float64
	ExposureUSD    float64
}

// TradeEvent mirrors a ledger row into the analytics store.
type TradeEvent struct {
	Time          time.Time
	Pair          string
	Action        string
	ShortVenue    string
	LongVenue     string
	SizeUSD       float64
	ShortPrice    float64
	LongPrice     float64
	RatePercent   float64
	CloseReason   string
	RealizedPnL   float64
	FundingProfit float64
	TradeID       string
}

type Writer struct {
	db     *sql.DB
	log    *zap.Logger
	schema string

	cycles     chan CycleRecord
	trades     chan TradeEvent
	started    atomic.Bool
	dropCycles atomic.Uint64
	dropTrades atomic.Uint64
}

func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:     db,
		log:    log,
		schema: schema,
		cycles: make(chan CycleRecord, queueSize),
		trades: make(chan TradeEvent, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) EnqueueCycle(rec CycleRecord) {
	if w == nil {
		return
	}
	select {
	case w.cycles <- rec:
	default:
		if w.dropCycles.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale cycle queue full")
		}
	}
}

func (w *Writer) EnqueueTrade(ev TradeEvent) {
	if w == nil {
		return
	}
	select {
	case w.trades <- ev:
	default:
		if w.dropTrades.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale trade queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-w.cycles:
			w.writeCycle(ctx, rec)
		case ev := <-w.trades:
			w.writeTrade(ctx, ev)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("timescale db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		pair TEXT NOT NULL,
		state TEXT NOT NULL,
		funding_rate_a DOUBLE PRECISION NOT NULL,
		funding_rate_b DOUBLE PRECISION NOT NULL,
		mark_price_a DOUBLE PRECISION NOT NULL,
		mark_price_b DOUBLE PRECISION NOT NULL,
		rate_difference DOUBLE PRECISION NOT NULL,
		price_spread DOUBLE PRECISION NOT NULL,
		unrealized_pnl DOUBLE PRECISION NOT NULL,
		exposure_usd DOUBLE PRECISION NOT NULL
	)`, w.table("funding_cycles"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		pair TEXT NOT NULL,
		action TEXT NOT NULL,
		short_venue TEXT NOT NULL,
		long_venue TEXT NOT NULL,
		size_usd DOUBLE PRECISION NOT NULL,
		short_price DOUBLE PRECISION NOT NULL,
		long_price DOUBLE PRECISION NOT NULL,
		rate_percent DOUBLE PRECISION NOT NULL,
		close_reason TEXT NOT NULL DEFAULT '',
		realized_pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
		funding_profit DOUBLE PRECISION NOT NULL DEFAULT 0,
		trade_id TEXT NOT NULL
	)`, w.table("trade_events"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	for _, table := range []string{"funding_cycles", "trade_events"} {
		query := fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table(table))
		if err := w.exec(ctx, query); err != nil && w.log != nil {
			w.log.Warn("timescale hypertable create failed", zap.String("table", table), zap.Error(err))
		}
	}
	return nil
}

func (w *Writer) writeCycle(ctx context.Context, rec CycleRecord) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, pair, state, funding_rate_a, funding_rate_b, mark_price_a, mark_price_b,
		rate_difference, price_spread, unrealized_pnl, exposure_usd
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`, w.table("funding_cycles"))
	if _, err := w.db.ExecContext(ctx, query,
		rec.Time,
		rec.Pair,
		rec.State,
		rec.FundingRateA,
		rec.FundingRateB,
		rec.MarkPriceA,
		rec.MarkPriceB,
		rec.RateDifference,
		rec.PriceSpread,
		rec.UnrealizedPnL,
		rec.ExposureUSD,
	); err != nil && w.log != nil {
		w.log.Warn("timescale cycle insert failed", zap.Error(err))
	}
}

func (w *Writer) writeTrade(ctx context.Context, ev TradeEvent) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, pair, action, short_venue, long_venue, size_usd, short_price, long_price,
		rate_percent, close_reason, realized_pnl, funding_profit, trade_id
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`, w.table("trade_events"))
	if _, err := w.db.ExecContext(ctx, query,
		ev.Time,
		ev.Pair,
		ev.Action,
		ev.ShortVenue,
		ev.LongVenue,
		ev.SizeUSD,
		ev.ShortPrice,
		ev.LongPrice,
		ev.RatePercent,
		ev.CloseReason,
		ev.RealizedPnL,
		ev.FundingProfit,
		ev.TradeID,
	); err != nil && w.log != nil {
		w.log.Warn("timescale trade insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
