package config

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Manager publishes an immutable configuration snapshot and hot-swaps it when
// the backing file changes. A trading cycle reads Current() exactly once, so a
// reload is never observed half-applied within a cycle.
type Manager struct {
	path    string
	log     *zap.Logger
	current atomic.Pointer[Config]
	modTime atomic.Int64
}

func NewManager(path string, cfg *Config, log *zap.Logger) *Manager {
	m := &Manager{path: path, log: log}
	m.current.Store(cfg)
	if info, err := os.Stat(path); err == nil {
		m.modTime.Store(info.ModTime().UnixNano())
	}
	return m
}

func (m *Manager) Current() *Config {
	return m.current.Load()
}

// Watch polls the config file's modification time and swaps in a freshly
// validated snapshot when it changes. Invalid updates are rejected and the
// previous snapshot stays live.
func (m *Manager) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkOnce()
			}
		}
	}()
}

func (m *Manager) checkOnce() {
	info, err := os.Stat(m.path)
	if err != nil {
		return
	}
	mod := info.ModTime().UnixNano()
	if mod == m.modTime.Load() {
		return
	}
	cfg, err := Load(m.path)
	if err != nil {
		m.log.Warn("config reload rejected", zap.String("path", m.path), zap.Error(err))
		m.modTime.Store(mod)
		return
	}
	m.current.Store(cfg)
	m.modTime.Store(mod)
	m.log.Info("config reloaded",
		zap.Float64("min_rate_difference", cfg.Strategy.MinRateDifference),
		zap.Float64("max_holding_hours", cfg.Strategy.MaxHoldingHours),
		zap.Int("pairs", len(cfg.Strategy.Pairs)),
	)
}
