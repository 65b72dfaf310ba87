package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/patrickjm/pageshot/internal/metrics"
)

// Manager owns the single browser shared by all requests. Start launches it
// once, Stop tears it down once; in between Browser hands out the handle.
type Manager struct {
	engine Engine
	opts   LaunchOptions
	log    *slog.Logger

	mu      sync.RWMutex
	browser Browser
	started bool
	stopped bool
}

func NewManager(engine Engine, opts LaunchOptions, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{engine: engine, opts: opts, log: log}
}

func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true
	b, err := m.engine.Launch(ctx, m.opts)
	if err != nil {
		metrics.BrowserLaunches.WithLabelValues("error").Inc()
		return fmt.Errorf("launch browser: %w", err)
	}
	metrics.BrowserLaunches.WithLabelValues("ok").Inc()
	m.browser = b
	m.log.Info("browser: started", "browser", m.opts.Browser, "headless", m.opts.Headless, "remote", m.opts.RemoteURL != "")
	return nil
}

// Browser never blocks: before Start has completed, or after Stop, it
// returns ErrUnavailable.
func (m *Manager) Browser() (Browser, error) {
	if !m.mu.TryRLock() {
		return nil, ErrUnavailable
	}
	defer m.mu.RUnlock()
	if m.browser == nil || m.stopped {
		return nil, ErrUnavailable
	}
	return m.browser, nil
}

func (m *Manager) Ready() bool {
	_, err := m.Browser()
	return err == nil
}

func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil
	}
	m.stopped = true
	if m.browser == nil {
		return nil
	}
	err := m.browser.Close()
	m.browser = nil
	if err != nil {
		m.log.Warn("browser: close failed", "error", err)
		return fmt.Errorf("close browser: %w", err)
	}
	m.log.Info("browser: stopped")
	return nil
}
