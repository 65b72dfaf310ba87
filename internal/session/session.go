// Package session scopes one isolated browser page to one request.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickjm/pageshot/internal/browser"
	"github.com/patrickjm/pageshot/internal/metrics"
)

type Session struct {
	page              browser.Page
	navigationTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Open spawns a fresh page sized exactly width x height. The caller owns the
// session and must Close it.
func Open(ctx context.Context, b browser.Browser, width, height int, navigationTimeout time.Duration) (*Session, error) {
	page, err := b.NewPage(ctx, browser.Viewport{Width: width, Height: height})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	metrics.SessionsOpened.Inc()
	metrics.ActiveSessions.Inc()
	return &Session{page: page, navigationTimeout: navigationTimeout}, nil
}

func (s *Session) Page() browser.Page {
	return s.page
}

// Navigate returns once the page has loaded and the network has gone idle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.page.Goto(ctx, url, s.navigationTimeout); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Close releases the page. Only the first call reaches the browser.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.page.Close()
		metrics.SessionsClosed.Inc()
		metrics.ActiveSessions.Dec()
	})
	return s.closeErr
}
