package browser

import (
	"context"
	"strings"
	"time"
)

type LaunchOptions struct {
	Browser   string
	Channel   string
	Headless  bool
	RemoteURL string
	Stealth   bool
}

type Viewport struct {
	Width  int
	Height int
}

// Engine launches the one browser process shared by every request.
type Engine interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is safe for concurrent NewPage calls. Each page lives in its own
// browsing context and is torn down with it on Page.Close.
type Browser interface {
	NewPage(ctx context.Context, viewport Viewport) (Page, error)
	Close() error
}

type Page interface {
	Goto(ctx context.Context, url string, timeout time.Duration) error
	Resolve(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	ScrollBy(ctx context.Context, dy int) error
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	Close() error
}

// Element is a resolved, visible element. Handles are not cached across
// actions; every action resolves its selector again.
type Element interface {
	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
	ScrollIntoView(ctx context.Context) error
	Hover(ctx context.Context) error
}

type selectorKind int

const (
	selectorCSS selectorKind = iota
	selectorText
	selectorXPath
)

// parseSelector splits the prefix conventions shared by all engines:
// "text=literal", "xpath=expr" or a bare "//expr", anything else is CSS.
func parseSelector(selector string) (selectorKind, string) {
	switch {
	case strings.HasPrefix(selector, "text="):
		return selectorText, strings.TrimPrefix(selector, "text=")
	case strings.HasPrefix(selector, "xpath="):
		return selectorXPath, strings.TrimPrefix(selector, "xpath=")
	case strings.HasPrefix(selector, "//"):
		return selectorXPath, selector
	case strings.HasPrefix(selector, "css="):
		return selectorCSS, strings.TrimPrefix(selector, "css=")
	default:
		return selectorCSS, selector
	}
}
