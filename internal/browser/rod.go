package browser

import (
	"context"
	"errors"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// RodEngine drives Chrome over CDP with go-rod. It either launches a local
// Chrome or attaches to RemoteURL.
type RodEngine struct{}

func (RodEngine) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var l *launcher.Launcher
	controlURL := opts.RemoteURL
	if controlURL == "" {
		l = launcher.New().Headless(opts.Headless)
		u, err := l.Launch()
		if err != nil {
			return nil, err
		}
		controlURL = u
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, err
	}
	return &rodBrowser{browser: b, launcher: l, stealth: opts.Stealth}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	stealth  bool
}

func (b *rodBrowser) NewPage(ctx context.Context, viewport Viewport) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	incognito, err := b.browser.Incognito()
	if err != nil {
		return nil, err
	}
	dispose := func() {
		_ = proto.TargetDisposeBrowserContext{BrowserContextID: incognito.BrowserContextID}.Call(b.browser)
	}
	var page *rod.Page
	if b.stealth {
		page, err = stealth.Page(incognito)
	} else {
		page, err = incognito.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		dispose()
		return nil, err
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewport.Width,
		Height:            viewport.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		_ = page.Close()
		dispose()
		return nil, err
	}
	return &rodPage{page: page, dispose: dispose}, nil
}

func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
	return err
}

type rodPage struct {
	page    *rod.Page
	dispose func()
}

// bound returns the page tied to ctx, with an extra deadline when timeout > 0.
func (p *rodPage) bound(ctx context.Context, timeout time.Duration) (*rod.Page, context.Context, context.CancelFunc) {
	c, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		c, cancel = context.WithTimeout(ctx, timeout)
	}
	return p.page.Context(c), c, cancel
}

func (p *rodPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	pg, c, cancel := p.bound(ctx, timeout)
	defer cancel()
	wait := pg.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	if err := pg.Navigate(url); err != nil {
		return err
	}
	if err := pg.WaitLoad(); err != nil {
		return err
	}
	wait()
	return c.Err()
}

func (p *rodPage) Resolve(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	pg, _, cancel := p.bound(ctx, timeout)
	defer cancel()
	kind, expr := parseSelector(selector)
	var el *rod.Element
	var err error
	switch kind {
	case selectorXPath:
		el, err = pg.ElementX(expr)
	case selectorText:
		el, err = pg.ElementByJS(rod.Eval(findByTextJS, expr))
	default:
		el, err = pg.Element(expr)
	}
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, notFound(selector)
		}
		return nil, err
	}
	if err := el.WaitVisible(); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, notVisible(selector)
		}
		return nil, err
	}
	return &rodElement{el: el, timeout: timeout}, nil
}

func (p *rodPage) ScrollBy(ctx context.Context, dy int) error {
	_, err := p.page.Context(ctx).Eval(`(dy) => window.scrollBy(0, dy)`, dy)
	return err
}

func (p *rodPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (p *rodPage) Close() error {
	err := p.page.Close()
	p.dispose()
	return err
}

type rodElement struct {
	el      *rod.Element
	timeout time.Duration
}

func (e *rodElement) bound(ctx context.Context) (*rod.Element, context.CancelFunc) {
	if e.timeout <= 0 {
		return e.el.Context(ctx), func() {}
	}
	c, cancel := context.WithTimeout(ctx, e.timeout)
	return e.el.Context(c), cancel
}

func (e *rodElement) Click(ctx context.Context) error {
	el, cancel := e.bound(ctx)
	defer cancel()
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Fill(ctx context.Context, value string) error {
	el, cancel := e.bound(ctx)
	defer cancel()
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	el, cancel := e.bound(ctx)
	defer cancel()
	return el.ScrollIntoView()
}

func (e *rodElement) Hover(ctx context.Context) error {
	el, cancel := e.bound(ctx)
	defer cancel()
	return el.Hover()
}

// findByTextJS returns the innermost element of the first subtree whose text
// contains the literal, compared case-insensitively.
const findByTextJS = `(text) => {
  const want = String(text).replace(/\s+/g, " ").trim().toLowerCase();
  const matches = (el) => (el.innerText || el.textContent || "").replace(/\s+/g, " ").toLowerCase().includes(want);
  if (!document.body) return null;
  const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_ELEMENT);
  let best = null;
  for (let el = walker.currentNode; el; el = walker.nextNode()) {
    if (!matches(el)) continue;
    if (best === null || best.contains(el)) {
      best = el;
      continue;
    }
    break;
  }
  return best;
}`
