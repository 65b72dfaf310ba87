package browser

import (
	"context"
	"sync"
	"time"
)

// FakeEngine records launches and hands out a FakeBrowser. Tests configure
// the browser before or after Launch.
type FakeEngine struct {
	Browser   *FakeBrowser
	LaunchErr error

	mu       sync.Mutex
	Launches int
	Options  LaunchOptions
}

func (f *FakeEngine) Launch(_ context.Context, opts LaunchOptions) (Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Launches++
	f.Options = opts
	if f.LaunchErr != nil {
		return nil, f.LaunchErr
	}
	if f.Browser == nil {
		f.Browser = &FakeBrowser{}
	}
	return f.Browser, nil
}

type FakeBrowser struct {
	// Missing selectors resolve to zero elements, Hidden ones to an
	// invisible element.
	Missing    map[string]bool
	Hidden     map[string]bool
	ActionErr  map[string]error
	GotoErr    error
	ShotErr    error
	NewPageErr error
	Image      []byte

	mu     sync.Mutex
	Pages  []*FakePage
	Closed int
}

func (b *FakeBrowser) NewPage(_ context.Context, viewport Viewport) (Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.NewPageErr != nil {
		return nil, b.NewPageErr
	}
	page := &FakePage{browser: b, Viewport: viewport}
	b.Pages = append(b.Pages, page)
	return page, nil
}

func (b *FakeBrowser) Close() error {
	b.mu.Lock()
	b.Closed++
	b.mu.Unlock()
	return nil
}

func (b *FakeBrowser) PageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Pages)
}

func (b *FakeBrowser) ClosedPages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.Pages {
		if p.CloseCount() > 0 {
			n++
		}
	}
	return n
}

// FakePage logs every call in Calls as "verb selector[=value]".
type FakePage struct {
	browser  *FakeBrowser
	Viewport Viewport

	mu       sync.Mutex
	URL      string
	Calls    []string
	Scrolls  []int
	Shots    []bool
	Closes   int
	Timeouts []time.Duration
}

func (p *FakePage) record(call string) {
	p.mu.Lock()
	p.Calls = append(p.Calls, call)
	p.mu.Unlock()
}

func (p *FakePage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.URL = url
	p.Timeouts = append(p.Timeouts, timeout)
	p.mu.Unlock()
	p.record("goto " + url)
	return p.browser.GotoErr
}

func (p *FakePage) Resolve(ctx context.Context, selector string, _ time.Duration) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.record("resolve " + selector)
	if p.browser.Missing[selector] {
		return nil, notFound(selector)
	}
	if p.browser.Hidden[selector] {
		return nil, notVisible(selector)
	}
	return &fakeElement{page: p, selector: selector}, nil
}

func (p *FakePage) ScrollBy(ctx context.Context, dy int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.Scrolls = append(p.Scrolls, dy)
	p.mu.Unlock()
	return nil
}

func (p *FakePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.Shots = append(p.Shots, fullPage)
	p.mu.Unlock()
	if p.browser.ShotErr != nil {
		return nil, p.browser.ShotErr
	}
	if p.browser.Image != nil {
		return p.browser.Image, nil
	}
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	p.Closes++
	p.mu.Unlock()
	return nil
}

func (p *FakePage) CloseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Closes
}

func (p *FakePage) ShotCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Shots)
}

func (p *FakePage) CallLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Calls...)
}

type fakeElement struct {
	page     *FakePage
	selector string
}

func (e *fakeElement) do(ctx context.Context, call string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.record(call)
	return e.page.browser.ActionErr[e.selector]
}

func (e *fakeElement) Click(ctx context.Context) error {
	return e.do(ctx, "click "+e.selector)
}

func (e *fakeElement) Fill(ctx context.Context, value string) error {
	return e.do(ctx, "fill "+e.selector+"="+value)
}

func (e *fakeElement) ScrollIntoView(ctx context.Context) error {
	return e.do(ctx, "scroll "+e.selector)
}

func (e *fakeElement) Hover(ctx context.Context) error {
	return e.do(ctx, "hover "+e.selector)
}
