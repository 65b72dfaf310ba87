package browser

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/playwright-community/playwright-go"
)

type PlaywrightEngine struct{}

func (PlaywrightEngine) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, err
	}
	bt, err := browserType(pw, opts.Browser)
	if err != nil {
		pw.Stop()
		return nil, err
	}
	var b playwright.Browser
	if opts.RemoteURL != "" {
		b, err = bt.ConnectOverCDP(opts.RemoteURL)
	} else {
		launchOpts := playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
		}
		if opts.Channel != "" {
			launchOpts.Channel = playwright.String(opts.Channel)
		}
		b, err = bt.Launch(launchOpts)
	}
	if err != nil {
		pw.Stop()
		return nil, err
	}
	return &playwrightBrowser{pw: pw, browser: b}, nil
}

type playwrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

func (b *playwrightBrowser) NewPage(ctx context.Context, viewport Viewport) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bctx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: viewport.Width, Height: viewport.Height},
	})
	if err != nil {
		return nil, err
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, err
	}
	return &playwrightPage{ctx: bctx, page: page}, nil
}

func (b *playwrightBrowser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.pw != nil {
		if stopErr := b.pw.Stop(); err == nil {
			err = stopErr
		}
	}
	return err
}

type playwrightPage struct {
	ctx  playwright.BrowserContext
	page playwright.Page
}

func (p *playwrightPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   millis(timeout),
	})
	return err
}

func (p *playwrightPage) Resolve(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all := p.locator(selector)
	first := all.First()
	waitErr := first.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	})
	if waitErr == nil {
		return &playwrightElement{loc: first, timeout: timeout}, nil
	}
	n, err := all.Count()
	if err != nil {
		return nil, errors.Join(waitErr, err)
	}
	if n > 0 {
		return nil, notVisible(selector)
	}
	kind, text := parseSelector(selector)
	if kind == selectorText {
		if suggestion, err := p.suggestText(text); err == nil && suggestion != "" {
			return nil, &SelectorError{Selector: selector, Err: ErrSelectorNotFound, Hint: suggestion}
		}
	}
	return nil, notFound(selector)
}

func (p *playwrightPage) ScrollBy(ctx context.Context, dy int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Evaluate(`(dy) => window.scrollBy(0, dy)`, dy)
	return err
}

func (p *playwrightPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
	})
}

func (p *playwrightPage) Close() error {
	err := p.page.Close()
	if ctxErr := p.ctx.Close(); err == nil {
		err = ctxErr
	}
	return err
}

func (p *playwrightPage) locator(selector string) playwright.Locator {
	kind, expr := parseSelector(selector)
	if kind == selectorXPath {
		return p.page.Locator("xpath=" + expr)
	}
	return p.page.Locator(selector)
}

func (p *playwrightPage) suggestText(text string) (string, error) {
	value, err := p.page.Evaluate(`() => {
  const candidates = new Set();
  const pushText = (t) => {
    if (!t) return;
    const v = String(t).trim();
    if (v) candidates.add(v);
  };
  document.querySelectorAll("a,button,[role=button],input[type=submit],input[type=button],label,[aria-label]").forEach(el => {
    pushText(el.innerText);
    if (el.getAttribute) pushText(el.getAttribute("aria-label"));
    if (el.value) pushText(el.value);
  });
  return Array.from(candidates).slice(0, 200);
}`)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	var candidates []string
	if err := json.Unmarshal(b, &candidates); err != nil {
		return "", err
	}
	return closestText(text, candidates), nil
}

type playwrightElement struct {
	loc     playwright.Locator
	timeout time.Duration
}

func (e *playwrightElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Click(playwright.LocatorClickOptions{Timeout: millis(e.timeout)})
}

func (e *playwrightElement) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Fill(value, playwright.LocatorFillOptions{Timeout: millis(e.timeout)})
}

func (e *playwrightElement) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: millis(e.timeout)})
}

func (e *playwrightElement) Hover(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Hover(playwright.LocatorHoverOptions{Timeout: millis(e.timeout)})
}

// millis converts a timeout to playwright's float milliseconds. Zero leaves
// the playwright default in place.
func millis(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func browserType(pw *playwright.Playwright, name string) (playwright.BrowserType, error) {
	switch name {
	case "chromium", "":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit":
		return pw.WebKit, nil
	default:
		return nil, errors.New("unknown browser: " + name)
	}
}
