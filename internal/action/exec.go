package action

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickjm/pageshot/internal/browser"
)

type executor func(ctx context.Context, page browser.Page, a Action, timeout time.Duration) error

var executors = map[Kind]executor{
	Click:  execClick,
	Type:   execType,
	Wait:   execWait,
	Scroll: execScroll,
	Hover:  execHover,
}

// Execute runs a single action. Selectors are resolved fresh on every call.
func Execute(ctx context.Context, page browser.Page, a Action, resolveTimeout time.Duration) error {
	exec, ok := executors[a.Kind]
	if !ok {
		return fmt.Errorf("unknown action type: %q", a.Kind)
	}
	return exec(ctx, page, a, resolveTimeout)
}

func execClick(ctx context.Context, page browser.Page, a Action, timeout time.Duration) error {
	el, err := page.Resolve(ctx, a.Selector, timeout)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

func execType(ctx context.Context, page browser.Page, a Action, timeout time.Duration) error {
	el, err := page.Resolve(ctx, a.Selector, timeout)
	if err != nil {
		return err
	}
	return el.Fill(ctx, a.Value)
}

func execWait(ctx context.Context, _ browser.Page, a Action, _ time.Duration) error {
	return sleep(ctx, a.Wait)
}

func execScroll(ctx context.Context, page browser.Page, a Action, timeout time.Duration) error {
	switch {
	case a.Selector != "":
		el, err := page.Resolve(ctx, a.Selector, timeout)
		if err != nil {
			return err
		}
		return el.ScrollIntoView(ctx)
	case a.HasDelta:
		return page.ScrollBy(ctx, a.Delta)
	default:
		return nil
	}
}

func execHover(ctx context.Context, page browser.Page, a Action, timeout time.Duration) error {
	el, err := page.Resolve(ctx, a.Selector, timeout)
	if err != nil {
		return err
	}
	return el.Hover(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
