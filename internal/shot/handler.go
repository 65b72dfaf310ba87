// Package shot implements the screenshot operation: validate, open a page,
// navigate, run the scripted actions, capture, and always close the page.
package shot

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/patrickjm/pageshot/internal/action"
	"github.com/patrickjm/pageshot/internal/browser"
	"github.com/patrickjm/pageshot/internal/metrics"
	"github.com/patrickjm/pageshot/internal/session"
)

// BrowserSource hands out the shared browser. browser.Manager implements it.
type BrowserSource interface {
	Browser() (browser.Browser, error)
}

type Options struct {
	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
	// MaxSessions caps concurrently open pages; 0 means no cap.
	MaxSessions int64
	// Settle runs after every successful action. Nil means the fixed
	// action.SettleDelay.
	Settle func(context.Context) error
	Logger *slog.Logger
}

type Handler struct {
	source BrowserSource
	opts   Options
	sem    *semaphore.Weighted
	log    *slog.Logger
}

func NewHandler(source BrowserSource, opts Options) *Handler {
	if opts.Settle == nil {
		opts.Settle = action.Settle(action.SettleDelay)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	h := &Handler{source: source, opts: opts, log: opts.Logger}
	if opts.MaxSessions > 0 {
		h.sem = semaphore.NewWeighted(opts.MaxSessions)
	}
	return h
}

func (h *Handler) Handle(ctx context.Context, req Request) (Result, error) {
	log := h.log.With("request_id", uuid.NewString(), "url", req.URL)
	start := time.Now()
	res, err := h.handle(ctx, log, req.withDefaults())
	metrics.RequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		phase := PhaseOf(err)
		metrics.Requests.WithLabelValues(string(phase)).Inc()
		log.Warn("shot: failed", "phase", phase, "error", err, "elapsed", time.Since(start))
		return Result{}, err
	}
	metrics.Requests.WithLabelValues("ok").Inc()
	log.Info("shot: captured", "bytes", len(res.Image), "actions", len(req.Actions), "elapsed", time.Since(start))
	return res, nil
}

func (h *Handler) handle(ctx context.Context, log *slog.Logger, req Request) (Result, error) {
	actions, err := req.validate()
	if err != nil {
		return Result{}, &Error{Phase: PhaseValidate, Err: err}
	}
	b, err := h.source.Browser()
	if err != nil {
		return Result{}, &Error{Phase: PhaseBrowser, Err: err}
	}
	if h.sem != nil {
		if err := h.sem.Acquire(ctx, 1); err != nil {
			return Result{}, &Error{Phase: PhaseBrowser, Err: err}
		}
		defer h.sem.Release(1)
	}

	sess, err := session.Open(ctx, b, req.Width, req.Height, h.opts.NavigationTimeout)
	if err != nil {
		return Result{}, &Error{Phase: PhaseSession, Err: err}
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("shot: close page", "error", err)
		}
	}()

	if err := sess.Navigate(ctx, req.URL); err != nil {
		return Result{}, &Error{Phase: PhaseNavigate, Err: err}
	}

	seq := &action.Sequencer{
		ResolveTimeout: h.opts.ActionTimeout,
		AfterStep:      h.opts.Settle,
		Observe: func(t action.Transition) {
			log.Debug("shot: action", "from", t.From, "to", t.To, "index", t.Index, "kind", t.Kind)
		},
	}
	run := seq.Run(ctx, sess.Page(), actions)
	if run.State == action.Failed {
		return Result{}, &Error{Phase: PhaseAction, Err: run.Err}
	}

	img, err := sess.Page().Screenshot(ctx, req.FullPage)
	if err == nil && len(img) == 0 {
		err = errEmptyImage
	}
	if err != nil {
		return Result{}, &Error{Phase: PhaseCapture, Err: &CaptureError{Err: err}}
	}
	return Result{
		Summary:  Summary(req.URL, req.Width, req.Height, req.FullPage, len(actions)),
		Image:    img,
		MIMEType: MIMETypePNG,
	}, nil
}
