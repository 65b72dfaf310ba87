package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/errgroup"

	"github.com/patrickjm/pageshot/internal/action"
	"github.com/patrickjm/pageshot/internal/browser"
	"github.com/patrickjm/pageshot/internal/config"
	"github.com/patrickjm/pageshot/internal/mcpserver"
	"github.com/patrickjm/pageshot/internal/shot"
)

type GlobalFlags struct {
	ConfigPath string
	Engine     string
	Browser    string
	Channel    string
	Headless   bool
	Headed     bool
	LogLevel   string
	HTTPAddr   string
	JSON       bool
	Quiet      bool
}

type shotFlags struct {
	Output      string
	Width       int
	Height      int
	FullPage    bool
	Actions     []string
	ActionsFile string
}

type App struct {
	Out io.Writer
	Err io.Writer
	// Engine replaces the engine named in the config. Tests set a fake.
	Engine browser.Engine
}

const (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

func (a App) prepare(flags GlobalFlags) (config.Config, int) {
	overrides, err := overridesFromFlags(flags)
	if err != nil {
		fmt.Fprintln(a.Err, err)
		return config.Config{}, exitUsage
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintln(a.Err, err)
		return config.Config{}, exitFailure
	}
	return cfg, exitSuccess
}

func (a App) logger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(a.Err, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

func (a App) engine(cfg config.Config) browser.Engine {
	if a.Engine != nil {
		return a.Engine
	}
	if cfg.Engine == "rod" {
		return browser.RodEngine{}
	}
	return browser.PlaywrightEngine{}
}

// startBrowser launches the shared browser and builds the handler around it.
// The caller must Stop the manager.
func (a App) startBrowser(ctx context.Context, cfg config.Config, log *slog.Logger) (*browser.Manager, *shot.Handler, error) {
	mgr := browser.NewManager(a.engine(cfg), browser.LaunchOptions{
		Browser:   cfg.Browser,
		Channel:   cfg.Channel,
		Headless:  cfg.Headless,
		RemoteURL: cfg.RemoteURL,
		Stealth:   cfg.Stealth,
	}, log)
	if err := mgr.Start(ctx); err != nil {
		return nil, nil, err
	}
	handler := shot.NewHandler(mgr, shot.Options{
		NavigationTimeout: cfg.NavigationTimeout,
		ActionTimeout:     cfg.ActionTimeout,
		MaxSessions:       cfg.MaxSessions,
		Logger:            log,
	})
	return mgr, handler, nil
}

func (a App) runServe(ctx context.Context, cfg config.Config) int {
	log := a.logger(cfg)
	mgr, handler, err := a.startBrowser(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(a.Err, err)
		return exitFailure
	}
	defer func() {
		if err := mgr.Stop(); err != nil {
			fmt.Fprintln(a.Err, err)
		}
	}()

	srv, err := mcpserver.NewServer(handler, Version)
	if err != nil {
		fmt.Fprintln(a.Err, err)
		return exitFailure
	}

	if cfg.HTTPAddr == "" {
		log.Info("serve: listening on stdio", "version", Version, "engine", cfg.Engine)
		if err := mcpserver.RunStdio(ctx, srv); err != nil && ctx.Err() == nil {
			fmt.Fprintln(a.Err, err)
			return exitFailure
		}
		log.Info("serve: shutting down")
		return exitSuccess
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mcpserver.HTTPHandler(srv, mgr.Ready),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("serve: listening on http", "addr", cfg.HTTPAddr, "version", Version, "engine", cfg.Engine)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		fmt.Fprintln(a.Err, err)
		return exitFailure
	}
	log.Info("serve: shutting down")
	return exitSuccess
}

func (a App) runShot(ctx context.Context, cfg config.Config, flags GlobalFlags, url string, sf shotFlags) int {
	req, err := shotRequest(url, sf)
	if err != nil {
		fmt.Fprintln(a.Err, err)
		return exitUsage
	}
	log := a.logger(cfg)
	mgr, handler, err := a.startBrowser(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(a.Err, err)
		return exitFailure
	}
	defer func() {
		if err := mgr.Stop(); err != nil {
			fmt.Fprintln(a.Err, err)
		}
	}()

	res, err := handler.Handle(ctx, req)
	if err != nil {
		fmt.Fprintln(a.Err, err)
		return exitFailure
	}
	if sf.Output == "-" {
		if _, err := a.Out.Write(res.Image); err != nil {
			fmt.Fprintln(a.Err, err)
			return exitFailure
		}
		return exitSuccess
	}
	if err := os.WriteFile(sf.Output, res.Image, 0o644); err != nil {
		fmt.Fprintln(a.Err, err)
		return exitFailure
	}
	if flags.Quiet {
		return exitSuccess
	}
	if flags.JSON {
		b, _ := json.MarshalIndent(map[string]any{
			"summary": res.Summary,
			"path":    sf.Output,
			"bytes":   len(res.Image),
		}, "", "  ")
		fmt.Fprintln(a.Out, string(b))
		return exitSuccess
	}
	fmt.Fprintln(a.Out, res.Summary)
	return exitSuccess
}

func shotRequest(url string, sf shotFlags) (shot.Request, error) {
	req := shot.Request{URL: url, Width: sf.Width, Height: sf.Height, FullPage: sf.FullPage}
	if sf.ActionsFile != "" {
		b, err := os.ReadFile(sf.ActionsFile)
		if err != nil {
			return shot.Request{}, err
		}
		var specs []action.Spec
		if err := json.Unmarshal(b, &specs); err != nil {
			return shot.Request{}, fmt.Errorf("actions file %s: %w", sf.ActionsFile, err)
		}
		req.Actions = append(req.Actions, specs...)
	}
	for _, raw := range sf.Actions {
		var spec action.Spec
		if err := json.Unmarshal([]byte(raw), &spec); err != nil {
			return shot.Request{}, fmt.Errorf("invalid --action %q: %w", raw, err)
		}
		req.Actions = append(req.Actions, spec)
	}
	return req, nil
}

func (a App) runInstall(flags GlobalFlags) int {
	browsers := []string{}
	if flags.Browser != "" {
		browsers = append(browsers, flags.Browser)
	}
	opts := &playwright.RunOptions{}
	if len(browsers) > 0 {
		opts.Browsers = browsers
	}
	if err := playwright.Install(opts); err != nil {
		fmt.Fprintln(a.Err, err)
		return exitFailure
	}
	if !flags.Quiet {
		if len(browsers) == 0 {
			fmt.Fprintln(a.Out, "Playwright installed")
		} else {
			fmt.Fprintf(a.Out, "Playwright installed: %s\n", strings.Join(browsers, ", "))
		}
	}
	return exitSuccess
}

func (a App) runDoctor(cfg config.Config, flags GlobalFlags) int {
	type result struct {
		ConfigFile   string `json:"config_file"`
		Engine       string `json:"engine"`
		Browser      string `json:"browser"`
		Headless     bool   `json:"headless"`
		PlaywrightOK bool   `json:"playwright_ok"`
		BrowsersPath string `json:"browsers_path"`
	}
	res := result{
		ConfigFile:   cfg.Source,
		Engine:       cfg.Engine,
		Browser:      cfg.Browser,
		Headless:     cfg.Headless,
		BrowsersPath: os.Getenv("PLAYWRIGHT_BROWSERS_PATH"),
	}
	if pw, err := playwright.Run(); err == nil {
		res.PlaywrightOK = true
		_ = pw.Stop()
	}
	if flags.JSON {
		b, _ := json.MarshalIndent(res, "", "  ")
		fmt.Fprintln(a.Out, string(b))
		return exitSuccess
	}
	fmt.Fprintf(a.Out, "config_file=%s\n", res.ConfigFile)
	fmt.Fprintf(a.Out, "engine=%s browser=%s headless=%t\n", res.Engine, res.Browser, res.Headless)
	fmt.Fprintf(a.Out, "playwright_ok=%t\n", res.PlaywrightOK)
	if res.BrowsersPath != "" {
		fmt.Fprintf(a.Out, "browsers_path=%s\n", res.BrowsersPath)
	}
	return exitSuccess
}

func overridesFromFlags(flags GlobalFlags) (config.Overrides, error) {
	overrides := config.Overrides{
		ConfigPath: flags.ConfigPath,
		Engine:     flags.Engine,
		Browser:    flags.Browser,
		Channel:    flags.Channel,
		HTTPAddr:   flags.HTTPAddr,
		LogLevel:   flags.LogLevel,
	}
	if flags.Headless && flags.Headed {
		return overrides, errors.New("cannot set both --headless and --headed")
	}
	if flags.Headless {
		headless := true
		overrides.Headless = &headless
	}
	if flags.Headed {
		headless := false
		overrides.Headless = &headless
	}
	return overrides, nil
}
