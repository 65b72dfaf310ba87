package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/patrickjm/pageshot/internal/browser"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PAGESHOT_ENGINE", "")
	t.Setenv("PAGESHOT_BROWSER", "")
	t.Setenv("PAGESHOT_LOG_LEVEL", "error")
}

func run(t *testing.T, engine browser.Engine, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := App{Out: &out, Err: &errOut, Engine: engine}.Execute(args)
	return code, out.String(), errOut.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, nil, "-V")
	if code != exitSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if strings.TrimSpace(out) != Version {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func TestShotWritesFile(t *testing.T) {
	isolateConfig(t)
	engine := &browser.FakeEngine{}
	path := filepath.Join(t.TempDir(), "out.png")

	code, out, errOut := run(t, engine, "shot", "http://localhost:3000",
		"-o", path, "--width", "800", "--height", "600",
		"-a", `{"type":"click","selector":"#go"}`)
	if code != exitSuccess {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	if got := strings.TrimSpace(out); got != "Screenshot captured from http://localhost:3000 (800x600) after 1 action" {
		t.Fatalf("unexpected summary: %q", got)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("output is not a png")
	}
	if engine.Launches != 1 || engine.Browser.Closed != 1 {
		t.Fatalf("expected one launch and one close, got %d/%d", engine.Launches, engine.Browser.Closed)
	}
	if engine.Browser.ClosedPages() != 1 {
		t.Fatalf("page was not closed")
	}
}

func TestShotActionsFile(t *testing.T) {
	isolateConfig(t)
	engine := &browser.FakeEngine{}
	dir := t.TempDir()
	actions := filepath.Join(dir, "actions.json")
	if err := os.WriteFile(actions, []byte(`[{"type":"type","selector":"#q","value":"go"},{"type":"scroll","value":"200"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := run(t, engine, "shot", "http://localhost:3000", "-q",
		"-o", filepath.Join(dir, "out.png"), "--actions-file", actions)
	if code != exitSuccess {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	if out != "" {
		t.Fatalf("quiet output should be empty, got %q", out)
	}
	page := engine.Browser.Pages[0]
	if len(page.Scrolls) != 1 || page.Scrolls[0] != 200 {
		t.Fatalf("unexpected scrolls: %v", page.Scrolls)
	}
}

func TestShotStdout(t *testing.T) {
	isolateConfig(t)
	code, out, errOut := run(t, &browser.FakeEngine{}, "shot", "http://localhost:3000", "-o", "-")
	if code != exitSuccess {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	if !strings.HasPrefix(out, "\x89PNG") {
		t.Fatalf("expected png on stdout")
	}
}

func TestShotRejectsRemoteURL(t *testing.T) {
	isolateConfig(t)
	engine := &browser.FakeEngine{}
	code, _, errOut := run(t, engine, "shot", "https://example.com", "-o", filepath.Join(t.TempDir(), "x.png"))
	if code != exitFailure {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errOut, "only localhost URLs are allowed") {
		t.Fatalf("unexpected error output: %q", errOut)
	}
	if engine.Browser.PageCount() != 0 {
		t.Fatalf("no page should be opened for a rejected url")
	}
}

func TestShotBadActionJSON(t *testing.T) {
	isolateConfig(t)
	code, _, _ := run(t, &browser.FakeEngine{}, "shot", "http://localhost:3000", "-a", "{click")
	if code != exitUsage {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestHeadlessHeadedConflict(t *testing.T) {
	isolateConfig(t)
	code, _, errOut := run(t, &browser.FakeEngine{}, "--headless", "--headed", "shot", "http://localhost:3000")
	if code != exitUsage {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if !strings.Contains(errOut, "cannot set both") {
		t.Fatalf("unexpected error output: %q", errOut)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, _ := run(t, nil, "frobnicate")
	if code != exitUsage {
		t.Fatalf("expected exit 2, got %d", code)
	}
}
