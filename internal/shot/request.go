package shot

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/patrickjm/pageshot/internal/action"
)

const (
	DefaultWidth  = 1280
	DefaultHeight = 720
	MaxDimension  = 10000
	MIMETypePNG   = "image/png"
)

var ErrURLNotAllowed = errors.New("only localhost URLs are allowed")

type Request struct {
	URL      string        `json:"url"`
	Width    int           `json:"width,omitempty"`
	Height   int           `json:"height,omitempty"`
	FullPage bool          `json:"fullPage,omitempty"`
	Actions  []action.Spec `json:"actions,omitempty"`
}

type Result struct {
	Summary  string
	Image    []byte
	MIMEType string
}

func (r Request) withDefaults() Request {
	if r.Width == 0 {
		r.Width = DefaultWidth
	}
	if r.Height == 0 {
		r.Height = DefaultHeight
	}
	return r
}

// validate checks everything that can be checked without a browser and
// returns the typed action list.
func (r Request) validate() ([]action.Action, error) {
	if err := CheckURL(r.URL); err != nil {
		return nil, err
	}
	if r.Width < 0 || r.Width > MaxDimension {
		return nil, fmt.Errorf("width must be between 1 and %d, got %d", MaxDimension, r.Width)
	}
	if r.Height < 0 || r.Height > MaxDimension {
		return nil, fmt.Errorf("height must be between 1 and %d, got %d", MaxDimension, r.Height)
	}
	return action.ValidateAll(r.Actions)
}

// CheckURL accepts only http(s) URLs whose host is exactly "localhost", on
// any port.
func CheckURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrURLNotAllowed, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrURLNotAllowed, u.Scheme)
	}
	if u.User != nil {
		return fmt.Errorf("%w: credentials in URL", ErrURLNotAllowed)
	}
	if u.Hostname() != "localhost" {
		return fmt.Errorf("%w: host %q", ErrURLNotAllowed, u.Hostname())
	}
	return nil
}

func Summary(rawURL string, width, height int, fullPage bool, actions int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Screenshot captured from %s (%dx%d", rawURL, width, height)
	if fullPage {
		b.WriteString(", full page")
	}
	b.WriteString(")")
	if actions > 0 {
		fmt.Fprintf(&b, " after %d action", actions)
		if actions > 1 {
			b.WriteString("s")
		}
	}
	return b.String()
}
