// Package pdf converts rendered HTML documents to PDF.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// ErrUnavailable means no rendering engine is installed.
var ErrUnavailable = errors.New("pdf renderer unavailable")

type Renderer interface {
	Available() bool
	Render(ctx context.Context, html string) ([]byte, error)
}

// A4 in inches.
const (
	a4Width  = 8.27
	a4Height = 11.69
)

const defaultFont = `<style>body{font-family:'DejaVu Sans',sans-serif}</style>`

// Chrome prints through a headless Chrome started per render.
type Chrome struct {
	Bin     string // empty means look it up
	Timeout time.Duration
	Log     *zap.Logger
}

func NewChrome(bin string, timeout time.Duration, log *zap.Logger) *Chrome {
	return &Chrome{Bin: bin, Timeout: timeout, Log: log.Named("pdf")}
}

func (c *Chrome) bin() (string, bool) {
	if c.Bin != "" {
		return c.Bin, true
	}
	return launcher.LookPath()
}

func (c *Chrome) Available() bool {
	_, ok := c.bin()
	return ok
}

// Render prints html as a portrait A4 page with backgrounds.
func (c *Chrome) Render(ctx context.Context, html string) ([]byte, error) {
	bin, ok := c.bin()
	if !ok {
		return nil, ErrUnavailable
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	l := launcher.New().Bin(bin).Headless(true).NoSandbox(true).Context(ctx)
	defer l.Cleanup()
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	if err := page.SetDocumentContent(withDefaultFont(html)); err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}
	// remote images (logo, badge, QR) must be in before printing
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	w, h := a4Width, a4Height
	stream, err := page.PDF(&proto.PagePrintToPDF{
		PaperWidth:      &w,
		PaperHeight:     &h,
		PrintBackground: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print: %w", err)
	}
	out, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	c.Log.Debug("pdf rendered", zap.Int("bytes", len(out)))
	return out, nil
}

func withDefaultFont(html string) string {
	if i := strings.Index(html, "<head>"); i >= 0 {
		i += len("<head>")
		return html[:i] + defaultFont + html[i:]
	}
	return defaultFont + html
}
