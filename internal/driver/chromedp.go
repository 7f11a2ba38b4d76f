package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/interfaces"
)

// Page implements interfaces.PageDriver on a dedicated chromedp tab context.
// One Page serves exactly one workflow execution.
type Page struct {
	ctx        context.Context
	cancel     context.CancelFunc
	logger     arbor.ILogger
	navTimeout time.Duration
}

// Navigate loads a URL and waits for the document body to be ready
func (p *Page) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(p.ctx, p.navTimeout)
	defer cancel()
	return p.run(ctx, navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Locator returns an element handle for the first match of selector
func (p *Page) Locator(selector string) interfaces.Element {
	return &element{page: p, selector: selector}
}

// MouseMove dispatches a raw pointer move to page coordinates
func (p *Page) MouseMove(ctx context.Context, x, y float64) error {
	return p.run(ctx, p.ctx, chromedp.ActionFunc(func(c context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(c)
	}))
}

// MouseClick clicks at page coordinates
func (p *Page) MouseClick(ctx context.Context, x, y float64) error {
	return p.run(ctx, p.ctx, chromedp.MouseClickXY(x, y))
}

// TypeText sends key events for the given text to the focused element
func (p *Page) TypeText(ctx context.Context, text string) error {
	return p.run(ctx, p.ctx, chromedp.KeyEvent(text))
}

// Screenshot captures the full page as PNG
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, p.ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, err
	}
	return buf, nil
}

// ScreenshotRegion captures a clipped viewport region as PNG
func (p *Page) ScreenshotRegion(ctx context.Context, box interfaces.Box) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, p.ctx, chromedp.ActionFunc(func(c context.Context) error {
		data, err := page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(&page.Viewport{
				X:      box.X,
				Y:      box.Y,
				Width:  box.Width,
				Height: box.Height,
				Scale:  1,
			}).Do(c)
		if err != nil {
			return err
		}
		buf = data
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// CurrentURL returns the page's current location
func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, p.ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// PageText returns the visible text of the document body
func (p *Page) PageText(ctx context.Context) (string, error) {
	var text string
	if err := p.run(ctx, p.ctx, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

// VisibleInputs returns stable selectors for the currently visible form
// controls, preferring id then name then a positional fallback.
func (p *Page) VisibleInputs(ctx context.Context) ([]string, error) {
	const script = `(() => {
		const out = [];
		const controls = document.querySelectorAll('input, select, textarea');
		controls.forEach((el, i) => {
			const style = window.getComputedStyle(el);
			if (style.display === 'none' || style.visibility === 'hidden' || el.offsetParent === null) return;
			if (el.type === 'hidden' || el.type === 'submit' || el.type === 'button') return;
			if (el.id) { out.push('#' + CSS.escape(el.id)); return; }
			if (el.name) { out.push(el.tagName.toLowerCase() + '[name="' + el.name + '"]'); return; }
			out.push(el.tagName.toLowerCase() + ':nth-of-type(' + (i + 1) + ')');
		});
		return out;
	})()`
	var selectors []string
	if err := p.run(ctx, p.ctx, chromedp.Evaluate(script, &selectors)); err != nil {
		return nil, err
	}
	return selectors, nil
}

// Close releases the tab context
func (p *Page) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

// run executes chromedp actions on the page context while honoring the
// caller's cancellation.
func (p *Page) run(callerCtx, pageCtx context.Context, actions ...chromedp.Action) error {
	if err := callerCtx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(pageCtx, actions...)
	}()
	select {
	case <-callerCtx.Done():
		return callerCtx.Err()
	case err := <-done:
		return err
	}
}

// element implements interfaces.Element for one CSS selector
type element struct {
	page     *Page
	selector string
}

func (e *element) WaitVisible(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(e.page.ctx, timeout)
	defer cancel()
	if err := e.page.run(ctx, waitCtx, chromedp.WaitVisible(e.selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("selector %s not visible within %s: %w", e.selector, timeout, err)
	}
	return nil
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden' && el.offsetParent !== null;
	})()`, e.selector)
	var visible bool
	if err := e.page.run(ctx, e.page.ctx, chromedp.Evaluate(script, &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

func (e *element) BoundingBox(ctx context.Context) (*interfaces.Box, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return null;
		const r = el.getBoundingClientRect();
		return {x: r.x, y: r.y, width: r.width, height: r.height};
	})()`, e.selector)
	var box *interfaces.Box
	if err := e.page.run(ctx, e.page.ctx, chromedp.Evaluate(script, &box)); err != nil {
		return nil, err
	}
	if box == nil {
		return nil, fmt.Errorf("selector %s: element not found", e.selector)
	}
	return box, nil
}

func (e *element) Click(ctx context.Context) error {
	return e.page.run(ctx, e.page.ctx, chromedp.Click(e.selector, chromedp.ByQuery))
}

func (e *element) Focus(ctx context.Context) error {
	return e.page.run(ctx, e.page.ctx, chromedp.Focus(e.selector, chromedp.ByQuery))
}

func (e *element) Clear(ctx context.Context) error {
	return e.page.run(ctx, e.page.ctx, chromedp.SetValue(e.selector, "", chromedp.ByQuery))
}

func (e *element) TextContent(ctx context.Context) (string, error) {
	var text string
	if err := e.page.run(ctx, e.page.ctx, chromedp.Text(e.selector, &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

func (e *element) SetInputFiles(ctx context.Context, paths []string) error {
	return e.page.run(ctx, e.page.ctx, chromedp.SetUploadFiles(e.selector, paths, chromedp.ByQuery))
}

// SelectOption selects by exact value first, then falls back to a
// case-insensitive match on option text.
func (e *element) SelectOption(ctx context.Context, value string) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el || el.tagName !== 'SELECT') return false;
		for (const opt of el.options) {
			if (opt.value === %q) {
				el.value = opt.value;
				el.dispatchEvent(new Event('change', {bubbles: true}));
				return true;
			}
		}
		const want = %q.toLowerCase();
		for (const opt of el.options) {
			if (opt.text.toLowerCase().includes(want)) {
				el.value = opt.value;
				el.dispatchEvent(new Event('change', {bubbles: true}));
				return true;
			}
		}
		return false;
	})()`, e.selector, value, value)
	var matched bool
	if err := e.page.run(ctx, e.page.ctx, chromedp.Evaluate(script, &matched)); err != nil {
		return false, err
	}
	return matched, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var value string
	var ok bool
	if err := e.page.run(ctx, e.page.ctx, chromedp.AttributeValue(e.selector, name, &value, &ok, chromedp.ByQuery)); err != nil {
		return "", false, err
	}
	return value, ok, nil
}
