package interfaces

import (
	"context"
	"time"
)

// Box is an element's bounding box in page coordinates
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Element is the narrow handle the engine needs for one matched DOM node.
// Strategies and the step executor depend only on this capability surface,
// never on a concrete automation library.
type Element interface {
	// WaitVisible blocks until the element is visible or the timeout elapses
	WaitVisible(ctx context.Context, timeout time.Duration) error

	// IsVisible reports current visibility without waiting
	IsVisible(ctx context.Context) (bool, error)

	// BoundingBox returns the element's box in page coordinates
	BoundingBox(ctx context.Context) (*Box, error)

	// Click performs a plain element click
	Click(ctx context.Context) error

	// Focus gives the element keyboard focus
	Focus(ctx context.Context) error

	// Clear empties an input's current value
	Clear(ctx context.Context) error

	// TextContent returns the element's text
	TextContent(ctx context.Context) (string, error)

	// SetInputFiles attaches a local file to a file input
	SetInputFiles(ctx context.Context, paths []string) error

	// SelectOption selects a <select> option by value, returning whether an
	// option actually matched
	SelectOption(ctx context.Context, value string) (bool, error)

	// Attribute returns the named attribute value and whether it exists
	Attribute(ctx context.Context, name string) (string, bool, error)
}

// PageDriver is the page-automation capability surface the engine depends on.
// One driver instance serves exactly one workflow execution; no concurrent
// actions run against the same instance.
type PageDriver interface {
	// Navigate loads a URL and waits for the page to settle
	Navigate(ctx context.Context, url string) error

	// Locator returns a handle for the first element matching the selector.
	// The element may not exist yet; existence is checked by WaitVisible.
	Locator(selector string) Element

	// MouseMove moves the pointer to page coordinates
	MouseMove(ctx context.Context, x, y float64) error

	// MouseClick clicks at page coordinates
	MouseClick(ctx context.Context, x, y float64) error

	// TypeText types into the focused element, one rune per keystroke
	TypeText(ctx context.Context, text string) error

	// Screenshot captures the full page as PNG bytes
	Screenshot(ctx context.Context) ([]byte, error)

	// ScreenshotRegion captures a clipped region as PNG bytes
	ScreenshotRegion(ctx context.Context, box Box) ([]byte, error)

	// CurrentURL returns the page's current location
	CurrentURL(ctx context.Context) (string, error)

	// PageText returns the visible text of the document body
	PageText(ctx context.Context) (string, error)

	// VisibleInputs lists selectors for the currently visible form controls,
	// used by the generic field-by-field fill fallback
	VisibleInputs(ctx context.Context) ([]string, error)

	// Close releases the underlying page
	Close() error
}

// DriverFactory creates one fresh page driver per execution
type DriverFactory interface {
	NewPage(ctx context.Context) (PageDriver, error)
	Close() error
}
