package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

// fakeDriver is a scriptable in-memory PageDriver for engine tests. Element
// visibility, text and click behavior are driven by maps keyed on selector.
type fakeDriver struct {
	mu            sync.Mutex
	visible       map[string]bool
	texts         map[string]string
	pageText      string
	url           string
	navigated     []string
	typed         strings.Builder
	clicked       []string
	clickFailures map[string]int  // selector -> remaining failures before success
	clickHides    map[string]bool // clicking the selector makes it invisible
	uploads       map[string][]string
	options       map[string]string // selector -> value that matches
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		visible:       make(map[string]bool),
		texts:         make(map[string]string),
		clickFailures: make(map[string]int),
		clickHides:    make(map[string]bool),
		uploads:       make(map[string][]string),
		options:       make(map[string]string),
	}
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigated = append(d.navigated, url)
	d.url = url
	return nil
}

func (d *fakeDriver) Locator(selector string) interfaces.Element {
	return &fakeElement{d: d, selector: selector}
}

func (d *fakeDriver) MouseMove(ctx context.Context, x, y float64) error  { return nil }
func (d *fakeDriver) MouseClick(ctx context.Context, x, y float64) error { return nil }

func (d *fakeDriver) TypeText(ctx context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.typed.WriteString(text)
	return nil
}

func (d *fakeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte{0x89, 0x50, 0x4e, 0x47}, nil
}

func (d *fakeDriver) ScreenshotRegion(ctx context.Context, box interfaces.Box) ([]byte, error) {
	return []byte{0x89, 0x50, 0x4e, 0x47}, nil
}

func (d *fakeDriver) CurrentURL(ctx context.Context) (string, error) { return d.url, nil }
func (d *fakeDriver) PageText(ctx context.Context) (string, error)   { return d.pageText, nil }

func (d *fakeDriver) VisibleInputs(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for selector, visible := range d.visible {
		if visible {
			out = append(out, selector)
		}
	}
	return out, nil
}

func (d *fakeDriver) Close() error { return nil }

type fakeElement struct {
	d        *fakeDriver
	selector string
}

func (e *fakeElement) WaitVisible(ctx context.Context, timeout time.Duration) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.d.visible[e.selector] {
		return nil
	}
	return fmt.Errorf("selector %s not visible", e.selector)
}

func (e *fakeElement) IsVisible(ctx context.Context) (bool, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return e.d.visible[e.selector], nil
}

func (e *fakeElement) BoundingBox(ctx context.Context) (*interfaces.Box, error) {
	return &interfaces.Box{X: 10, Y: 10, Width: 100, Height: 40}, nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.d.clickFailures[e.selector] > 0 {
		e.d.clickFailures[e.selector]--
		return fmt.Errorf("click on %s failed", e.selector)
	}
	e.d.clicked = append(e.d.clicked, e.selector)
	if e.d.clickHides[e.selector] {
		e.d.visible[e.selector] = false
	}
	return nil
}

func (e *fakeElement) Focus(ctx context.Context) error { return nil }
func (e *fakeElement) Clear(ctx context.Context) error { return nil }

func (e *fakeElement) TextContent(ctx context.Context) (string, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return e.d.texts[e.selector], nil
}

func (e *fakeElement) SetInputFiles(ctx context.Context, paths []string) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	e.d.uploads[e.selector] = paths
	return nil
}

func (e *fakeElement) SelectOption(ctx context.Context, value string) (bool, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return e.d.options[e.selector] == value, nil
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	return "", false, nil
}

// fakeVision returns a scripted analysis verdict
type fakeVision struct {
	result *interfaces.VisionResult
	err    error
	calls  int
}

func (v *fakeVision) AnalyzeImage(ctx context.Context, req interfaces.VisionRequest) (*interfaces.VisionResult, error) {
	v.calls++
	return v.result, v.err
}

func (v *fakeVision) ProviderName() string { return "fake" }

func testDefinition() *models.StrategyDefinition {
	return &models.StrategyDefinition{
		ID:            "acme",
		Name:          "Acme Careers",
		CompanyDomain: "acme.com",
		Selectors:     &models.SelectorBundle{},
		Workflow: &models.AutomationWorkflow{
			Application: []models.WorkflowStep{
				{ID: "noop", Name: "No-op wait", Action: models.ActionWait, Metadata: models.StepMetadata{Duration: time.Millisecond}},
			},
		},
	}
}

func testContext(driver interfaces.PageDriver, def *models.StrategyDefinition) *interfaces.StrategyContext {
	return &interfaces.StrategyContext{
		Job:         &models.JobPosting{ID: "job-1", Title: "Engineer", Company: "Acme", ApplyURL: "https://acme.com/jobs/1"},
		Driver:      driver,
		UserProfile: &models.UserProfile{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", ResumePath: "/tmp/resume.pdf"},
		Definition:  def,
		SessionData: make(map[string]string),
	}
}

func testExecutor(dir string) *StepExecutor {
	return NewStepExecutor(common.GetLogger(), 10*time.Millisecond, dir)
}
