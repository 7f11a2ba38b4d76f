package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/engine"
	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
	"github.com/ternarybob/applyr/internal/strategies"
)

// recordingEvents is a synchronous EventService capturing published types
type recordingEvents struct {
	mu    sync.Mutex
	types []interfaces.EventType
}

func (e *recordingEvents) Subscribe(interfaces.EventType, interfaces.EventHandler) error { return nil }

func (e *recordingEvents) Unsubscribe(interfaces.EventType, interfaces.EventHandler) error {
	return nil
}
func (e *recordingEvents) Publish(ctx context.Context, event interfaces.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = append(e.types, event.Type)
	return nil
}
func (e *recordingEvents) PublishSync(ctx context.Context, event interfaces.Event) error {
	return e.Publish(ctx, event)
}
func (e *recordingEvents) Close() error { return nil }

func (e *recordingEvents) has(t interfaces.EventType) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, got := range e.types {
		if got == t {
			return true
		}
	}
	return false
}

// stubDriver is a minimal scriptable PageDriver for registry-level tests
type stubDriver struct {
	mu            sync.Mutex
	visible       map[string]bool
	clickFailures map[string]int
	pageText      string
	url           string
}

func newStubDriver() *stubDriver {
	return &stubDriver{visible: make(map[string]bool), clickFailures: make(map[string]int)}
}

func (d *stubDriver) Navigate(ctx context.Context, url string) error {
	d.url = url
	return nil
}
func (d *stubDriver) Locator(selector string) interfaces.Element {
	return &stubElement{d: d, selector: selector}
}
func (d *stubDriver) MouseMove(ctx context.Context, x, y float64) error  { return nil }
func (d *stubDriver) MouseClick(ctx context.Context, x, y float64) error { return nil }
func (d *stubDriver) TypeText(ctx context.Context, text string) error    { return nil }
func (d *stubDriver) Screenshot(ctx context.Context) ([]byte, error)     { return []byte{1}, nil }

func (d *stubDriver) ScreenshotRegion(ctx context.Context, box interfaces.Box) ([]byte, error) {
	return []byte{1}, nil
}

func (d *stubDriver) CurrentURL(ctx context.Context) (string, error) { return d.url, nil }
func (d *stubDriver) PageText(ctx context.Context) (string, error)   { return d.pageText, nil }

func (d *stubDriver) VisibleInputs(ctx context.Context) ([]string, error) { return nil, nil }
func (d *stubDriver) Close() error                                        { return nil }

type stubElement struct {
	d        *stubDriver
	selector string
}

func (e *stubElement) WaitVisible(ctx context.Context, timeout time.Duration) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.d.visible[e.selector] {
		return nil
	}
	return fmt.Errorf("selector %s not visible", e.selector)
}
func (e *stubElement) IsVisible(ctx context.Context) (bool, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return e.d.visible[e.selector], nil
}
func (e *stubElement) BoundingBox(ctx context.Context) (*interfaces.Box, error) {
	return &interfaces.Box{X: 0, Y: 0, Width: 10, Height: 10}, nil
}
func (e *stubElement) Click(ctx context.Context) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.d.clickFailures[e.selector] > 0 {
		e.d.clickFailures[e.selector]--
		return fmt.Errorf("click failed")
	}
	return nil
}
func (e *stubElement) Focus(ctx context.Context) error { return nil }
func (e *stubElement) Clear(ctx context.Context) error { return nil }

func (e *stubElement) TextContent(ctx context.Context) (string, error)         { return "", nil }
func (e *stubElement) SetInputFiles(ctx context.Context, paths []string) error { return nil }
func (e *stubElement) SelectOption(ctx context.Context, value string) (bool, error) {
	return true, nil
}
func (e *stubElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	return "", false, nil
}

// stubDriverFactory hands out one fixed driver
type stubDriverFactory struct{ driver *stubDriver }

func (f *stubDriverFactory) NewPage(ctx context.Context) (interfaces.PageDriver, error) {
	return f.driver, nil
}
func (f *stubDriverFactory) Close() error { return nil }

// failingAI always errors, forcing the traditional fallback path
type failingAI struct{ calls int }

func (a *failingAI) Execute(ctx context.Context, sctx *interfaces.StrategyContext) (*models.StrategyExecutionResult, error) {
	a.calls++
	return nil, fmt.Errorf("planner unavailable")
}
func (a *failingAI) Available() bool { return true }

func testDeps() strategies.Deps {
	logger := common.GetLogger()
	executor := engine.NewStepExecutor(logger, 10*time.Millisecond, "")
	return strategies.Deps{
		Logger:   logger,
		Executor: executor,
		Retry:    engine.NewRetryController(logger, executor).WithBackoff(0),
		Captcha:  engine.NewCaptchaResolver(logger, nil),
	}
}

func newTestRegistry(t *testing.T, driver *stubDriver, ai interfaces.AIAutomationService, events interfaces.EventService) *StrategyRegistry {
	t.Helper()
	config := common.DefaultConfig()
	config.Strategies.DefaultID = ""
	deps := testDeps()
	deps.Events = events
	return NewStrategyRegistry(Options{
		Config:    config,
		Logger:    common.GetLogger(),
		Events:    events,
		Drivers:   &stubDriverFactory{driver: driver},
		AI:        ai,
		Factories: strategies.Factories(deps),
		Fallback:  strategies.FallbackFactory(deps),
	})
}

func executableDefinition() *models.StrategyDefinition {
	return &models.StrategyDefinition{
		ID:            "acme",
		Name:          "Acme Careers",
		CompanyDomain: "acme.com",
		AntiDetection: models.AntiDetectionConfig{
			SettleDelay:    time.Millisecond,
			TypingDelayMin: time.Microsecond,
			TypingDelayMax: 2 * time.Microsecond,
		},
		Selectors: &models.SelectorBundle{},
		Workflow: &models.AutomationWorkflow{
			Application: []models.WorkflowStep{
				{ID: "nav", Name: "Open posting", Action: models.ActionNavigate, Required: true},
				{ID: "apply", Name: "Click apply", Action: models.ActionClick, Selectors: []string{"#apply"}, Required: true, RetryCount: 1},
			},
		},
	}
}

func TestRegisterRejectsInvalidDefinition(t *testing.T) {
	reg := newTestRegistry(t, newStubDriver(), nil, &recordingEvents{})

	def := executableDefinition()
	def.Selectors = nil

	err := reg.Register(context.Background(), def)
	require.Error(t, err)
	// A rejected definition is never partially registered.
	assert.Empty(t, reg.GetAllStrategies())
}

func TestRegisterPreservesMetricsAcrossReload(t *testing.T) {
	reg := newTestRegistry(t, newStubDriver(), nil, &recordingEvents{})
	ctx := context.Background()

	first := executableDefinition()
	require.NoError(t, reg.Register(ctx, first))
	first.Metrics.Append(models.PerformanceMetric{Success: true, ExecutionTime: time.Second})

	// A hot-reloaded definition arrives without metrics and inherits the
	// previous window.
	second := executableDefinition()
	require.NoError(t, reg.Register(ctx, second))

	got, ok := reg.GetStrategy("acme")
	require.True(t, ok)
	assert.Equal(t, int64(1), got.Metrics.TotalExecutions)
}

func TestExecuteStrategyNoMatchReturnsError(t *testing.T) {
	reg := newTestRegistry(t, newStubDriver(), nil, &recordingEvents{})
	require.NoError(t, reg.Register(context.Background(), executableDefinition()))

	_, err := reg.ExecuteStrategy(context.Background(),
		jobAt("https://unrelated.org/jobs/1"), &models.UserProfile{})
	assert.Error(t, err)
}

func TestExecuteStrategyEndToEndWithRetry(t *testing.T) {
	driver := newStubDriver()
	driver.visible["#apply"] = true
	driver.clickFailures["#apply"] = 1 // first click fails, retry succeeds
	driver.pageText = "Thank you for applying. Confirmation REF789012."

	events := &recordingEvents{}
	reg := newTestRegistry(t, driver, nil, events)
	ctx := context.Background()
	require.NoError(t, reg.Register(ctx, executableDefinition()))

	profile := &models.UserProfile{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}
	result, err := reg.ExecuteStrategy(ctx, jobAt("https://acme.com/jobs/1"), profile)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.StepsCompleted)
	assert.Equal(t, "REF789012", result.ConfirmationID)

	// Exactly one retry, visible in the execution log.
	warnings := 0
	for _, line := range result.Logs {
		if strings.Contains(line, "retry-warning") {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings)

	// Metrics were appended under the per-strategy lock.
	def, _ := reg.GetStrategy("acme")
	assert.Equal(t, int64(1), def.Metrics.TotalExecutions)
	assert.InDelta(t, 1.0, def.Metrics.SuccessRate, 0.001)

	assert.True(t, events.has(interfaces.EventExecutionStarted))
	assert.True(t, events.has(interfaces.EventStepCompleted))
	assert.True(t, events.has(interfaces.EventExecutionCompleted))
	assert.True(t, events.has(interfaces.EventMetricsUpdated))
}

func TestExecuteStrategyFallsBackWhenAIFails(t *testing.T) {
	driver := newStubDriver()
	driver.visible["#apply"] = true
	driver.pageText = "Application submitted."

	ai := &failingAI{}
	reg := newTestRegistry(t, driver, ai, &recordingEvents{})
	ctx := context.Background()
	require.NoError(t, reg.Register(ctx, executableDefinition()))

	result, err := reg.ExecuteStrategy(ctx, jobAt("https://acme.com/jobs/1"), &models.UserProfile{})
	require.NoError(t, err)

	// The AI path was tried once, then the step executor finished the job.
	assert.Equal(t, 1, ai.calls)
	assert.True(t, result.Success)
}

func TestExecuteStrategyHonorsAIOptOut(t *testing.T) {
	driver := newStubDriver()
	driver.visible["#apply"] = true

	ai := &failingAI{}
	reg := newTestRegistry(t, driver, ai, &recordingEvents{})
	ctx := context.Background()

	def := executableDefinition()
	def.Preferences.DisableAIAutomation = true
	require.NoError(t, reg.Register(ctx, def))

	result, err := reg.ExecuteStrategy(ctx, jobAt("https://acme.com/jobs/1"), &models.UserProfile{})
	require.NoError(t, err)
	assert.Equal(t, 0, ai.calls)
	assert.True(t, result.Success)
}
