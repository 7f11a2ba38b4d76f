package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

const (
	defaultElementTimeout = 5 * time.Second
	defaultSettleDelay    = 500 * time.Millisecond
	defaultWaitDuration   = 2 * time.Second
	criteriaCheckTimeout  = 3 * time.Second
)

// StepExecutor runs one declarative workflow step against a page driver
// with humanized interaction timing. It is stateless across steps; all
// per-execution output goes through the Trace.
type StepExecutor struct {
	logger         arbor.ILogger
	elementTimeout time.Duration
	screenshotsDir string
}

// NewStepExecutor creates a step executor
func NewStepExecutor(logger arbor.ILogger, elementTimeout time.Duration, screenshotsDir string) *StepExecutor {
	if elementTimeout <= 0 {
		elementTimeout = defaultElementTimeout
	}
	return &StepExecutor{
		logger:         logger,
		elementTimeout: elementTimeout,
		screenshotsDir: screenshotsDir,
	}
}

// ExecuteAction dispatches one step to its action handler. The returned
// string carries extracted text for EXTRACT and the file path for SCREENSHOT;
// it is empty for other actions.
func (e *StepExecutor) ExecuteAction(ctx context.Context, step *models.WorkflowStep, sctx *interfaces.StrategyContext, trace *Trace) (string, error) {
	switch step.Action {
	case models.ActionNavigate:
		return "", e.navigate(ctx, step, sctx)
	case models.ActionClick:
		return "", e.click(ctx, step, sctx)
	case models.ActionTypeText:
		return "", e.typeText(ctx, step, sctx)
	case models.ActionUpload:
		return "", e.upload(ctx, step, sctx)
	case models.ActionSelect:
		return "", e.selectOption(ctx, step, sctx)
	case models.ActionWait:
		return "", e.wait(ctx, step, sctx)
	case models.ActionValidate:
		return "", e.ValidateCriteria(ctx, step.SuccessCriteria, sctx)
	case models.ActionExtract:
		return e.extract(ctx, step, sctx)
	case models.ActionScreenshot:
		return e.screenshot(ctx, step, sctx, trace)
	case models.ActionCustom:
		return "", &NotImplementedError{Strategy: sctx.Definition.ID, Feature: "custom action " + step.ID}
	default:
		return "", fmt.Errorf("unknown action type: %s", step.Action)
	}
}

// resolveElement tries the step's selectors in listed order; the first one to
// become visible within the per-selector window wins.
func (e *StepExecutor) resolveElement(ctx context.Context, step *models.WorkflowStep, driver interfaces.PageDriver) (interfaces.Element, string, error) {
	timeout := e.elementTimeout
	if step.Timeout > 0 {
		timeout = step.Timeout
	}
	for _, selector := range step.Selectors {
		el := driver.Locator(selector)
		if err := el.WaitVisible(ctx, timeout); err == nil {
			return el, selector, nil
		}
		e.logger.Debug().
			Str("step", step.ID).
			Str("selector", selector).
			Msg("Selector did not become visible, trying next candidate")
	}
	return nil, "", fmt.Errorf("step %s: %w after %d selectors", step.ID, ErrElementNotFound, len(step.Selectors))
}

func (e *StepExecutor) navigate(ctx context.Context, step *models.WorkflowStep, sctx *interfaces.StrategyContext) error {
	url := step.Metadata.URL
	if url == "" {
		url = sctx.Job.ApplyURL
	}
	if url == "" {
		return fmt.Errorf("step %s: no URL to navigate to", step.ID)
	}
	if err := sctx.Driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("step %s: navigation to %s failed: %w", step.ID, url, err)
	}
	settle := sctx.Definition.AntiDetection.SettleDelay
	if settle <= 0 {
		settle = defaultSettleDelay
	}
	return sleepCtx(ctx, settle)
}

func (e *StepExecutor) click(ctx context.Context, step *models.WorkflowStep, sctx *interfaces.StrategyContext) error {
	el, selector, err := e.resolveElement(ctx, step, sctx.Driver)
	if err != nil {
		return err
	}

	// Humanized click: move the pointer to a randomized point inside the
	// element before clicking. Plain element click is the fallback when the
	// box is unavailable or randomization is disabled.
	if sctx.Definition.AntiDetection.RandomizeMouse {
		if box, boxErr := el.BoundingBox(ctx); boxErr == nil && box != nil && box.Width > 0 {
			x, y := clickPoint(box)
			if err := sctx.Driver.MouseMove(ctx, x, y); err == nil {
				if err := sctx.Driver.MouseClick(ctx, x, y); err == nil {
					return nil
				}
			}
		}
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("step %s: click on %s failed: %w", step.ID, selector, err)
	}
	return nil
}

func (e *StepExecutor) typeText(ctx context.Context, step *models.WorkflowStep, sctx *interfaces.StrategyContext) error {
	el, selector, err := e.resolveElement(ctx, step, sctx.Driver)
	if err != nil {
		return err
	}
	if err := el.Focus(ctx); err != nil {
		return fmt.Errorf("step %s: focus on %s failed: %w", step.ID, selector, err)
	}
	if err := el.Clear(ctx); err != nil {
		e.logger.Debug().Str("step", step.ID).Err(err).Msg("Clear before type failed, continuing")
	}
	return e.TypeHumanized(ctx, sctx, step.Metadata.Text)
}

// TypeHumanized types text into the focused element one rune at a time with
// randomized inter-keystroke delays.
func (e *StepExecutor) TypeHumanized(ctx context.Context, sctx *interfaces.StrategyContext, text string) error {
	for _, r := range text {
		if err := sctx.Driver.TypeText(ctx, string(r)); err != nil {
			return err
		}
		if err := sleepCtx(ctx, typingDelay(sctx.Definition.AntiDetection)); err != nil {
			return err
		}
	}
	return nil
}

func (e *StepExecutor) upload(ctx context.Context, step *models.WorkflowStep, sctx *interfaces.StrategyContext) error {
	el, selector, err := e.resolveElement(ctx, step, sctx.Driver)
	if err != nil {
		return err
	}
	path := step.Metadata.FilePath
	if path == "" {
		path = sctx.UserProfile.ResumePath
	}
	if path == "" {
		return fmt.Errorf("step %s: no file path for upload", step.ID)
	}
	if err := el.SetInputFiles(ctx, []string{path}); err != nil {
		return fmt.Errorf("step %s: upload to %s failed: %w", step.ID, selector, err)
	}
	return nil
}

func (e *StepExecutor) selectOption(ctx context.Context, step *models.WorkflowStep, sctx *interfaces.StrategyContext) error {
	el, selector, err := e.resolveElement(ctx, step, sctx.Driver)
	if err != nil {
		return err
	}
	matched, err := el.SelectOption(ctx, step.Metadata.Value)
	if err != nil {
		return fmt.Errorf("step %s: select on %s failed: %w", step.ID, selector, err)
	}
	if !matched {
		return fmt.Errorf("step %s: no option matched value %q on %s", step.ID, step.Metadata.Value, selector)
	}
	return nil
}

func (e *StepExecutor) wait(ctx context.Context, step *models.WorkflowStep, sctx *interfaces.StrategyContext) error {
	if len(step.Selectors) > 0 {
		_, _, err := e.resolveElement(ctx, step, sctx.Driver)
		return err
	}
	duration := step.Metadata.Duration
	if duration <= 0 {
		duration = defaultWaitDuration
	}
	return sleepCtx(ctx, duration)
}

// ValidateCriteria requires every success-criteria selector to become visible
// within a short timeout. An empty criteria list always passes.
func (e *StepExecutor) ValidateCriteria(ctx context.Context, criteria []string, sctx *interfaces.StrategyContext) error {
	for _, selector := range criteria {
		el := sctx.Driver.Locator(selector)
		if err := el.WaitVisible(ctx, criteriaCheckTimeout); err != nil {
			return fmt.Errorf("%w: selector %s not visible", ErrStepValidation, selector)
		}
	}
	return nil
}

func (e *StepExecutor) extract(ctx context.Context, step *models.WorkflowStep, sctx *interfaces.StrategyContext) (string, error) {
	el, selector, err := e.resolveElement(ctx, step, sctx.Driver)
	if err != nil {
		return "", err
	}
	text, err := el.TextContent(ctx)
	if err != nil {
		return "", fmt.Errorf("step %s: extract from %s failed: %w", step.ID, selector, err)
	}
	return strings.TrimSpace(text), nil
}

func (e *StepExecutor) screenshot(ctx context.Context, step *models.WorkflowStep, sctx *interfaces.StrategyContext, trace *Trace) (string, error) {
	data, err := sctx.Driver.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("step %s: screenshot failed: %w", step.ID, err)
	}
	name := step.Name
	if name == "" {
		name = step.ID
	}
	dir := e.screenshotsDir
	if dir == "" {
		dir = "screenshots"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("step %s: failed to create screenshots directory: %w", step.ID, err)
	}
	path := filepath.Join(dir, common.ScreenshotName(sctx.Job.ID, name, time.Now()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("step %s: failed to write screenshot: %w", step.ID, err)
	}
	if trace != nil {
		trace.AddScreenshot(path)
	}
	return path, nil
}
