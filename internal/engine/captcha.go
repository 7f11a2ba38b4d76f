package engine

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/interfaces"
)

// Default challenge-framework selectors checked in addition to the
// strategy's own captcha selector bundle.
var defaultCaptchaSelectors = []string{
	"iframe[src*='recaptcha']",
	".g-recaptcha",
	"#recaptcha-anchor",
	".h-captcha",
	"iframe[src*='hcaptcha']",
	".captcha-container",
	"#challenge-stage",
}

// Selectors tried when typing a text captcha solution
var captchaInputSelectors = []string{
	"input[name*='captcha']",
	"input[id*='captcha']",
	"#captcha-input",
}

const (
	captchaDetectTimeout  = 2 * time.Second
	defaultManualWaitMin  = 10 * time.Second
	defaultManualWaitMax  = 30 * time.Second
	captchaResolveTimeout = 15 * time.Second
)

// CaptchaResolver detects challenge UI and delegates to an optional vision
// service, falling back to a bounded passive wait. It never blocks
// indefinitely - every wait is bounded and failure is an explicit negative
// result.
type CaptchaResolver struct {
	logger arbor.ILogger
	vision interfaces.VisionService // nil when no vision service is configured
}

// NewCaptchaResolver creates a captcha resolver. vision may be nil.
func NewCaptchaResolver(logger arbor.ILogger, vision interfaces.VisionService) *CaptchaResolver {
	return &CaptchaResolver{logger: logger, vision: vision}
}

// Detect scans for known challenge UI and returns the matched selector.
func (r *CaptchaResolver) Detect(ctx context.Context, sctx *interfaces.StrategyContext) (string, bool) {
	selectors := defaultCaptchaSelectors
	if sctx.Definition.Selectors != nil && len(sctx.Definition.Selectors.Captcha) > 0 {
		selectors = append(sctx.Definition.Selectors.Captcha, defaultCaptchaSelectors...)
	}
	for _, selector := range selectors {
		el := sctx.Driver.Locator(selector)
		if visible, err := el.IsVisible(ctx); err == nil && visible {
			return selector, true
		}
	}
	return "", false
}

// Resolve detects and attempts to clear a challenge. Returns true when no
// challenge remains; (false, nil) means a challenge is still present and the
// caller decides how to escalate.
func (r *CaptchaResolver) Resolve(ctx context.Context, sctx *interfaces.StrategyContext, trace *Trace) (bool, error) {
	selector, found := r.Detect(ctx, sctx)
	if !found {
		return true, nil
	}

	r.logger.Info().
		Str("strategy", sctx.Definition.ID).
		Str("selector", selector).
		Msg("Captcha detected")
	trace.Logf("captcha detected via %s", selector)

	if r.vision != nil && sctx.Definition.Captcha.UseVision {
		resolved, err := r.resolveWithVision(ctx, sctx, selector, trace)
		if err != nil {
			r.logger.Warn().Err(err).Msg("Vision captcha resolution failed, falling back to manual wait")
		} else if resolved {
			return true, nil
		}
	}

	return r.manualWait(ctx, sctx, selector, trace)
}

func (r *CaptchaResolver) resolveWithVision(ctx context.Context, sctx *interfaces.StrategyContext, selector string, trace *Trace) (bool, error) {
	image, err := r.captureChallenge(ctx, sctx, selector)
	if err != nil {
		return false, err
	}
	pageURL, _ := sctx.Driver.CurrentURL(ctx)

	result, err := r.vision.AnalyzeImage(ctx, interfaces.VisionRequest{
		ImagePNG: image,
		PageURL:  pageURL,
		Urgent:   true,
	})
	if err != nil {
		return false, err
	}
	if !result.Success {
		return false, nil
	}

	trace.Logf("vision analysis: type=%s", result.CaptchaType)

	switch result.CaptchaType {
	case interfaces.CaptchaTypeCheckbox, interfaces.CaptchaTypeHCaptcha:
		return r.solveCheckbox(ctx, sctx, selector)
	case interfaces.CaptchaTypeText:
		return r.solveText(ctx, sctx, selector, result.CaptchaSolution)
	case interfaces.CaptchaTypeImageTile:
		// Image-tile solving is a documented limitation, not silently faked.
		r.logger.Warn().Msg("Image-tile captcha solving is not supported")
		trace.Logf("image-tile captcha not supported")
		return false, nil
	default:
		return false, nil
	}
}

// captureChallenge screenshots the challenge region when its box is
// locatable, else a default center region of the viewport.
func (r *CaptchaResolver) captureChallenge(ctx context.Context, sctx *interfaces.StrategyContext, selector string) ([]byte, error) {
	el := sctx.Driver.Locator(selector)
	if box, err := el.BoundingBox(ctx); err == nil && box != nil && box.Width > 0 {
		return sctx.Driver.ScreenshotRegion(ctx, *box)
	}
	return sctx.Driver.ScreenshotRegion(ctx, interfaces.Box{X: 280, Y: 120, Width: 720, Height: 480})
}

// solveCheckbox clicks the challenge element and waits for it to disappear
func (r *CaptchaResolver) solveCheckbox(ctx context.Context, sctx *interfaces.StrategyContext, selector string) (bool, error) {
	el := sctx.Driver.Locator(selector)
	if err := el.Click(ctx); err != nil {
		return false, err
	}
	if err := sleepCtx(ctx, 3*time.Second); err != nil {
		return false, err
	}
	return r.challengeGone(ctx, sctx, selector), nil
}

// solveText types the returned solution into the detected input and submits
func (r *CaptchaResolver) solveText(ctx context.Context, sctx *interfaces.StrategyContext, selector, solution string) (bool, error) {
	if solution == "" {
		return false, nil
	}
	for _, inputSelector := range captchaInputSelectors {
		input := sctx.Driver.Locator(inputSelector)
		if visible, err := input.IsVisible(ctx); err != nil || !visible {
			continue
		}
		if err := input.Focus(ctx); err != nil {
			continue
		}
		if err := sctx.Driver.TypeText(ctx, solution); err != nil {
			continue
		}
		// Submit via the nearest button; absence is tolerated, some forms
		// auto-submit on input.
		submit := sctx.Driver.Locator("button[type='submit']")
		if visible, err := submit.IsVisible(ctx); err == nil && visible {
			_ = submit.Click(ctx)
		}
		if err := sleepCtx(ctx, 2*time.Second); err != nil {
			return false, err
		}
		return r.challengeGone(ctx, sctx, selector), nil
	}
	return false, nil
}

// manualWait is the bounded passive fallback: wait a randomized interval,
// then treat disappearance of the challenge element as success.
func (r *CaptchaResolver) manualWait(ctx context.Context, sctx *interfaces.StrategyContext, selector string, trace *Trace) (bool, error) {
	min, max := defaultManualWaitMin, defaultManualWaitMax
	if sctx.Definition.Captcha.ManualWaitMin > 0 {
		min = sctx.Definition.Captcha.ManualWaitMin
	}
	if sctx.Definition.Captcha.ManualWaitMax > min {
		max = sctx.Definition.Captcha.ManualWaitMax
	}
	wait := boundedWait(min, max)

	r.logger.Info().
		Dur("wait", wait).
		Msg("Waiting for manual/passive captcha resolution")
	trace.Logf("captcha passive wait %s", wait)

	if err := sleepCtx(ctx, wait); err != nil {
		return false, err
	}
	return r.challengeGone(ctx, sctx, selector), nil
}

func (r *CaptchaResolver) challengeGone(ctx context.Context, sctx *interfaces.StrategyContext, selector string) bool {
	el := sctx.Driver.Locator(selector)
	visible, err := el.IsVisible(ctx)
	return err != nil || !visible
}
