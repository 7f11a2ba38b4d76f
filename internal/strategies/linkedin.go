package strategies

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

// Easy Apply modals paginate; this bounds the next/review/submit loop so a
// broken modal can never spin forever.
const maxEasyApplyPages = 10

var easyApplyButtonSelectors = []string{
	"button.jobs-apply-button",
	"button[aria-label*='Easy Apply']",
	".jobs-apply-button--top-card button",
}

var easyApplyAdvanceSelectors = []string{
	"button[aria-label='Submit application']",
	"button[aria-label='Review your application']",
	"button[aria-label='Continue to next step']",
	"footer button[data-easy-apply-next-button]",
}

// LinkedInStrategy handles linkedin.com job postings. It distinguishes Easy
// Apply modals, standard on-site forms and external redirects, and drives the
// Easy Apply pagination itself instead of relying on configured steps.
type LinkedInStrategy struct {
	*BaseStrategy
}

// NewLinkedInStrategy creates the linkedin strategy
func NewLinkedInStrategy(def *models.StrategyDefinition, deps Deps) interfaces.Strategy {
	return &LinkedInStrategy{BaseStrategy: NewBaseStrategy(def, deps)}
}

func (s *LinkedInStrategy) ExecuteMainWorkflow(ctx context.Context, sctx *interfaces.StrategyContext) *models.StrategyExecutionResult {
	start := time.Now()

	if err := sctx.Driver.Navigate(ctx, sctx.Job.ApplyURL); err != nil {
		return &models.StrategyExecutionResult{
			Error:         "navigation failed: " + err.Error(),
			ExecutionTime: time.Since(start),
		}
	}

	mode := s.detectApplicationMode(ctx, sctx)
	s.logger.Info().
		Str("job", sctx.Job.ID).
		Str("mode", mode).
		Msg("LinkedIn application mode detected")

	switch mode {
	case "easy_apply":
		result := s.executeEasyApply(ctx, sctx)
		result.ExecutionTime = time.Since(start)
		return result
	case "external":
		// External postings leave linkedin.com; the configured workflow
		// describes the destination site's form.
		return s.BaseStrategy.ExecuteMainWorkflow(ctx, sctx)
	default:
		return s.BaseStrategy.ExecuteMainWorkflow(ctx, sctx)
	}
}

// detectApplicationMode inspects the posting page for the apply button kind
func (s *LinkedInStrategy) detectApplicationMode(ctx context.Context, sctx *interfaces.StrategyContext) string {
	for _, selector := range easyApplyButtonSelectors {
		el := sctx.Driver.Locator(selector)
		if visible, err := el.IsVisible(ctx); err != nil || !visible {
			continue
		}
		if text, err := el.TextContent(ctx); err == nil {
			lower := strings.ToLower(text)
			if strings.Contains(lower, "easy apply") {
				return "easy_apply"
			}
			if strings.Contains(lower, "apply") {
				return "standard"
			}
		}
	}
	apply := sctx.Driver.Locator("a[data-tracking-control-name*='apply']")
	if visible, err := apply.IsVisible(ctx); err == nil && visible {
		return "external"
	}
	return "standard"
}

// executeEasyApply opens the modal and pages through it, filling mapped
// fields on every page until the submit button appears.
func (s *LinkedInStrategy) executeEasyApply(ctx context.Context, sctx *interfaces.StrategyContext) *models.StrategyExecutionResult {
	trace := s.beginTrace()
	result := &models.StrategyExecutionResult{TotalSteps: maxEasyApplyPages}
	defer func() {
		result.Logs = trace.Logs
		result.Screenshots = trace.Screenshots
	}()
	fields := s.MapFormFields(sctx.UserProfile)

	if !s.clickFirstVisible(ctx, sctx, easyApplyButtonSelectors) {
		result.Error = "easy apply button not found"
		return result
	}

	for page := 0; page < maxEasyApplyPages; page++ {
		if sctx.Definition.Captcha.Enabled {
			if resolved, err := s.HandleCompanyCaptcha(ctx, sctx); err != nil || !resolved {
				result.CaptchaEncountered = true
				result.Error = "captcha blocked easy apply"
				return result
			}
		}

		s.fillMappedFields(ctx, sctx, fields)
		s.attachResume(ctx, sctx)
		result.StepsCompleted = page + 1

		submit := sctx.Driver.Locator(easyApplyAdvanceSelectors[0])
		if visible, err := submit.IsVisible(ctx); err == nil && visible {
			if err := submit.Click(ctx); err != nil {
				result.Error = "submit click failed: " + err.Error()
				return result
			}
			if confirmation, err := s.ExtractConfirmation(ctx, sctx); err == nil && confirmation.Confirmed {
				result.ConfirmationID = confirmation.ConfirmationID
				result.ApplicationID = confirmation.ApplicationID
			}
			result.Success = true
			return result
		}

		if !s.clickFirstVisible(ctx, sctx, easyApplyAdvanceSelectors[1:]) {
			result.Error = "easy apply modal stalled, no advance button"
			return result
		}
	}

	result.Error = "easy apply page budget exhausted"
	return result
}

// attachResume uploads the profile resume into any visible file input
func (s *LinkedInStrategy) attachResume(ctx context.Context, sctx *interfaces.StrategyContext) {
	if sctx.UserProfile.ResumePath == "" {
		return
	}
	input := sctx.Driver.Locator("input[type='file']")
	if visible, err := input.IsVisible(ctx); err != nil || !visible {
		return
	}
	if err := input.SetInputFiles(ctx, []string{sctx.UserProfile.ResumePath}); err != nil {
		s.logger.Debug().Err(err).Msg("Resume upload failed")
	}
}
