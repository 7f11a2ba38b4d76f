package strategies

import (
	"context"
	"time"

	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

// Paginated questionnaires advance with a next control; this bounds the loop
// so a broken form can never spin forever.
const maxGreenhouseSteps = 8

var greenhouseResumeSelectors = []string{
	"#resume_upload input[type='file']",
	"input[type='file'][name*='resume']",
	"input[type='file']",
}

var greenhouseQuestionSelectors = []string{
	"#custom_fields fieldset",
	"form fieldset",
}

var greenhouseNextSelectors = []string{
	"button[data-test='next-step']",
	".application--next button",
	"button.next_step",
}

var greenhouseSubmitSelectors = []string{
	"#submit_app",
	"input[type='submit']",
	"button[type='submit']",
}

// GreenhouseStrategy handles boards.greenhouse.io application forms. The
// board serves a single-page form for most postings and a paginated variant
// for longer questionnaires; both share the same field markup.
type GreenhouseStrategy struct {
	*BaseStrategy
}

// NewGreenhouseStrategy creates the greenhouse strategy
func NewGreenhouseStrategy(def *models.StrategyDefinition, deps Deps) interfaces.Strategy {
	return &GreenhouseStrategy{BaseStrategy: NewBaseStrategy(def, deps)}
}

func (s *GreenhouseStrategy) ExecuteMainWorkflow(ctx context.Context, sctx *interfaces.StrategyContext) *models.StrategyExecutionResult {
	start := time.Now()

	if err := sctx.Driver.Navigate(ctx, sctx.Job.ApplyURL); err != nil {
		return &models.StrategyExecutionResult{
			Error:         "navigation failed: " + err.Error(),
			ExecutionTime: time.Since(start),
		}
	}

	// The board embeds the form in an iframe on company-hosted pages but the
	// direct boards.greenhouse.io URL serves it inline. The configured
	// workflow handles the company-hosted case; the inline form is handled
	// here directly.
	form := sctx.Driver.Locator("#application-form, #main_fields, form#application_form")
	if visible, err := form.IsVisible(ctx); err != nil || !visible {
		return s.BaseStrategy.ExecuteMainWorkflow(ctx, sctx)
	}

	// A visible next control means the paginated questionnaire variant;
	// otherwise everything sits on one page.
	var result *models.StrategyExecutionResult
	if s.hasVisible(ctx, sctx, greenhouseNextSelectors) {
		result = s.executeMultiStep(ctx, sctx)
	} else {
		result = s.executeSinglePage(ctx, sctx)
	}
	result.ExecutionTime = time.Since(start)
	return result
}

func (s *GreenhouseStrategy) executeSinglePage(ctx context.Context, sctx *interfaces.StrategyContext) *models.StrategyExecutionResult {
	trace := s.beginTrace()
	result := &models.StrategyExecutionResult{}
	defer func() {
		result.Logs = trace.Logs
		result.Screenshots = trace.Screenshots
	}()

	fields := s.MapFormFields(sctx.UserProfile)
	fillStart := time.Now()
	filled := s.fillMappedFields(ctx, sctx, fields)
	if filled == 0 {
		filled = s.fillByAttributes(ctx, sctx)
	}
	result.Metrics.FormFillTime = time.Since(fillStart)
	result.StepsCompleted = filled
	result.TotalSteps = len(fields) + 2 // fields + resume + submit

	uploadStart := time.Now()
	if s.uploadResume(ctx, sctx) {
		result.StepsCompleted++
	}
	result.Metrics.UploadTime = time.Since(uploadStart)

	if sctx.Definition.Captcha.Enabled {
		if resolved, err := s.HandleCompanyCaptcha(ctx, sctx); err != nil || !resolved {
			result.CaptchaEncountered = true
			result.Error = "captcha blocked submission"
			return result
		}
	}

	submitStart := time.Now()
	if !s.clickFirstVisible(ctx, sctx, greenhouseSubmitSelectors) {
		result.Error = "submit button not found"
		return result
	}
	result.StepsCompleted++
	result.Metrics.SubmissionTime = time.Since(submitStart)

	s.finishConfirmation(ctx, sctx, result)
	result.Success = true
	return result
}

// executeMultiStep pages through the questionnaire, handling each page by its
// detected content until the submit control appears.
func (s *GreenhouseStrategy) executeMultiStep(ctx context.Context, sctx *interfaces.StrategyContext) *models.StrategyExecutionResult {
	trace := s.beginTrace()
	result := &models.StrategyExecutionResult{TotalSteps: maxGreenhouseSteps}
	defer func() {
		result.Logs = trace.Logs
		result.Screenshots = trace.Screenshots
	}()

	fields := s.MapFormFields(sctx.UserProfile)
	for page := 0; page < maxGreenhouseSteps; page++ {
		stepType := s.detectStepType(ctx, sctx)
		trace.Logf("greenhouse page %d: %s", page+1, stepType)

		switch stepType {
		case "resume_upload":
			s.uploadResume(ctx, sctx)
		case "additional_questions":
			s.fillByAttributes(ctx, sctx)
		default: // personal_info
			if s.fillMappedFields(ctx, sctx, fields) == 0 {
				s.fillByAttributes(ctx, sctx)
			}
		}
		result.StepsCompleted = page + 1

		if s.hasVisible(ctx, sctx, greenhouseSubmitSelectors) {
			if sctx.Definition.Captcha.Enabled {
				if resolved, err := s.HandleCompanyCaptcha(ctx, sctx); err != nil || !resolved {
					result.CaptchaEncountered = true
					result.Error = "captcha blocked submission"
					return result
				}
			}
			if !s.clickFirstVisible(ctx, sctx, greenhouseSubmitSelectors) {
				result.Error = "submit click failed"
				return result
			}
			s.finishConfirmation(ctx, sctx, result)
			result.Success = true
			return result
		}

		if !s.clickFirstVisible(ctx, sctx, greenhouseNextSelectors) {
			result.Error = "questionnaire stalled, no next or submit control"
			return result
		}
	}

	result.Error = "questionnaire page limit exhausted without submit"
	return result
}

// detectStepType classifies the current questionnaire page by its markup: a
// file input means the resume step, a fieldset means additional questions,
// anything else is the personal-info form.
func (s *GreenhouseStrategy) detectStepType(ctx context.Context, sctx *interfaces.StrategyContext) string {
	if s.hasVisible(ctx, sctx, greenhouseResumeSelectors) {
		return "resume_upload"
	}
	if s.hasVisible(ctx, sctx, greenhouseQuestionSelectors) {
		return "additional_questions"
	}
	return "personal_info"
}

func (s *GreenhouseStrategy) hasVisible(ctx context.Context, sctx *interfaces.StrategyContext, selectors []string) bool {
	for _, selector := range selectors {
		el := sctx.Driver.Locator(selector)
		if visible, err := el.IsVisible(ctx); err == nil && visible {
			return true
		}
	}
	return false
}

func (s *GreenhouseStrategy) finishConfirmation(ctx context.Context, sctx *interfaces.StrategyContext, result *models.StrategyExecutionResult) {
	if confirmation, err := s.ExtractConfirmation(ctx, sctx); err == nil && confirmation.Confirmed {
		result.ConfirmationID = confirmation.ConfirmationID
		result.ApplicationID = confirmation.ApplicationID
	}
}

func (s *GreenhouseStrategy) uploadResume(ctx context.Context, sctx *interfaces.StrategyContext) bool {
	if sctx.UserProfile.ResumePath == "" {
		return false
	}
	for _, selector := range greenhouseResumeSelectors {
		input := sctx.Driver.Locator(selector)
		if visible, err := input.IsVisible(ctx); err != nil || !visible {
			continue
		}
		if err := input.SetInputFiles(ctx, []string{sctx.UserProfile.ResumePath}); err != nil {
			s.logger.Debug().Str("selector", selector).Err(err).Msg("Resume upload failed")
			continue
		}
		return true
	}
	return false
}
