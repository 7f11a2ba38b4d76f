package strategies

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/engine"
	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

// Confirmation id patterns tried in order against the post-submission page
// text. First capture group wins.
var confirmationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)confirmation[^A-Z0-9]*?([A-Z0-9]{6,})`),
	regexp.MustCompile(`(?i)application\s+(?:id|number)[^A-Z0-9]*?([A-Z0-9]{6,})`),
	regexp.MustCompile(`(?i)reference\s+(?:id|number)[^A-Z0-9]*?([A-Z0-9]{6,})`),
	regexp.MustCompile(`(?i)request\s+id[^A-Z0-9]*?([A-Z0-9]{6,})`),
}

// Phrases that indicate a submitted application when no explicit
// confirmation element is found.
var successIndicators = []string{
	"application submitted",
	"application was sent",
	"successfully applied",
	"thank you for applying",
	"thank you for your application",
	"we have received your application",
	"your application has been received",
}

// BaseStrategy implements the shared portions of the Strategy interface:
// phase-ordered step execution through the retry controller, captcha gating,
// profile-to-field mapping and confirmation scraping. Site strategies embed
// it and override what their flow needs.
type BaseStrategy struct {
	def      *models.StrategyDefinition
	logger   arbor.ILogger
	executor *engine.StepExecutor
	retry    *engine.RetryController
	captcha  *engine.CaptchaResolver
	events   interfaces.EventService

	// trace is the in-flight execution's log/screenshot sink. Instances are
	// per-run, so there is exactly one live trace per strategy instance.
	trace *engine.Trace
}

// NewBaseStrategy creates the shared strategy core
func NewBaseStrategy(def *models.StrategyDefinition, deps Deps) *BaseStrategy {
	return &BaseStrategy{
		def:      def,
		logger:   deps.Logger,
		executor: deps.Executor,
		retry:    deps.Retry,
		captcha:  deps.Captcha,
		events:   deps.Events,
	}
}

// beginTrace resets per-job state at the start of a workflow entry point
func (s *BaseStrategy) beginTrace() *engine.Trace {
	s.trace = &engine.Trace{}
	return s.trace
}

// currentTrace returns the in-flight trace, creating one for entry points
// that are called outside a workflow run.
func (s *BaseStrategy) currentTrace() *engine.Trace {
	if s.trace == nil {
		s.trace = &engine.Trace{}
	}
	return s.trace
}

// ExecuteMainWorkflow runs the three ordered phases through the retry
// controller. Workflow failures are folded into the result, never returned;
// error-recovery steps run best-effort on fatal failure.
func (s *BaseStrategy) ExecuteMainWorkflow(ctx context.Context, sctx *interfaces.StrategyContext) *models.StrategyExecutionResult {
	start := time.Now()
	trace := s.beginTrace()
	result := &models.StrategyExecutionResult{
		TotalSteps: sctx.Definition.Workflow.TotalSteps(),
	}
	defer func() {
		result.ExecutionTime = time.Since(start)
		result.Logs = trace.Logs
		result.Screenshots = trace.Screenshots
	}()

	phases := []struct {
		name  string
		steps []models.WorkflowStep
	}{
		{"pre_application", sctx.Definition.Workflow.PreApplication},
		{"application", sctx.Definition.Workflow.Application},
		{"post_application", sctx.Definition.Workflow.PostApplication},
	}

	firstInteraction := false
	for _, phase := range phases {
		phaseStart := time.Now()
		for i := range phase.steps {
			step := &phase.steps[i]

			// The application phase is where challenge pages appear; gate
			// each of its steps on captcha state.
			if phase.name == "application" && sctx.Definition.Captcha.Enabled {
				if ok := s.gateCaptcha(ctx, sctx, trace, result); !ok {
					result.Error = fmt.Sprintf("step %s blocked: %v", step.ID, engine.ErrCaptchaUnresolved)
					s.runErrorRecovery(ctx, sctx, trace)
					return result
				}
			}

			completed, err := s.retry.ExecuteStep(ctx, step, sctx, trace)
			if err != nil {
				result.Error = err.Error()
				s.logger.Error().
					Str("strategy", sctx.Definition.ID).
					Str("phase", phase.name).
					Str("step", step.ID).
					Err(err).
					Msg("Workflow failed")
				s.runErrorRecovery(ctx, sctx, trace)
				return result
			}
			if completed {
				result.StepsCompleted++
				s.publishStepCompleted(ctx, sctx, step.ID)
				if !firstInteraction {
					result.Metrics.TimeToFirstInteraction = time.Since(start)
					firstInteraction = true
				}
			}
		}
		switch phase.name {
		case "application":
			result.Metrics.FormFillTime = time.Since(phaseStart)
		case "post_application":
			result.Metrics.SubmissionTime = time.Since(phaseStart)
		}
	}

	if confirmation, err := s.ExtractConfirmation(ctx, sctx); err == nil && confirmation.Confirmed {
		result.ConfirmationID = confirmation.ConfirmationID
		result.ApplicationID = confirmation.ApplicationID
		trace.Logf("confirmation extracted: %s", confirmation.ConfirmationID)
	}

	result.Success = true
	return result
}

// gateCaptcha resolves any visible challenge. Returns false when a challenge
// remains after resolution attempts.
func (s *BaseStrategy) gateCaptcha(ctx context.Context, sctx *interfaces.StrategyContext, trace *engine.Trace, result *models.StrategyExecutionResult) bool {
	if _, found := s.captcha.Detect(ctx, sctx); !found {
		return true
	}
	result.CaptchaEncountered = true

	resolved, err := s.captcha.Resolve(ctx, sctx, trace)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Captcha resolution errored")
		return false
	}
	return resolved
}

// runErrorRecovery executes the error-recovery steps best-effort. Their
// failures are logged and ignored; recovery must never mask the original
// failure.
func (s *BaseStrategy) runErrorRecovery(ctx context.Context, sctx *interfaces.StrategyContext, trace *engine.Trace) {
	steps := sctx.Definition.Workflow.ErrorRecovery
	if len(steps) == 0 {
		return
	}
	trace.Logf("running %d error-recovery steps", len(steps))
	for i := range steps {
		if _, err := s.executor.ExecuteAction(ctx, &steps[i], sctx, trace); err != nil {
			s.logger.Debug().
				Str("step", steps[i].ID).
				Err(err).
				Msg("Error-recovery step failed")
		}
	}
}

// MapFormFields projects the user profile onto the strategy's form-field
// vocabulary. Keys of the returned map are the site's selectors; values are
// what to type into them. Concepts with no profile value are omitted.
func (s *BaseStrategy) MapFormFields(profile *models.UserProfile) map[string]string {
	fields := make(map[string]string)
	if s.def.Selectors == nil {
		return fields
	}
	for concept, selector := range s.def.Selectors.FormFields {
		if value := profileValue(profile, concept); value != "" {
			fields[selector] = value
		}
	}
	return fields
}

// profileValue resolves a field concept name to a profile value by substring
// matching, so "applicant_first_name" and "first-name" both resolve.
func profileValue(profile *models.UserProfile, concept string) string {
	c := strings.ToLower(concept)
	switch {
	case strings.Contains(c, "first") && strings.Contains(c, "name"):
		return profile.FirstName
	case strings.Contains(c, "last") && strings.Contains(c, "name"):
		return profile.LastName
	case strings.Contains(c, "full") && strings.Contains(c, "name"), c == "name":
		return profile.FullName()
	case strings.Contains(c, "email"):
		return profile.Email
	case strings.Contains(c, "phone"), strings.Contains(c, "mobile"):
		return profile.Phone
	case strings.Contains(c, "linkedin"):
		return profile.LinkedInURL
	case strings.Contains(c, "github"):
		return profile.GitHubURL
	case strings.Contains(c, "portfolio"), strings.Contains(c, "website"):
		return profile.PortfolioURL
	case strings.Contains(c, "cover") && strings.Contains(c, "letter"):
		return profile.CoverLetter
	case strings.Contains(c, "company"), strings.Contains(c, "employer"):
		return profile.CurrentCompany
	case strings.Contains(c, "title"), strings.Contains(c, "role"):
		return profile.CurrentTitle
	case strings.Contains(c, "experience"), strings.Contains(c, "years"):
		if profile.YearsExperience > 0 {
			return fmt.Sprintf("%d", profile.YearsExperience)
		}
		return ""
	case strings.Contains(c, "salary"), strings.Contains(c, "compensation"):
		return profile.SalaryExpectation
	case strings.Contains(c, "address"):
		return profile.Address
	case strings.Contains(c, "city"):
		return profile.City
	case strings.Contains(c, "state"), strings.Contains(c, "province"):
		return profile.State
	case strings.Contains(c, "zip"), strings.Contains(c, "postal"):
		return profile.Zip
	case strings.Contains(c, "country"):
		return profile.Country
	case strings.Contains(c, "authoriz"):
		return profile.WorkAuthorization
	case strings.Contains(c, "sponsor"):
		return yesNo(profile.RequireSponsorship)
	case strings.Contains(c, "relocat"):
		return yesNo(profile.WillingToRelocate)
	case strings.Contains(c, "remote"):
		return profile.RemotePreference
	case strings.Contains(c, "skill"):
		return strings.Join(profile.Skills, ", ")
	default:
		return profile.CustomFields[concept]
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// fillMappedFields types each mapped value into its selector. Missing or
// invisible fields are skipped; heterogeneous forms make absence normal.
func (s *BaseStrategy) fillMappedFields(ctx context.Context, sctx *interfaces.StrategyContext, fields map[string]string) int {
	filled := 0
	for selector, value := range fields {
		el := sctx.Driver.Locator(selector)
		if visible, err := el.IsVisible(ctx); err != nil || !visible {
			continue
		}
		if err := el.Focus(ctx); err != nil {
			continue
		}
		_ = el.Clear(ctx)
		if err := s.executor.TypeHumanized(ctx, sctx, value); err != nil {
			s.logger.Debug().Str("selector", selector).Err(err).Msg("Field fill failed")
			continue
		}
		filled++
	}
	return filled
}

// publishStepCompleted emits one step-completed event. A missing event
// service is normal in tests and single-shot runs.
func (s *BaseStrategy) publishStepCompleted(ctx context.Context, sctx *interfaces.StrategyContext, stepID string) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, interfaces.Event{
		Type:       interfaces.EventStepCompleted,
		StrategyID: sctx.Definition.ID,
		JobID:      sctx.Job.ID,
		Timestamp:  time.Now().UTC(),
		Payload:    stepID,
	})
}

// clickFirstVisible clicks the first selector that is currently visible
func (s *BaseStrategy) clickFirstVisible(ctx context.Context, sctx *interfaces.StrategyContext, selectors []string) bool {
	for _, selector := range selectors {
		el := sctx.Driver.Locator(selector)
		if visible, err := el.IsVisible(ctx); err != nil || !visible {
			continue
		}
		if err := el.Click(ctx); err == nil {
			return true
		}
	}
	return false
}

// fillByAttributes sweeps the page's visible form controls and fills any
// whose name/id/placeholder/type attributes resolve to a profile value. This
// is the field-by-field fallback for boards with no configured selectors;
// per-field failures are logged and skipped.
func (s *BaseStrategy) fillByAttributes(ctx context.Context, sctx *interfaces.StrategyContext) int {
	selectors, err := sctx.Driver.VisibleInputs(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Visible input scan failed")
		return 0
	}

	filled := 0
	for _, selector := range selectors {
		el := sctx.Driver.Locator(selector)
		var hints strings.Builder
		for _, attr := range []string{"name", "id", "placeholder", "type"} {
			if v, ok, err := el.Attribute(ctx, attr); err == nil && ok && v != "" {
				hints.WriteString(strings.ToLower(v))
				hints.WriteByte(' ')
			}
		}
		value := profileValue(sctx.UserProfile, hints.String())
		if value == "" {
			continue
		}
		if err := el.Focus(ctx); err != nil {
			continue
		}
		_ = el.Clear(ctx)
		if err := s.executor.TypeHumanized(ctx, sctx, value); err != nil {
			s.logger.Debug().Str("selector", selector).Err(err).Msg("Attribute fill failed")
			continue
		}
		filled++
	}
	return filled
}

// HandleCompanyCaptcha runs the shared challenge detection and resolution.
// Challenge log lines land in the execution's trace, not a throwaway.
func (s *BaseStrategy) HandleCompanyCaptcha(ctx context.Context, sctx *interfaces.StrategyContext) (bool, error) {
	return s.captcha.Resolve(ctx, sctx, s.currentTrace())
}

// ExtractConfirmation scrapes confirmation selectors first, then the page
// text and URL, for proof of submission.
func (s *BaseStrategy) ExtractConfirmation(ctx context.Context, sctx *interfaces.StrategyContext) (*models.ConfirmationResult, error) {
	if sctx.Definition.Selectors != nil {
		for _, selector := range sctx.Definition.Selectors.Confirmation {
			el := sctx.Driver.Locator(selector)
			if visible, err := el.IsVisible(ctx); err != nil || !visible {
				continue
			}
			text, err := el.TextContent(ctx)
			if err != nil {
				continue
			}
			if id := matchConfirmationID(text); id != "" {
				return &models.ConfirmationResult{Confirmed: true, ConfirmationID: id, ApplicationID: id}, nil
			}
			// A visible confirmation element without a readable id still
			// counts as a submitted application.
			return &models.ConfirmationResult{Confirmed: true}, nil
		}
	}

	pageText, err := sctx.Driver.PageText(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page text: %w", err)
	}
	if id := matchConfirmationID(pageText); id != "" {
		return &models.ConfirmationResult{Confirmed: true, ConfirmationID: id, ApplicationID: id}, nil
	}

	lowerText := strings.ToLower(pageText)
	for _, indicator := range successIndicators {
		if strings.Contains(lowerText, indicator) {
			return &models.ConfirmationResult{Confirmed: true}, nil
		}
	}

	if url, err := sctx.Driver.CurrentURL(ctx); err == nil {
		lower := strings.ToLower(url)
		if strings.Contains(lower, "confirmation") || strings.Contains(lower, "thank") || strings.Contains(lower, "success") {
			return &models.ConfirmationResult{Confirmed: true}, nil
		}
	}

	return &models.ConfirmationResult{Confirmed: false}, nil
}

// matchConfirmationID runs the pattern list against text, first hit wins
func matchConfirmationID(text string) string {
	for _, pattern := range confirmationPatterns {
		if m := pattern.FindStringSubmatch(text); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}
