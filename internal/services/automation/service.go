package automation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

// plannedAction is one LLM-proposed browser action
type plannedAction struct {
	Action   string `json:"action"` // click, type, select, navigate, wait, done, abort
	Selector string `json:"selector,omitempty"`
	Value    string `json:"value,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Service is the LLM-driven execution path. The registry tries it before the
// traditional step executor when enabled; any failure here falls back
// transparently.
type Service struct {
	config *common.AutomationConfig
	claude *common.ClaudeConfig
	logger arbor.ILogger
	events interfaces.EventService
	client *anthropic.Client
}

// NewService creates the AI automation service. Returns an unavailable
// service (not an error) when no API key is configured.
func NewService(config *common.AutomationConfig, claude *common.ClaudeConfig, events interfaces.EventService, logger arbor.ILogger) *Service {
	s := &Service{
		config: config,
		claude: claude,
		logger: logger,
		events: events,
	}
	if config.AIEnabled && claude.APIKey != "" {
		client := anthropic.NewClient(option.WithAPIKey(claude.APIKey))
		s.client = &client
	}
	return s
}

// Available reports whether the AI path can run at all
func (s *Service) Available() bool {
	return s.client != nil
}

// Execute runs a bounded observe-plan-act loop: screenshot the page, ask the
// model for the next action, apply it, repeat until the model reports done or
// the action budget is spent.
func (s *Service) Execute(ctx context.Context, sctx *interfaces.StrategyContext) (*models.StrategyExecutionResult, error) {
	if !s.Available() {
		return nil, fmt.Errorf("AI automation service is not configured")
	}

	start := time.Now()
	result := &models.StrategyExecutionResult{TotalSteps: s.config.MaxActions}

	s.publish(ctx, interfaces.EventAIAutomationStarted, sctx, nil)

	if err := sctx.Driver.Navigate(ctx, sctx.Job.ApplyURL); err != nil {
		s.publish(ctx, interfaces.EventAIAutomationError, sctx, err.Error())
		return nil, fmt.Errorf("initial navigation failed: %w", err)
	}

	for i := 0; i < s.config.MaxActions; i++ {
		action, err := s.planNext(ctx, sctx)
		if err != nil {
			s.publish(ctx, interfaces.EventAIAutomationError, sctx, err.Error())
			return nil, fmt.Errorf("action planning failed at step %d: %w", i+1, err)
		}

		switch action.Action {
		case "done":
			result.Success = true
			result.StepsCompleted = i
			result.ExecutionTime = time.Since(start)
			result.Logs = append(result.Logs, fmt.Sprintf("ai automation complete after %d actions", i))
			s.publish(ctx, interfaces.EventAIAutomationComplete, sctx, nil)
			return result, nil
		case "abort":
			s.publish(ctx, interfaces.EventAIAutomationError, sctx, action.Reason)
			return nil, fmt.Errorf("model aborted: %s", action.Reason)
		}

		if err := s.apply(ctx, sctx, action); err != nil {
			s.publish(ctx, interfaces.EventAIAutomationError, sctx, err.Error())
			return nil, fmt.Errorf("action %q failed at step %d: %w", action.Action, i+1, err)
		}
		result.StepsCompleted = i + 1
		result.Logs = append(result.Logs, fmt.Sprintf("ai action %s %s", action.Action, action.Selector))
		s.publish(ctx, interfaces.EventAIAutomationProgress, sctx, action)
	}

	s.publish(ctx, interfaces.EventAIAutomationError, sctx, "action budget exhausted")
	return nil, fmt.Errorf("action budget of %d exhausted without completion", s.config.MaxActions)
}

// planNext screenshots the page and asks the model for the next action
func (s *Service) planNext(ctx context.Context, sctx *interfaces.StrategyContext) (*plannedAction, error) {
	screenshot, err := sctx.Driver.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	pageURL, _ := sctx.Driver.CurrentURL(ctx)

	prompt := s.buildPrompt(sctx, pageURL)

	model := s.claude.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(screenshot)),
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return parseAction(text.String())
}

func (s *Service) buildPrompt(sctx *interfaces.StrategyContext, pageURL string) string {
	profile := sctx.UserProfile
	var b strings.Builder
	b.WriteString("You are filling a job application form.\n")
	fmt.Fprintf(&b, "Page: %s\nJob: %s at %s\n", pageURL, sctx.Job.Title, sctx.Job.Company)
	fmt.Fprintf(&b, "Applicant: %s, %s, %s\n", profile.FullName(), profile.Email, profile.Phone)
	if profile.ResumePath != "" {
		b.WriteString("A resume file is available for upload fields.\n")
	}
	b.WriteString("Reply with ONLY one JSON object describing the single next action:\n")
	b.WriteString(`{"action": "click|type|select|navigate|wait|done|abort", "selector": "<css>", "value": "<text>", "reason": "<short>"}` + "\n")
	b.WriteString("Use \"done\" only after the application is submitted and confirmed.\n")
	return b.String()
}

// apply executes one planned action against the page driver
func (s *Service) apply(ctx context.Context, sctx *interfaces.StrategyContext, action *plannedAction) error {
	switch action.Action {
	case "navigate":
		return sctx.Driver.Navigate(ctx, action.Value)
	case "click":
		el := sctx.Driver.Locator(action.Selector)
		if err := el.WaitVisible(ctx, 5*time.Second); err != nil {
			return err
		}
		return el.Click(ctx)
	case "type":
		el := sctx.Driver.Locator(action.Selector)
		if err := el.WaitVisible(ctx, 5*time.Second); err != nil {
			return err
		}
		if err := el.Focus(ctx); err != nil {
			return err
		}
		return sctx.Driver.TypeText(ctx, action.Value)
	case "select":
		el := sctx.Driver.Locator(action.Selector)
		if err := el.WaitVisible(ctx, 5*time.Second); err != nil {
			return err
		}
		matched, err := el.SelectOption(ctx, action.Value)
		if err != nil {
			return err
		}
		if !matched {
			return fmt.Errorf("no option matched %q", action.Value)
		}
		return nil
	case "wait":
		timer := time.NewTimer(2 * time.Second)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	default:
		return fmt.Errorf("unknown planned action: %s", action.Action)
	}
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, sctx *interfaces.StrategyContext, payload interface{}) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, interfaces.Event{
		Type:       eventType,
		StrategyID: sctx.Definition.ID,
		JobID:      sctx.Job.ID,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	})
}

// parseAction extracts the planned action JSON, tolerating fenced output
func parseAction(text string) (*plannedAction, error) {
	trimmed := strings.TrimSpace(text)
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			trimmed = trimmed[start : end+1]
		}
	}
	var action plannedAction
	if err := json.Unmarshal([]byte(trimmed), &action); err != nil {
		return nil, fmt.Errorf("model reply is not a valid action: %w", err)
	}
	if action.Action == "" {
		return nil, fmt.Errorf("model reply has no action")
	}
	return &action, nil
}
