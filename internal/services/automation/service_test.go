package automation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

func TestParseAction(t *testing.T) {
	action, err := parseAction(`{"action": "click", "selector": "#apply", "reason": "open the form"}`)
	require.NoError(t, err)
	assert.Equal(t, "click", action.Action)
	assert.Equal(t, "#apply", action.Selector)
}

func TestParseActionToleratesFencing(t *testing.T) {
	action, err := parseAction("Next step:\n```json\n{\"action\": \"type\", \"selector\": \"#email\", \"value\": \"jane@example.com\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "type", action.Action)
	assert.Equal(t, "jane@example.com", action.Value)
}

func TestParseActionRejectsMissingAction(t *testing.T) {
	_, err := parseAction(`{"selector": "#apply"}`)
	assert.Error(t, err)
}

func TestParseActionRejectsProse(t *testing.T) {
	_, err := parseAction("I would click the apply button next.")
	assert.Error(t, err)
}

func TestServiceUnavailableWithoutAPIKey(t *testing.T) {
	s := NewService(
		&common.AutomationConfig{AIEnabled: true, MaxActions: 10},
		&common.ClaudeConfig{},
		nil,
		common.GetLogger(),
	)
	assert.False(t, s.Available())

	_, err := s.Execute(context.Background(), &interfaces.StrategyContext{
		Job:        &models.JobPosting{ID: "job-1"},
		Definition: &models.StrategyDefinition{ID: "acme"},
	})
	assert.Error(t, err)
}

func TestServiceUnavailableWhenDisabled(t *testing.T) {
	s := NewService(
		&common.AutomationConfig{AIEnabled: false, MaxActions: 10},
		&common.ClaudeConfig{APIKey: "sk-test"},
		nil,
		common.GetLogger(),
	)
	assert.False(t, s.Available())
}
