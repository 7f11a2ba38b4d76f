package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowStepValidate(t *testing.T) {
	tests := []struct {
		name    string
		step    WorkflowStep
		wantErr bool
	}{
		{
			name: "valid click step",
			step: WorkflowStep{ID: "s1", Action: ActionClick, Selectors: []string{"#btn"}},
		},
		{
			name:    "missing id",
			step:    WorkflowStep{Action: ActionClick, Selectors: []string{"#btn"}},
			wantErr: true,
		},
		{
			name:    "invalid action",
			step:    WorkflowStep{ID: "s1", Action: "teleport", Selectors: []string{"#btn"}},
			wantErr: true,
		},
		{
			name:    "negative retry count",
			step:    WorkflowStep{ID: "s1", Action: ActionClick, Selectors: []string{"#btn"}, RetryCount: -1},
			wantErr: true,
		},
		{
			name:    "click without selector",
			step:    WorkflowStep{ID: "s1", Action: ActionClick},
			wantErr: true,
		},
		{
			name: "wait without selector is allowed",
			step: WorkflowStep{ID: "s1", Action: ActionWait, Metadata: StepMetadata{Duration: time.Second}},
		},
		{
			name: "navigate without selector is allowed",
			step: WorkflowStep{ID: "s1", Action: ActionNavigate, Metadata: StepMetadata{URL: "https://acme.com"}},
		},
		{
			name: "screenshot without selector is allowed",
			step: WorkflowStep{ID: "s1", Action: ActionScreenshot},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAutomationWorkflowValidate(t *testing.T) {
	w := &AutomationWorkflow{}
	assert.Error(t, w.Validate(), "empty workflow must be rejected")

	w.Application = []WorkflowStep{{ID: "s1", Action: ActionClick, Selectors: []string{"#btn"}}}
	assert.NoError(t, w.Validate())
	assert.Equal(t, 1, w.TotalSteps())

	// Error-recovery steps are validated but not counted.
	w.ErrorRecovery = []WorkflowStep{{ID: "r1", Action: ActionScreenshot}}
	assert.Equal(t, 1, w.TotalSteps())
	assert.NoError(t, w.Validate())

	w.ErrorRecovery[0].Action = "bogus"
	require.Error(t, w.Validate())
}
