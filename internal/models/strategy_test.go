package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefinition() *StrategyDefinition {
	return &StrategyDefinition{
		ID:            "acme",
		Name:          "Acme Careers",
		CompanyDomain: "acme.com",
		Selectors:     &SelectorBundle{},
		Workflow: &AutomationWorkflow{
			Application: []WorkflowStep{
				{ID: "s1", Action: ActionClick, Selectors: []string{"#apply"}},
			},
		},
	}
}

func TestStrategyDefinitionValidate(t *testing.T) {
	assert.NoError(t, validDefinition().Validate())
}

func TestStrategyDefinitionValidateNamesMissingFields(t *testing.T) {
	def := validDefinition()
	def.Name = ""
	def.Workflow = nil

	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed structural validation")
	assert.Contains(t, err.Error(), "Name")
	assert.Contains(t, err.Error(), "Workflow")
}

func TestStrategyDefinitionValidateRejectsBadWorkflow(t *testing.T) {
	def := validDefinition()
	def.Workflow.Application[0].Selectors = nil

	require.Error(t, def.Validate())
}

func TestCanHandleURL(t *testing.T) {
	def := validDefinition()

	// Empty pattern list falls back to company-domain substring match.
	assert.True(t, def.CanHandleURL("https://jobs.acme.com/engineer"))
	assert.False(t, def.CanHandleURL("https://example.org/jobs/1"))

	def.URLPatterns = []string{"boards.acme.io/careers"}
	assert.True(t, def.CanHandleURL("https://BOARDS.ACME.IO/careers/123"))
	assert.False(t, def.CanHandleURL("https://jobs.acme.com/engineer"))
}
