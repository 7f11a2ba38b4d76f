package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/models"
)

const tomlStrategy = `
id = "acme"
name = "Acme Careers"
company_domain = "acme.com"
version = "1.0.0"

[selectors]
application = ["#apply-now"]

[selectors.form_fields]
first_name = "#first-name"
email = "#email"

[[workflow.application]]
id = "open-form"
name = "Open application form"
action = "click"
selectors = ["#apply-now"]
required = true
retry_count = 2
`

const yamlStrategy = `
id: linkedin
name: LinkedIn Easy Apply
company_domain: linkedin.com
selectors:
  application:
    - "button.jobs-apply-button"
workflow:
  application:
    - id: open-easy-apply
      name: Open Easy Apply
      action: click
      selectors:
        - "button.jobs-apply-button"
      required: true
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefinitionFileTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "acme.toml", tomlStrategy)

	def, err := LoadDefinitionFile(path)
	require.NoError(t, err)
	assert.Equal(t, "acme", def.ID)
	assert.Equal(t, "acme.com", def.CompanyDomain)
	assert.Equal(t, "#first-name", def.Selectors.FormFields["first_name"])
	require.Len(t, def.Workflow.Application, 1)
	assert.Equal(t, models.ActionClick, def.Workflow.Application[0].Action)
	assert.Equal(t, 2, def.Workflow.Application[0].RetryCount)
	assert.NoError(t, def.Validate())
}

func TestLoadDefinitionFileYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "linkedin.yaml", yamlStrategy)

	def, err := LoadDefinitionFile(path)
	require.NoError(t, err)
	assert.Equal(t, "linkedin", def.ID)
	assert.True(t, def.Workflow.Application[0].Required)
	assert.NoError(t, def.Validate())
}

func TestLoadDefinitionFileIDDefaultsToFileName(t *testing.T) {
	path := writeFile(t, t.TempDir(), "greenhouse.toml", `
name = "Greenhouse"
company_domain = "boards.greenhouse.io"
`)

	def, err := LoadDefinitionFile(path)
	require.NoError(t, err)
	assert.Equal(t, "greenhouse", def.ID)
}

func TestLoadDefinitionsFromDirSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "acme.toml", tomlStrategy)
	writeFile(t, dir, "linkedin.yaml", yamlStrategy)
	writeFile(t, dir, "broken.toml", "id = [not toml")
	writeFile(t, dir, "notes.txt", "ignored")

	defs, err := LoadDefinitionsFromDir(dir, common.GetLogger())
	require.NoError(t, err)
	require.Len(t, defs, 2)
	// Sorted path order: acme.toml before linkedin.yaml.
	assert.Equal(t, "acme", defs[0].ID)
	assert.Equal(t, "linkedin", defs[1].ID)
}

func TestLoadDefinitionsFromDirMissingDir(t *testing.T) {
	_, err := LoadDefinitionsFromDir(filepath.Join(t.TempDir(), "nope"), common.GetLogger())
	assert.Error(t, err)
}
