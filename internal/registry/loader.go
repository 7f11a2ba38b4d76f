package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/applyr/internal/models"
)

// LoadDefinitionFile parses one strategy definition file. The format is
// chosen by extension; TOML and YAML carry the same structure.
func LoadDefinitionFile(path string) (*models.StrategyDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy file %s: %w", path, err)
	}

	var def models.StrategyDefinition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse TOML strategy %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse YAML strategy %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported strategy file format: %s", path)
	}

	// A file's ID defaults to its base name, matching how strategies are
	// usually organized one-per-file.
	if def.ID == "" {
		base := filepath.Base(path)
		def.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &def, nil
}

// LoadDefinitionsFromDir parses every strategy file in a directory. Files
// that fail to parse are logged and skipped; one bad file must not block the
// rest. Results are returned in deterministic (sorted path) order.
func LoadDefinitionsFromDir(dir string, logger arbor.ILogger) ([]*models.StrategyDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategies directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".toml", ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	defs := make([]*models.StrategyDefinition, 0, len(paths))
	for _, path := range paths {
		def, err := LoadDefinitionFile(path)
		if err != nil {
			logger.Warn().Str("file", path).Err(err).Msg("Skipping unparseable strategy file")
			continue
		}
		defs = append(defs, def)
	}

	logger.Info().
		Int("loaded", len(defs)).
		Int("files", len(paths)).
		Str("dir", dir).
		Msg("Strategy definitions loaded from directory")
	return defs, nil
}
