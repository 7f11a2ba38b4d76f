package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

// StrategyStorage implements the StrategyStorage interface for Badger.
// Stored definitions carry their rolling metrics windows, so a save after
// each execution is what makes metrics survive restarts.
type StrategyStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewStrategyStorage creates a new StrategyStorage instance
func NewStrategyStorage(db *BadgerDB, logger arbor.ILogger) interfaces.StrategyStorage {
	return &StrategyStorage{
		db:     db,
		logger: logger,
	}
}

func (s *StrategyStorage) SaveStrategy(ctx context.Context, def *models.StrategyDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("strategy ID is required")
	}

	now := time.Now()
	if def.Metadata.CreatedAt.IsZero() {
		def.Metadata.CreatedAt = now
	}
	def.Metadata.UpdatedAt = now

	if err := s.db.Store().Upsert(def.ID, def); err != nil {
		return fmt.Errorf("failed to save strategy: %w", err)
	}
	return nil
}

func (s *StrategyStorage) GetStrategy(ctx context.Context, id string) (*models.StrategyDefinition, error) {
	var def models.StrategyDefinition
	if err := s.db.Store().Get(id, &def); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrStrategyNotFound
		}
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}
	return &def, nil
}

func (s *StrategyStorage) ListStrategies(ctx context.Context) ([]*models.StrategyDefinition, error) {
	var defs []models.StrategyDefinition
	query := badgerhold.Where("ID").Ne("").SortBy("ID")
	if err := s.db.Store().Find(&defs, query); err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}

	result := make([]*models.StrategyDefinition, len(defs))
	for i := range defs {
		result[i] = &defs[i]
	}
	return result, nil
}

func (s *StrategyStorage) DeleteStrategy(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.StrategyDefinition{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrStrategyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete strategy: %w", err)
	}
	return nil
}
