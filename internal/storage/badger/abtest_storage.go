package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/applyr/internal/interfaces"
)

// ABTestStorage implements the ABTestStorage interface for Badger
type ABTestStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewABTestStorage creates a new ABTestStorage instance
func NewABTestStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ABTestStorage {
	return &ABTestStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ABTestStorage) SaveResult(ctx context.Context, result *interfaces.ABTestResult) error {
	if result.StrategyID == "" || result.Variant == "" {
		return fmt.Errorf("A/B result requires strategy ID and variant")
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}

	key := "abtest_" + uuid.New().String()
	if err := s.db.Store().Upsert(key, result); err != nil {
		return fmt.Errorf("failed to save A/B result: %w", err)
	}
	return nil
}

func (s *ABTestStorage) ListResults(ctx context.Context, strategyID string) ([]*interfaces.ABTestResult, error) {
	var results []interfaces.ABTestResult
	query := badgerhold.Where("StrategyID").Eq(strategyID).SortBy("Timestamp")
	if err := s.db.Store().Find(&results, query); err != nil {
		return nil, fmt.Errorf("failed to list A/B results: %w", err)
	}

	out := make([]*interfaces.ABTestResult, len(results))
	for i := range results {
		out[i] = &results[i]
	}
	return out, nil
}
