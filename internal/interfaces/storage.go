package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/applyr/internal/models"
)

// ErrStrategyNotFound is returned when a strategy id has no stored definition
var ErrStrategyNotFound = errors.New("strategy not found")

// ErrKeyNotFound is returned when a key is not found in the key/value store
var ErrKeyNotFound = errors.New("key not found")

// StrategyStorage persists strategy definitions (including their rolling
// metrics windows) across process restarts.
type StrategyStorage interface {
	SaveStrategy(ctx context.Context, def *models.StrategyDefinition) error
	GetStrategy(ctx context.Context, id string) (*models.StrategyDefinition, error)
	ListStrategies(ctx context.Context) ([]*models.StrategyDefinition, error)
	DeleteStrategy(ctx context.Context, id string) error
}

// ABTestResult is one recorded A/B arm outcome
type ABTestResult struct {
	StrategyID    string        `json:"strategy_id"`
	Variant       string        `json:"variant"`
	JobID         string        `json:"job_id"`
	Success       bool          `json:"success"`
	ExecutionTime time.Duration `json:"execution_time"`
	Timestamp     time.Time     `json:"timestamp"`
}

// ABTestStorage persists A/B test outcomes
type ABTestStorage interface {
	SaveResult(ctx context.Context, result *ABTestResult) error
	ListResults(ctx context.Context, strategyID string) ([]*ABTestResult, error)
}

// KeyValuePair is a stored key/value entry with metadata
type KeyValuePair struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KeyValueStorage is the generic persistent key/value store, used for API
// keys and small operational state.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value, description string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]KeyValuePair, error)
}

// StorageManager bundles the persistent stores behind one handle
type StorageManager interface {
	StrategyStorage() StrategyStorage
	ABTestStorage() ABTestStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
