package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

func testManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := NewManager(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func storedDefinition(id string) *models.StrategyDefinition {
	return &models.StrategyDefinition{
		ID:            id,
		Name:          "Test " + id,
		CompanyDomain: id + ".com",
		Selectors:     &models.SelectorBundle{},
		Workflow: &models.AutomationWorkflow{
			Application: []models.WorkflowStep{{ID: "s1", Action: models.ActionWait}},
		},
	}
}

func TestStrategyStorageRoundTrip(t *testing.T) {
	storage := testManager(t).StrategyStorage()
	ctx := context.Background()

	def := storedDefinition("acme")
	def.Metrics = models.NewStrategyMetrics()
	def.Metrics.Append(models.PerformanceMetric{Success: true, ExecutionTime: time.Second})
	require.NoError(t, storage.SaveStrategy(ctx, def))

	got, err := storage.GetStrategy(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.ID)
	assert.Equal(t, "acme.com", got.CompanyDomain)
	require.NotNil(t, got.Metrics)
	assert.Equal(t, int64(1), got.Metrics.TotalExecutions)
}

func TestStrategyStorageStampsMetadataTimestamps(t *testing.T) {
	storage := testManager(t).StrategyStorage()
	ctx := context.Background()

	def := storedDefinition("acme")
	require.True(t, def.Metadata.CreatedAt.IsZero())
	require.NoError(t, storage.SaveStrategy(ctx, def))

	got, err := storage.GetStrategy(ctx, "acme")
	require.NoError(t, err)
	created := got.Metadata.CreatedAt
	assert.False(t, created.IsZero())
	assert.False(t, got.Metadata.UpdatedAt.IsZero())

	// A re-save keeps the creation time and advances the update time.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, storage.SaveStrategy(ctx, got))
	saved, err := storage.GetStrategy(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, created.Unix(), saved.Metadata.CreatedAt.Unix())
	assert.True(t, saved.Metadata.UpdatedAt.After(created))
}

func TestStrategyStorageGetMissing(t *testing.T) {
	storage := testManager(t).StrategyStorage()

	_, err := storage.GetStrategy(context.Background(), "nope")
	assert.ErrorIs(t, err, interfaces.ErrStrategyNotFound)
}

func TestStrategyStorageListSortedByID(t *testing.T) {
	storage := testManager(t).StrategyStorage()
	ctx := context.Background()

	for _, id := range []string{"zeta", "acme", "linkedin"} {
		require.NoError(t, storage.SaveStrategy(ctx, storedDefinition(id)))
	}

	defs, err := storage.ListStrategies(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 3)
	assert.Equal(t, "acme", defs[0].ID)
	assert.Equal(t, "linkedin", defs[1].ID)
	assert.Equal(t, "zeta", defs[2].ID)
}

func TestStrategyStorageDelete(t *testing.T) {
	storage := testManager(t).StrategyStorage()
	ctx := context.Background()

	require.NoError(t, storage.SaveStrategy(ctx, storedDefinition("acme")))
	require.NoError(t, storage.DeleteStrategy(ctx, "acme"))

	_, err := storage.GetStrategy(ctx, "acme")
	assert.ErrorIs(t, err, interfaces.ErrStrategyNotFound)
}

func TestStrategyStorageUpsertReplaces(t *testing.T) {
	storage := testManager(t).StrategyStorage()
	ctx := context.Background()

	def := storedDefinition("acme")
	require.NoError(t, storage.SaveStrategy(ctx, def))

	def.Name = "Acme v2"
	require.NoError(t, storage.SaveStrategy(ctx, def))

	got, err := storage.GetStrategy(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme v2", got.Name)

	defs, err := storage.ListStrategies(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 1)
}

func TestKVStorageRoundTrip(t *testing.T) {
	kv := testManager(t).KeyValueStorage()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "Anthropic-API-Key", "sk-test", "vision credentials"))

	// Keys are case-insensitive.
	value, err := kv.Get(ctx, "anthropic-api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", value)
}

func TestKVStorageMissingKey(t *testing.T) {
	kv := testManager(t).KeyValueStorage()

	_, err := kv.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestKVStorageDelete(t *testing.T) {
	kv := testManager(t).KeyValueStorage()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "flag", "on", ""))
	require.NoError(t, kv.Delete(ctx, "FLAG"))

	_, err := kv.Get(ctx, "flag")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
	assert.ErrorIs(t, kv.Delete(ctx, "flag"), interfaces.ErrKeyNotFound)
}

func TestKVStorageListSortedByKey(t *testing.T) {
	kv := testManager(t).KeyValueStorage()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "beta", "2", ""))
	require.NoError(t, kv.Set(ctx, "alpha", "1", ""))

	pairs, err := kv.List(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "alpha", pairs[0].Key)
	assert.Equal(t, "beta", pairs[1].Key)
}

func TestABTestStorageRoundTrip(t *testing.T) {
	abtest := testManager(t).ABTestStorage()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, abtest.SaveResult(ctx, &interfaces.ABTestResult{
			StrategyID: "acme",
			Variant:    "control",
			JobID:      "job-1",
			Success:    i%2 == 0,
			Timestamp:  time.Now().Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, abtest.SaveResult(ctx, &interfaces.ABTestResult{
		StrategyID: "other",
		Variant:    "control",
		Timestamp:  time.Now(),
	}))

	results, err := abtest.ListResults(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, "acme", r.StrategyID)
	}
}
