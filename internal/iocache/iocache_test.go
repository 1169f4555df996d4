package iocache

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/mergecheck/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetManager(t *testing.T) {
	t.Helper()
	initOnce = sync.Once{}  // Reset for test
	closeOnce = sync.Once{} // Reset for test
	Manager = &StoreManager{}
}

func TestInitStores(t *testing.T) {
	t.Run("sqlite cache and history", func(t *testing.T) {
		resetManager(t)
		dir := t.TempDir()
		cachePath := filepath.Join(dir, "cache.db")
		historyPath := filepath.Join(dir, "history.db")

		require.NoError(t, InitStores(schema.SQLiteBackend, cachePath, time.Hour, schema.SQLiteBackend, historyPath))
		assert.NotNil(t, Manager.GetResultStore())
		assert.NotNil(t, Manager.GetHistoryStore())
		CloseCaching()
		CloseCaching()

		_, err := os.Stat(cachePath)
		assert.NoError(t, err)
		_, err = os.Stat(historyPath)
		assert.NoError(t, err)
	})

	t.Run("idempotent", func(t *testing.T) {
		resetManager(t)
		path := filepath.Join(t.TempDir(), "cache.db")
		assert.NoError(t, InitStores(schema.SQLiteBackend, path, time.Hour, "", ""))
		assert.NoError(t, InitStores(schema.MySQLBackend, "bogus", time.Hour, "", ""), "only the first call initializes")
		CloseCaching()
	})

	t.Run("disabled", func(t *testing.T) {
		resetManager(t)
		require.NoError(t, InitStores("", "", 0, "", ""))
		assert.Nil(t, Manager.GetResultStore())
		assert.Nil(t, Manager.GetHistoryStore())
		CloseCaching()
	})

	t.Run("history failure", func(t *testing.T) {
		resetManager(t)
		err := InitStores(schema.NoneBackend, "", 0, schema.RedisBackend, "localhost:6379")
		assert.ErrorContains(t, err, "failed to initialize history store")
		assert.Nil(t, Manager.GetResultStore())
	})
}

func TestClearCacheAndHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	require.NoError(t, ClearCache(schema.SQLiteBackend, path, ""))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, ClearCache(schema.SQLiteBackend, path, ""), "missing file is fine")

	assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	assert.NoError(t, ClearCache(schema.NoneBackend, "", ""))
	assert.Error(t, ClearCache("bogus", "", ""))

	assert.NoError(t, ClearHistory(schema.NoneBackend, "", ""))
	assert.Error(t, ClearHistory(schema.RedisBackend, "", ""))
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.Contains(t, buf.String(), "Connected: false")
	assert.NotContains(t, buf.String(), "Total Entries")

	buf.Reset()
	PrintHistoryStatus(&buf, schema.HistoryStatus{
		Backend:            "sqlite",
		Connected:          true,
		TotalEvaluations:   3,
		LastEvaluationID:   "e3",
		LastEvaluationTime: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		VerdictCounts:      map[schema.Verdict]int{schema.VerdictBlocked: 1, schema.VerdictMergeable: 2},
		TableSizes:         map[string]int64{checkResultsTable: 15, evaluationsTable: 3},
	})
	out := buf.String()
	assert.Contains(t, out, "Last Evaluation ID: e3")
	assert.Contains(t, out, "Last Evaluation: 2026-05-01 12:00:00")
	assert.Contains(t, out, "  blocked: 1")
	assert.Contains(t, out, "  mergeable: 2")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(checkResultsTable)), bytes.Index(buf.Bytes(), []byte(evaluationsTable+":")))
}

func TestExecuteHistoryExport(t *testing.T) {
	store := newTestHistoryStore(t)
	var out bytes.Buffer

	assert.ErrorContains(t, ExecuteHistoryExport(store, "", &out), "--output-file is required")
	assert.ErrorContains(t, ExecuteHistoryExport(nil, "x", &out), "history is disabled")
	assert.ErrorContains(t, ExecuteHistoryExport(store, "x", &out), "no evaluation history")

	require.NoError(t, store.RecordEvaluation(sampleEvaluation("e1", 1, schema.VerdictBlocked, time.Now())))
	base := filepath.Join(t.TempDir(), "export")
	require.NoError(t, ExecuteHistoryExport(store, base, &out))

	for _, suffix := range []string{".evaluations.parquet", ".check_results.parquet"} {
		info, err := os.Stat(base + suffix)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Contains(t, out.String(), "Exported 1 evaluations")
	assert.Contains(t, out.String(), "Exported 2 check results")
}

func TestExecuteHistoryExport_StoreErrors(t *testing.T) {
	store := &MockHistoryStore{}
	store.On("GetStatus").Return(schema.HistoryStatus{TotalEvaluations: 1}, nil)
	store.On("GetAllEvaluations").Return(nil, assert.AnError)

	err := ExecuteHistoryExport(store, filepath.Join(t.TempDir(), "x"), &bytes.Buffer{})
	assert.ErrorIs(t, err, assert.AnError)
	store.AssertExpectations(t)
}
