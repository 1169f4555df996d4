package iocache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
)

// Table names for evaluation history.
const (
	evaluationsTable  = "mergecheck_evaluations"
	checkResultsTable = "mergecheck_check_results"
)

// HistoryStoreImpl implements the HistoryStore interface on a SQL database.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	switch backend {
	case schema.NoneBackend:
		// Return a no-op store for disabled tracking
		return &HistoryStoreImpl{backend: backend}, nil
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend:
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", backend)
	}

	db, err := openSQL(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// createHistoryTables creates the history tables.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{evaluationsTable, getCreateEvaluationsQuery(backend)},
		{checkResultsTable, getCreateCheckResultsQuery(backend)},
	}

	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// getCreateEvaluationsQuery returns the CREATE TABLE query for mergecheck_evaluations.
// Timestamps are stored as Unix milliseconds on every backend.
func getCreateEvaluationsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(evaluationsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				evaluation_id VARCHAR(64) PRIMARY KEY,
				project_id VARCHAR(255) NOT NULL,
				merge_request_iid BIGINT NOT NULL,
				verdict VARCHAR(16) NOT NULL,
				fingerprint VARCHAR(64) NOT NULL,
				evaluated_at BIGINT NOT NULL,
				duration_ms BIGINT NOT NULL,
				reasons TEXT
			);
		`, quotedTableName)

	default: // SQLite and PostgreSQL
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				evaluation_id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				merge_request_iid BIGINT NOT NULL,
				verdict TEXT NOT NULL,
				fingerprint TEXT NOT NULL,
				evaluated_at BIGINT NOT NULL,
				duration_ms BIGINT NOT NULL,
				reasons TEXT
			);
		`, quotedTableName)
	}
}

// getCreateCheckResultsQuery returns the CREATE TABLE query for mergecheck_check_results.
func getCreateCheckResultsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(checkResultsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				evaluation_id VARCHAR(64) NOT NULL,
				check_id VARCHAR(128) NOT NULL,
				position INT NOT NULL,
				status VARCHAR(16) NOT NULL,
				reason TEXT,
				error_text TEXT,
				cached INT NOT NULL,
				PRIMARY KEY (evaluation_id, check_id)
			);
		`, quotedTableName)

	default: // SQLite and PostgreSQL
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				evaluation_id TEXT NOT NULL,
				check_id TEXT NOT NULL,
				position INTEGER NOT NULL,
				status TEXT NOT NULL,
				reason TEXT,
				error_text TEXT,
				cached INTEGER NOT NULL,
				PRIMARY KEY (evaluation_id, check_id)
			);
		`, quotedTableName)
	}
}

// placeholders returns a comma-separated list of n parameter placeholders.
func placeholders(backend schema.DatabaseBackend, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = placeholder(backend, i+1)
	}
	return strings.Join(parts, ", ")
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// RecordEvaluation stores the evaluation and its per-check results in one transaction.
func (hs *HistoryStoreImpl) RecordEvaluation(eval *schema.Evaluation) error {
	if hs.db == nil {
		return nil
	}
	if eval == nil {
		return errors.New("cannot record a nil evaluation")
	}

	var reasons *string
	if len(eval.Reasons) > 0 {
		encoded, err := json.Marshal(eval.Reasons)
		if err != nil {
			return fmt.Errorf("failed to marshal reasons: %w", err)
		}
		reasons = nullableString(string(encoded))
	}

	tx, err := hs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	evalQuery := fmt.Sprintf(`INSERT INTO %s (evaluation_id, project_id, merge_request_iid, verdict, fingerprint, evaluated_at, duration_ms, reasons)
		VALUES (%s)`, quoteTableName(evaluationsTable, hs.backend), placeholders(hs.backend, 8))
	if _, err := tx.Exec(evalQuery, eval.ID, eval.Ref.ProjectID, eval.Ref.IID, string(eval.Verdict),
		eval.Fingerprint, eval.EvaluatedAt.UnixMilli(), eval.DurationMs, reasons); err != nil {
		return fmt.Errorf("failed to insert evaluation %s: %w", eval.ID, err)
	}

	resultQuery := fmt.Sprintf(`INSERT INTO %s (evaluation_id, check_id, position, status, reason, error_text, cached)
		VALUES (%s)`, quoteTableName(checkResultsTable, hs.backend), placeholders(hs.backend, 7))
	for i, result := range eval.Results {
		cached := 0
		if slices.Contains(eval.CacheHits, result.CheckID) {
			cached = 1
		}
		if _, err := tx.Exec(resultQuery, eval.ID, result.CheckID, i, string(result.Status),
			nullableString(result.Reason), nullableString(result.Error), cached); err != nil {
			return fmt.Errorf("failed to insert result %s for evaluation %s: %w", result.CheckID, eval.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit evaluation %s: %w", eval.ID, err)
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:       string(hs.backend),
		Connected:     hs.db != nil,
		VerdictCounts: make(map[schema.Verdict]int),
		TableSizes:    make(map[string]int64),
	}
	if hs.db == nil {
		return status, nil
	}

	evaluations := quoteTableName(evaluationsTable, hs.backend)
	row := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", evaluations))
	if err := row.Scan(&status.TotalEvaluations); err != nil {
		return status, fmt.Errorf("failed to get total evaluations: %w", err)
	}

	if status.TotalEvaluations > 0 {
		var lastMs, oldestMs int64
		row = hs.db.QueryRow(fmt.Sprintf("SELECT evaluation_id, evaluated_at FROM %s ORDER BY evaluated_at DESC LIMIT 1", evaluations))
		if err := row.Scan(&status.LastEvaluationID, &lastMs); err != nil {
			return status, fmt.Errorf("failed to get last evaluation: %w", err)
		}
		row = hs.db.QueryRow(fmt.Sprintf("SELECT MIN(evaluated_at) FROM %s", evaluations))
		if err := row.Scan(&oldestMs); err != nil {
			return status, fmt.Errorf("failed to get oldest evaluation time: %w", err)
		}
		status.LastEvaluationTime = time.UnixMilli(lastMs).UTC()
		status.OldestEvalTime = time.UnixMilli(oldestMs).UTC()

		if err := hs.countVerdicts(status.VerdictCounts); err != nil {
			return status, err
		}
	}

	for _, table := range []string{evaluationsTable, checkResultsTable} {
		var count int64
		row = hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// countVerdicts fills counts per verdict. Rows are closed before returning
// because SQLite runs on a single connection.
func (hs *HistoryStoreImpl) countVerdicts(counts map[schema.Verdict]int) error {
	rows, err := hs.db.Query(fmt.Sprintf("SELECT verdict, COUNT(*) FROM %s GROUP BY verdict",
		quoteTableName(evaluationsTable, hs.backend)))
	if err != nil {
		return fmt.Errorf("failed to count verdicts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var verdict string
		var count int
		if err := rows.Scan(&verdict, &count); err != nil {
			return fmt.Errorf("failed to scan verdict count: %w", err)
		}
		counts[schema.Verdict(verdict)] = count
	}
	return rows.Err()
}

// GetAllEvaluations retrieves all evaluations ordered by evaluation time.
func (hs *HistoryStoreImpl) GetAllEvaluations() ([]schema.EvaluationRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT evaluation_id, project_id, merge_request_iid, verdict, fingerprint, evaluated_at, duration_ms, reasons
		FROM %s ORDER BY evaluated_at, evaluation_id`, quoteTableName(evaluationsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.EvaluationRecord
	for rows.Next() {
		var record schema.EvaluationRecord
		var evaluatedMs int64
		if err := rows.Scan(&record.EvaluationID, &record.ProjectID, &record.MergeRequestIID, &record.Verdict,
			&record.Fingerprint, &evaluatedMs, &record.DurationMs, &record.Reasons); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		record.EvaluatedAt = time.UnixMilli(evaluatedMs).UTC()
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluations: %w", err)
	}
	return results, nil
}

// GetAllCheckResults retrieves all check results ordered by evaluation and position.
func (hs *HistoryStoreImpl) GetAllCheckResults() ([]schema.CheckResultRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT evaluation_id, check_id, position, status, reason, error_text, cached
		FROM %s ORDER BY evaluation_id, position`, quoteTableName(checkResultsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query check results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.CheckResultRecord
	for rows.Next() {
		var record schema.CheckResultRecord
		var cached int
		if err := rows.Scan(&record.EvaluationID, &record.CheckID, &record.Position, &record.Status,
			&record.Reason, &record.ErrorText, &cached); err != nil {
			return nil, fmt.Errorf("failed to scan check result: %w", err)
		}
		record.Cached = cached != 0
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check results: %w", err)
	}
	return results, nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}
