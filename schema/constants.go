package schema

// Custom string types for type safety.
type (
	// CheckStatus represents the outcome of a single check.
	CheckStatus string

	// Verdict represents the reduced answer of a pipeline run.
	Verdict string

	// ViolationState represents the evaluation state of a policy rule.
	ViolationState string

	// Feature represents a licensed or flagged capability.
	Feature string

	// LookupSource names a collaborator read performed while building a snapshot.
	LookupSource string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching.
	DatabaseBackend string
)

// All check statuses supported.
const (
	StatusInactive CheckStatus = "inactive" // check does not apply
	StatusChecking CheckStatus = "checking" // still converging
	StatusSuccess  CheckStatus = "success"
	StatusWarning  CheckStatus = "warning" // surfaced, never blocks
	StatusFailure  CheckStatus = "failure" // blocks
)

// All verdicts supported.
const (
	VerdictMergeable Verdict = "mergeable"
	VerdictBlocked   Verdict = "blocked"
	VerdictPending   Verdict = "pending"
)

// ViolationState values.
const (
	ViolationRunning ViolationState = "running"
	ViolationFailed  ViolationState = "failed"
	ViolationPassed  ViolationState = "passed"
)

// Features consulted by the built-in checks.
const (
	FeatureMergeRequestApprovers         Feature = "merge_request_approvers"
	FeatureSecurityOrchestrationPolicies Feature = "security_orchestration_policies"
)

// LookupSource values.
const (
	SourceApprovals  LookupSource = "approvals"
	SourceViolations LookupSource = "violations"
	SourcePolicies   LookupSource = "policies"
)

// Merge request states as reported by GitLab.
const (
	StateOpened = "opened"
	StateClosed = "closed"
	StateMerged = "merged"
	StateLocked = "locked"
)

// All output modes supported.
const (
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
	CSVOut  OutputMode = "csv"
)

// All cache backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	RedisBackend      DatabaseBackend = "redis"
	NoneBackend       DatabaseBackend = "none"
)

// ValidCheckStatuses lists all valid check statuses.
var ValidCheckStatuses = map[CheckStatus]struct{}{
	StatusInactive: {},
	StatusChecking: {},
	StatusSuccess:  {},
	StatusWarning:  {},
	StatusFailure:  {},
}

// ValidViolationStates lists all valid violation states.
var ValidViolationStates = map[ViolationState]struct{}{
	ViolationRunning: {},
	ViolationFailed:  {},
	ViolationPassed:  {},
}

// ValidFeatures lists the features known to the feature gate.
var ValidFeatures = map[Feature]struct{}{
	FeatureMergeRequestApprovers:         {},
	FeatureSecurityOrchestrationPolicies: {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	JSONOut: {},
	CSVOut:  {},
}

// ValidDatabaseBackends lists all valid cache backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	RedisBackend:      {},
	NoneBackend:       {},
}

// ValidHistoryBackends lists the backends able to hold evaluation history.
var ValidHistoryBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// Valid reports whether the status is one of the known values.
func (s CheckStatus) Valid() bool {
	_, ok := ValidCheckStatuses[s]
	return ok
}

// Valid reports whether the state is one of the known values.
func (s ViolationState) Valid() bool {
	_, ok := ValidViolationStates[s]
	return ok
}
