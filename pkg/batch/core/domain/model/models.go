package model

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/tigerroll/setwave/pkg/batch/core/compose"
	"github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	"github.com/tigerroll/setwave/pkg/batch/support/util/serialization"

	"github.com/google/uuid"
)

const moduleName = "model"

// RunState represents the lifecycle state of a run.
type RunState string

const (
	RunStateNotStarted RunState = "NOT_STARTED"
	RunStateRunning    RunState = "RUNNING"
	RunStateFinished   RunState = "FINISHED"
)

// String returns the string representation of the RunState.
func (s RunState) String() string {
	return string(s)
}

// IsFinished checks if the RunState represents the terminal state.
func (s RunState) IsFinished() bool {
	return s == RunStateFinished
}

// isValidRunTransition checks if the state transition for a Run is valid.
func isValidRunTransition(current, next RunState) bool {
	switch current {
	case RunStateNotStarted:
		// NOT_STARTED can only transition to RUNNING.
		return next == RunStateRunning
	case RunStateRunning:
		// RUNNING can only transition to FINISHED.
		return next == RunStateFinished
	case RunStateFinished:
		return false // Cannot transition out of the terminal state.
	default:
		return false
	}
}

// ErrorLog holds the failure entries recorded over the life of a Run.
// Entries are append-only and preserve insertion order; no entry is ever
// removed or reordered.
type ErrorLog []string

// Value implements the `driver.Valuer` interface, converting the ErrorLog to a JSON string.
func (el ErrorLog) Value() (driver.Value, error) {
	data, err := serialization.MarshalFailures(el)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to an ErrorLog.
func (el *ErrorLog) Scan(value interface{}) error {
	if value == nil {
		*el = make(ErrorLog, 0)
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte: // Handle byte slice from database
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for ErrorLog: %T", value)
	}

	if len(b) == 0 {
		*el = make(ErrorLog, 0)
		return nil
	}

	var msgs []string
	if err := serialization.UnmarshalFailures(b, &msgs); err != nil {
		return fmt.Errorf("failed to unmarshal ErrorLog JSON: %w", err)
	}
	*el = msgs
	return nil
}

// Record appends one entry pairing a chunk descriptor with its failure detail.
func (el *ErrorLog) Record(chunkDescriptor, detail string) {
	*el = append(*el, fmt.Sprintf("%s: %s", chunkDescriptor, detail))
}

// IsEmpty reports whether no failures have been recorded.
func (el ErrorLog) IsEmpty() bool {
	return len(el) == 0
}

// Len returns the number of recorded failure entries.
func (el ErrorLog) Len() int {
	return len(el)
}

// RenderAll joins all entries with the given separator, in insertion order.
func (el ErrorLog) RenderAll(separator string) string {
	return strings.Join(el, separator)
}

// Entries returns a copy of the recorded entries.
func (el ErrorLog) Entries() []string {
	out := make([]string, len(el))
	copy(out, el)
	return out
}

// Run is the single long-lived instance driving one record set through the
// remote execution service. A Run is created once before chunks arrive,
// appends to its error log once per failed chunk, and is read once at
// completion to build the report.
//
// A Run is not safe for concurrent use. The host must guarantee that chunk
// processing for one Run never runs concurrently with itself or with the
// start and finish operations; the error log is unsynchronized on purpose.
type Run struct {
	ID                 string
	Name               string
	Query              string
	Template           string
	NotifyOnCompletion bool
	State              RunState
	Errors             ErrorLog
	ChunksProcessed    int
	StartTime          *time.Time
	EndTime            *time.Time
	CreateTime         time.Time
	LastUpdated        time.Time
}

// NewRun creates a new Run after validating its construction inputs. The
// query and the template are checked for non-blankness only, never parsed.
func NewRun(name, query, template string, notifyOnCompletion bool) (*Run, error) {
	if strings.TrimSpace(name) == "" {
		return nil, exception.NewBatchErrorf(moduleName, "run name must not be blank")
	}
	if strings.TrimSpace(query) == "" {
		return nil, exception.NewBatchErrorf(moduleName, "record source query must not be blank")
	}
	if strings.TrimSpace(template) == "" {
		return nil, exception.NewBatchErrorf(moduleName, "script template must not be blank")
	}

	now := time.Now()
	return &Run{
		ID:                 NewID(),
		Name:               name,
		Query:              query,
		Template:           template,
		NotifyOnCompletion: notifyOnCompletion,
		State:              RunStateNotStarted,
		Errors:             make(ErrorLog, 0),
		CreateTime:         now,
		LastUpdated:        now,
	}, nil
}

// TransitionTo safely transitions the state of the Run. An invalid transition
// is API misuse by the host and surfaces as a LifecycleViolation error.
func (r *Run) TransitionTo(next RunState) error {
	if !isValidRunTransition(r.State, next) {
		return exception.NewLifecycleViolationError(moduleName,
			fmt.Sprintf("Run (ID: %s): invalid state transition: %s -> %s", r.ID, r.State, next))
	}
	r.State = next
	r.LastUpdated = time.Now()
	return nil
}

// MarkAsStarted transitions the Run to RUNNING and stamps the start time.
func (r *Run) MarkAsStarted() error {
	if err := r.TransitionTo(RunStateRunning); err != nil {
		return err
	}
	now := time.Now()
	r.StartTime = &now
	r.LastUpdated = now
	return nil
}

// MarkAsFinished transitions the Run to FINISHED and stamps the end time.
// Finishing twice is a LifecycleViolation; the run finalizes exactly once.
func (r *Run) MarkAsFinished() error {
	if err := r.TransitionTo(RunStateFinished); err != nil {
		return err
	}
	now := time.Now()
	r.EndTime = &now
	r.LastUpdated = now
	return nil
}

// RecordFailure appends one failure entry to the Run's error log.
func (r *Run) RecordFailure(chunkDescriptor, detail string) {
	r.Errors.Record(chunkDescriptor, detail)
	r.LastUpdated = time.Now()
}

// MarkChunkProcessed increments the count of chunks the Run has processed.
func (r *Run) MarkChunkProcessed() {
	r.ChunksProcessed++
	r.LastUpdated = time.Now()
}

// FailureCount returns the number of recorded chunk failures.
func (r *Run) FailureCount() int {
	return r.Errors.Len()
}

// DebugString returns a compact representation of the Run without the full
// template body or error log.
func (r *Run) DebugString() string {
	return fmt.Sprintf("&{ID:%s Name:%s State:%s ChunksProcessed:%d Failures:%d Query:%q TemplateDigest:%s}",
		r.ID, r.Name, r.State, r.ChunksProcessed, r.FailureCount(), r.Query, TemplateDigest(r.Template))
}

// Chunk is an ordered, non-empty sequence of opaque record identifiers
// delivered by the host for a single invocation. Chunks are transient and
// are not owned by the Run.
type Chunk struct {
	Sequence int
	IDs      []string
}

// NewChunk creates a Chunk carrying the given identifiers.
func NewChunk(sequence int, ids []string) Chunk {
	return Chunk{Sequence: sequence, IDs: ids}
}

// Descriptor renders the chunk's identifiers in the same literal form the
// composed script binds them with, so error log entries and scripts agree on
// how a chunk is named.
func (c Chunk) Descriptor() string {
	return compose.RenderIDList(c.IDs)
}

// Size returns the number of identifiers in the chunk.
func (c Chunk) Size() int {
	return len(c.IDs)
}

// Validate checks that the chunk carries at least one identifier and that no
// identifier is blank. An invalid chunk is a host error, not a data
// condition, and must fail loudly instead of being skipped.
func (c Chunk) Validate() error {
	if len(c.IDs) == 0 {
		return exception.NewInvalidChunkError(moduleName,
			fmt.Sprintf("chunk %d carries no record identifiers", c.Sequence))
	}
	for i, id := range c.IDs {
		if strings.TrimSpace(id) == "" {
			return exception.NewInvalidChunkError(moduleName,
				fmt.Sprintf("chunk %d carries a blank record identifier at position %d", c.Sequence, i))
		}
	}
	return nil
}

// FailureKind classifies why a remote execution attempt failed.
type FailureKind string

const (
	// FailureKindTransport marks connection, send, or timeout failures raised
	// before any HTTP response was read.
	FailureKindTransport FailureKind = "TRANSPORT_FAILURE"
	// FailureKindServerStatus marks non-success HTTP statuses from the remote
	// endpoint.
	FailureKindServerStatus FailureKind = "SERVER_STATUS_FAILURE"
	// FailureKindProtocol marks responses that could not be parsed or that
	// lack a node the wire contract requires.
	FailureKindProtocol FailureKind = "PROTOCOL_VIOLATION"
	// FailureKindRemoteRuntime marks scripts that compiled remotely but raised
	// an exception while executing.
	FailureKindRemoteRuntime FailureKind = "REMOTE_RUNTIME_FAILURE"
	// FailureKindRemoteCompile marks scripts the remote service rejected at
	// compile time.
	FailureKindRemoteCompile FailureKind = "REMOTE_COMPILE_FAILURE"
)

// String returns the string representation of the FailureKind.
func (k FailureKind) String() string {
	return string(k)
}

// RemoteOutcome is the result of one remote execution attempt. Exactly one of
// Succeeded or a populated FailureDetail holds, never both and never neither.
// Failed outcomes are expected, recoverable-at-the-run-level conditions; they
// are recorded, not raised.
type RemoteOutcome struct {
	Succeeded     bool
	FailureKind   FailureKind
	FailureDetail string
}

// NewSuccessOutcome creates the outcome for a successfully executed script.
func NewSuccessOutcome() RemoteOutcome {
	return RemoteOutcome{Succeeded: true}
}

// NewFailureOutcome creates a failed outcome carrying its classification and
// human-readable detail. A blank detail is normalized so that a failed
// outcome is never silent.
func NewFailureOutcome(kind FailureKind, detail string) RemoteOutcome {
	if strings.TrimSpace(detail) == "" {
		detail = "remote execution failed"
	}
	return RemoteOutcome{FailureKind: kind, FailureDetail: detail}
}

// IsFailure reports whether the attempt failed.
func (o RemoteOutcome) IsFailure() bool {
	return !o.Succeeded
}

// CompletionReport is the end-of-run summary. It is derived from the Run at
// finalize time and never stored.
type CompletionReport struct {
	RunName      string
	Subject      string
	Body         string
	FailureCount int
}

// BuildCompletionReport builds the report from the Run's accumulated state.
// The subject always states the error count; zero errors is an explicit
// success message, not silence. The body echoes the query and the template
// and includes the full error log, never truncated.
func BuildCompletionReport(r *Run) CompletionReport {
	count := r.FailureCount()

	var subject string
	if count == 0 {
		subject = fmt.Sprintf("run %q finished: no errors", r.Name)
	} else {
		subject = fmt.Sprintf("run %q finished: %d error(s)", r.Name, count)
	}

	rendered := "none"
	if !r.Errors.IsEmpty() {
		rendered = r.Errors.RenderAll("\n")
	}
	body := fmt.Sprintf("Query:\n%s\n\nTemplate:\n%s\n\nErrors (%d):\n%s",
		r.Query, r.Template, count, rendered)

	return CompletionReport{
		RunName:      r.Name,
		Subject:      subject,
		Body:         body,
		FailureCount: count,
	}
}

// TemplateDigest returns the hex-encoded SHA-256 digest of a script template.
// The journal stores the digest rather than the template itself so a past run
// can be matched to its template without persisting arbitrarily large script
// text.
func TemplateDigest(template string) string {
	sum := sha256.Sum256([]byte(template))
	return hex.EncodeToString(sum[:])
}

// RunExecution is the persisted journal record for one Run. It mirrors the
// Run's reportable state so past runs can be inspected; journal writes are
// best-effort and never abort the run they describe.
type RunExecution struct {
	ID             string
	RunID          string
	RunName        string
	Query          string
	TemplateDigest string
	State          RunState
	StartTime      time.Time
	EndTime        *time.Time
	ChunkCount     int
	FailureCount   int
	Failures       ErrorLog
	CreateTime     time.Time
	LastUpdated    time.Time
	Version        int
}

// NewRunExecution creates the journal record for a freshly started Run.
func NewRunExecution(r *Run) *RunExecution {
	now := time.Now()
	return &RunExecution{
		ID:             NewID(),
		RunID:          r.ID,
		RunName:        r.Name,
		Query:          r.Query,
		TemplateDigest: TemplateDigest(r.Template),
		State:          r.State,
		StartTime:      now,
		Failures:       make(ErrorLog, 0),
		CreateTime:     now,
		LastUpdated:    now,
		Version:        0,
	}
}

// SyncFromRun copies the Run's current reportable state into the journal
// record.
func (re *RunExecution) SyncFromRun(r *Run) {
	re.State = r.State
	re.ChunkCount = r.ChunksProcessed
	re.FailureCount = r.FailureCount()
	re.Failures = r.Errors.Entries()
	re.EndTime = r.EndTime
	re.LastUpdated = time.Now()
}

// ChunkExecution is the persisted journal record for a single chunk attempt.
type ChunkExecution struct {
	ID             string
	RunExecutionID string
	Sequence       int
	Descriptor     string
	RecordCount    int
	Succeeded      bool
	FailureKind    FailureKind
	FailureDetail  string
	SubmittedAt    time.Time
	CompletedAt    *time.Time
	LastUpdated    time.Time
	Version        int
}

// NewChunkExecution creates the journal record for one chunk submission.
func NewChunkExecution(runExecutionID string, chunk Chunk) *ChunkExecution {
	now := time.Now()
	return &ChunkExecution{
		ID:             NewID(),
		RunExecutionID: runExecutionID,
		Sequence:       chunk.Sequence,
		Descriptor:     chunk.Descriptor(),
		RecordCount:    chunk.Size(),
		SubmittedAt:    now,
		LastUpdated:    now,
		Version:        0,
	}
}

// RecordOutcome stamps the chunk's remote outcome onto the journal record.
func (ce *ChunkExecution) RecordOutcome(outcome RemoteOutcome) {
	now := time.Now()
	ce.Succeeded = outcome.Succeeded
	ce.FailureKind = outcome.FailureKind
	ce.FailureDetail = outcome.FailureDetail
	ce.CompletedAt = &now
	ce.LastUpdated = now
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}
