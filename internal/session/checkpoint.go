package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DishanH/Pali-sub001/internal/corpus"
)

// CheckpointName is the checkpoint file kept at the root of a corpus
// directory, one per (corpus subtree, session) pair. Besides progress it
// doubles as the exclusive session lock: two sessions must never run over
// the same subtree.
const CheckpointName = "translate.checkpoint.json"

const checkpointVersion = 1

// DefaultLockStale is how old a held lock may be before it is presumed
// abandoned (crashed process) and may be taken over.
const DefaultLockStale = 2 * time.Hour

// State is the session driver state persisted with the checkpoint.
type State string

const (
	StateIdle        State = "idle"
	StateRunning     State = "running"
	StatePausedQuota State = "paused_quota"
	StatePausedError State = "paused_error"
	StatePausedUser  State = "paused_user"
	StateComplete    State = "complete"
)

// Lock records which session currently owns the checkpoint.
type Lock struct {
	SessionID  string    `json:"sessionId"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

// Checkpoint is the persisted progress record of a translation session.
// LastCompletedLocation is a corpus path in extraction order; a resumed
// session skips every unit at or before it.
type Checkpoint struct {
	Version                 int         `json:"version"`
	State                   State       `json:"state"`
	LastCompletedLocation   corpus.Path `json:"lastCompletedLocation"`
	LastCompletedBatchIndex int         `json:"lastCompletedBatchIndex"`
	Timestamp               time.Time   `json:"timestamp"`
	Lock                    *Lock       `json:"lock,omitempty"`

	path string
}

// SessionLockedError means another session holds an unstale lock on the
// checkpoint.
type SessionLockedError struct {
	Path   string
	HeldBy string
	Since  time.Time
}

func (e *SessionLockedError) Error() string {
	return fmt.Sprintf("session %s has held the lock on %s since %s",
		e.HeldBy, e.Path, e.Since.Format(time.RFC3339))
}

// Acquire loads the checkpoint for dir, creating a fresh one if absent, and
// takes the exclusive lock for sessionID. It fails with *SessionLockedError
// when another session's lock is younger than staleAfter (≤ 0 selects
// DefaultLockStale).
func Acquire(dir, sessionID string, staleAfter time.Duration) (*Checkpoint, error) {
	if staleAfter <= 0 {
		staleAfter = DefaultLockStale
	}

	path := filepath.Join(dir, CheckpointName)
	cp := &Checkpoint{
		Version:                 checkpointVersion,
		State:                   StateIdle,
		LastCompletedBatchIndex: -1,
		path:                    path,
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Fresh session, nothing to resume.
	case err != nil:
		return nil, fmt.Errorf("reading checkpoint %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, cp); err != nil {
			return nil, fmt.Errorf("parsing checkpoint %s: %w", path, err)
		}
		cp.path = path
	}

	if cp.Lock != nil && cp.Lock.SessionID != sessionID {
		if time.Since(cp.Lock.AcquiredAt) < staleAfter {
			return nil, &SessionLockedError{
				Path:   path,
				HeldBy: cp.Lock.SessionID,
				Since:  cp.Lock.AcquiredAt,
			}
		}
	}

	cp.Lock = &Lock{SessionID: sessionID, AcquiredAt: time.Now()}
	cp.State = StateRunning
	if err := cp.Save(); err != nil {
		return nil, err
	}
	return cp, nil
}

// Save persists the checkpoint, refreshing its timestamp.
func (c *Checkpoint) Save() error {
	c.Timestamp = time.Now()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("writing checkpoint %s: %w", c.path, err)
	}
	return nil
}

// Advance records a completed unit and persists immediately, so a crash
// between units never repeats or skips work.
func (c *Checkpoint) Advance(loc corpus.Path, batchIndex int) error {
	c.LastCompletedLocation = loc
	c.LastCompletedBatchIndex = batchIndex
	return c.Save()
}

// Release drops the lock and leaves the checkpoint in state so a later
// session can resume from it.
func (c *Checkpoint) Release(state State) error {
	c.State = state
	c.Lock = nil
	return c.Save()
}

// Finalize marks the checkpoint terminal: every unit in the subtree has been
// processed. The record is kept (not deleted) as an audit trail; a new
// session over the same directory starts from it and re-extracts nothing
// unless the tree changed.
func (c *Checkpoint) Finalize() error {
	c.State = StateComplete
	c.LastCompletedLocation = ""
	c.LastCompletedBatchIndex = -1
	c.Lock = nil
	return c.Save()
}
