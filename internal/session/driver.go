// Package session implements the translation session driver: a resumable
// state machine that walks the missing-unit extraction in stable order,
// calls the translation provider one unit-language at a time, sanitizes and
// merges each result, and persists a checkpoint after every completed unit.
//
// The driver is strictly sequential. The stable-order guarantee — a resumed
// session processes units in exactly the extraction order of the original
// run — is what makes "resume from chapter X, section N" well-defined, and
// it only holds if nothing races the tree.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/DishanH/Pali-sub001/internal/batch"
	"github.com/DishanH/Pali-sub001/internal/corpus"
	"github.com/DishanH/Pali-sub001/internal/extract"
	"github.com/DishanH/Pali-sub001/internal/merge"
	"github.com/DishanH/Pali-sub001/internal/sanitize"
	"github.com/DishanH/Pali-sub001/internal/translator"
)

// Memory is the translation-memory capability the driver consults before
// calling the provider and writes back after a successful merge. Satisfied
// by *store.Store; nil disables caching.
type Memory interface {
	GetCachedTranslation(ctx context.Context, sourceText, targetLang string) (string, bool, error)
	SaveToMemory(ctx context.Context, sourceText, targetLang, finalText, provider string) error
}

// Config tunes one session.
type Config struct {
	Required     []corpus.Lang // target languages a unit must have
	SourceLang   string        // language code sent to the provider
	MaxBatchSize int           // units per batch (checkpoint batch index)
	MaxAttempts  int           // provider attempts per call, including the first
	RetryDelay   time.Duration // initial backoff, doubled per retry
	Pacing       time.Duration // mandatory delay between provider calls
	LockStale    time.Duration // lock takeover threshold
	Force        bool          // overwrite conflicting translations
	Glossary     map[string]string
}

func (c *Config) withDefaults() Config {
	out := *c
	if len(out.Required) == 0 {
		out.Required = corpus.DefaultTargets
	}
	if out.SourceLang == "" {
		out.SourceLang = "pi"
	}
	if out.MaxBatchSize <= 0 {
		out.MaxBatchSize = batch.DefaultMaxSize
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 3
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = 2 * time.Second
	}
	return out
}

// ReviewItem is a unit-language whose provider output failed validation.
// The run continues; the item is surfaced for manual review.
type ReviewItem struct {
	Location corpus.Path
	Lang     corpus.Lang
	Raw      string
	Reason   string
}

// Report summarises a finished or paused session.
type Report struct {
	SessionID  string
	State      State
	Translated int // unit-language pairs merged this run
	FromCache  int // of which served by translation memory
	Skipped    int // units skipped as already completed (checkpoint)
	Flagged    []ReviewItem
	Conflicts  []string
}

// Driver runs one session over one corpus subtree.
type Driver struct {
	tree     *corpus.Tree
	provider translator.Provider
	san      *sanitize.Sanitizer
	memory   Memory
	cfg      Config
	breaker  *gobreaker.CircuitBreaker
}

// New assembles a driver. memory may be nil.
func New(tree *corpus.Tree, provider translator.Provider, san *sanitize.Sanitizer, memory Memory, cfg Config) *Driver {
	return &Driver{
		tree:     tree,
		provider: provider,
		san:      san,
		memory:   memory,
		cfg:      cfg.withDefaults(),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: provider.Name(),
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Run executes the session until the missing-unit set is exhausted, the
// provider quota runs out, an unrecoverable error occurs, or ctx is
// cancelled. The in-flight unit is always completed and checkpointed before
// a pause, so a resumed session never repeats a merged unit.
//
// The returned report is non-nil whenever a session actually started; err
// carries the pause cause (quota, fatal) when the session did not complete.
func (d *Driver) Run(ctx context.Context, checkpointDir string) (*Report, error) {
	sessionID := uuid.New().String()

	cp, err := Acquire(checkpointDir, sessionID, d.cfg.LockStale)
	if err != nil {
		return nil, err
	}

	report := &Report{SessionID: sessionID, State: StateRunning}

	if err := d.tree.Validate(); err != nil {
		_ = cp.Release(StatePausedError)
		report.State = StatePausedError
		return report, err
	}

	units, err := extract.Extract(d.tree, d.cfg.Required)
	if err != nil {
		_ = cp.Release(StatePausedError)
		report.State = StatePausedError
		return report, err
	}

	start := d.resumeIndex(units, cp)
	report.Skipped = start

	for i := start; i < len(units); i++ {
		if ctx.Err() != nil {
			_ = cp.Release(StatePausedUser)
			report.State = StatePausedUser
			return report, nil
		}

		unit := units[i]
		if err := d.processUnit(ctx, unit, report); err != nil {
			if ferr := d.tree.Flush(); ferr != nil {
				log.Printf("[WARN] flushing tree during pause: %v", ferr)
			}
			// A cancelled context is a requested stop, not a failure; the
			// languages merged so far are already flushed.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				_ = cp.Release(StatePausedUser)
				report.State = StatePausedUser
				return report, nil
			}
			state := StatePausedError
			if translator.IsQuota(err) {
				state = StatePausedQuota
			}
			_ = cp.Release(state)
			report.State = state
			return report, err
		}

		if err := d.tree.Flush(); err != nil {
			_ = cp.Release(StatePausedError)
			report.State = StatePausedError
			return report, fmt.Errorf("persisting tree: %w", err)
		}
		if err := cp.Advance(unit.Location(), batch.IndexFor(i, d.cfg.MaxBatchSize)); err != nil {
			_ = cp.Release(StatePausedError)
			report.State = StatePausedError
			return report, err
		}
	}

	if err := cp.Finalize(); err != nil {
		return report, err
	}
	report.State = StateComplete
	return report, nil
}

// processUnit translates every missing language of one unit. Validation
// failures and merge conflicts are recorded and skipped — a single bad unit
// must never stall the remaining thousands. Quota and unrecoverable errors
// abort the unit's remaining languages and bubble up; the checkpoint then
// still points at the previous unit, so the exact same unit is retried on
// resume.
func (d *Driver) processUnit(ctx context.Context, unit *extract.Unit, report *Report) error {
	for _, lang := range unit.Missing {
		if d.memory != nil {
			cached, found, err := d.memory.GetCachedTranslation(ctx, unit.SourceText, string(lang))
			if err != nil {
				log.Printf("[WARN] translation memory lookup: %v", err)
			}
			if found {
				if d.applyMerge(unit, lang, cached, report) {
					report.Translated++
					report.FromCache++
				}
				continue
			}
		}

		raw, err := d.translateWithRetry(ctx, unit.SourceText, lang)
		if err != nil {
			return err
		}

		clean, err := d.san.Sanitize(raw, unit.SourceText, lang)
		if err != nil {
			if errors.Is(err, sanitize.ErrValidation) {
				report.Flagged = append(report.Flagged, ReviewItem{
					Location: unit.Location(),
					Lang:     lang,
					Raw:      raw,
					Reason:   err.Error(),
				})
				continue
			}
			return err
		}

		if !d.applyMerge(unit, lang, clean, report) {
			continue
		}
		report.Translated++

		if d.memory != nil {
			if err := d.memory.SaveToMemory(ctx, unit.SourceText, string(lang), clean, d.provider.Name()); err != nil {
				log.Printf("[WARN] translation memory save: %v", err)
			}
		}
	}
	return nil
}

// applyMerge merges one translation, downgrading overwrite conflicts to a
// recorded, non-fatal outcome. It reports whether the merge was applied.
func (d *Driver) applyMerge(unit *extract.Unit, lang corpus.Lang, text string, report *Report) bool {
	err := merge.Merge(d.tree, unit, lang, text, d.cfg.Force)
	if err == nil {
		return true
	}
	var conflict *merge.OverwriteConflictError
	if errors.As(err, &conflict) {
		report.Conflicts = append(report.Conflicts, conflict.Error())
		return false
	}
	log.Printf("[WARN] merge at %s failed: %v", unit.Location(), err)
	return false
}

// translateWithRetry calls the provider through the circuit breaker with
// bounded exponential backoff on transient failures. Quota signals return
// immediately without consuming retries. The configured pacing delay runs
// before each provider call, never after a success: a result already in hand
// must survive a cancellation that arrives while pacing.
func (d *Driver) translateWithRetry(ctx context.Context, text string, lang corpus.Lang) (string, error) {
	req := translator.Request{
		Text:       text,
		SourceLang: d.cfg.SourceLang,
		TargetLang: string(lang),
		Glossary:   d.cfg.Glossary,
	}

	delay := d.cfg.RetryDelay
	var lastErr error

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		if err := d.pace(ctx); err != nil {
			return "", err
		}

		out, err := d.breaker.Execute(func() (any, error) {
			return d.provider.Translate(ctx, req)
		})
		if err == nil {
			return out.(*translator.Result).TranslatedText, nil
		}
		lastErr = err

		switch {
		case translator.IsQuota(err):
			return "", err
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return "", fmt.Errorf("provider circuit open: %w", err)
		case translator.IsTransient(err) && attempt < d.cfg.MaxAttempts:
			log.Printf("[WARN] provider attempt %d/%d failed, retrying in %s: %v",
				attempt, d.cfg.MaxAttempts, delay, err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
		case translator.IsTransient(err):
			// Retries exhausted.
		default:
			return "", err
		}
	}
	return "", fmt.Errorf("provider failed after %d attempts: %w", d.cfg.MaxAttempts, lastErr)
}

// pace sleeps the mandatory inter-call delay, honouring cancellation.
func (d *Driver) pace(ctx context.Context) error {
	if d.cfg.Pacing <= 0 {
		return nil
	}
	select {
	case <-time.After(d.cfg.Pacing):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resumeIndex returns the extraction index to start from, skipping every
// unit whose representative location sits at or before the checkpoint's
// last completed location in tree order.
func (d *Driver) resumeIndex(units []*extract.Unit, cp *Checkpoint) int {
	if cp.LastCompletedLocation == "" {
		return 0
	}

	order := make(map[corpus.Path]int)
	pos := 0
	_ = d.tree.Walk(func(p corpus.Path, _ *corpus.Text) error {
		order[p] = pos
		pos++
		return nil
	})

	cpPos, ok := order[cp.LastCompletedLocation]
	if !ok {
		log.Printf("[WARN] checkpoint location %s no longer in tree, restarting from the beginning",
			cp.LastCompletedLocation)
		return 0
	}

	for i, u := range units {
		if order[u.Location()] > cpPos {
			return i
		}
	}
	return len(units)
}
