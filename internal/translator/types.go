// Package translator defines the translation provider capability used by the
// session driver, plus the error taxonomy the driver routes on: transient
// failures are retried with backoff, quota failures pause the session.
package translator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Request asks for one unit of source text in one target language. Glossary
// terms, when present, are injected into LLM prompts so recurring Pali terms
// translate consistently.
type Request struct {
	Text       string
	SourceLang string
	TargetLang string
	Glossary   map[string]string
}

// Result is a successful provider response.
type Result struct {
	ProviderName   string
	TranslatedText string
	Latency        time.Duration
}

// Provider is the capability interface the session driver is built against.
// Implementations must be safe for sequential reuse across a whole session.
type Provider interface {
	Name() string
	Translate(ctx context.Context, req Request) (*Result, error)
	IsAvailable(ctx context.Context) error
}

// TransientError marks a failure worth retrying: network trouble, timeouts,
// provider 5xx responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient provider failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// QuotaError marks provider-reported quota or rate-limit exhaustion. The
// session pauses immediately, preserving the checkpoint, instead of burning
// retries.
type QuotaError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *QuotaError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider quota exhausted (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("provider quota exhausted: %v", e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }

// IsQuota reports whether err is (or wraps) a QuotaError.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// classifyStatus maps an HTTP status to the taxonomy. 429 is quota; 5xx and
// 408 are transient; anything else is returned as-is by the caller.
func classifyStatus(status int, err error) error {
	switch {
	case status == 429:
		return &QuotaError{Err: err}
	case status >= 500 || status == 408:
		return &TransientError{Err: err}
	default:
		return err
	}
}

// languageName expands the target codes used by the corpus for prompt text.
func languageName(code string) string {
	switch code {
	case "en":
		return "English"
	case "si":
		return "Sinhala"
	case "pli", "pi":
		return "Pali"
	default:
		return code
	}
}
