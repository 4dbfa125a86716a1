package transcriber

import (
	"fmt"
)

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "failure"
}

// FailureKind classifies why a transcription produced no text.
type FailureKind string

const (
	FailureTimeout   FailureKind = "timeout"
	FailureAPI       FailureKind = "api_error"
	FailureMalformed FailureKind = "malformed_response"
	FailureTransport FailureKind = "transport_error"
	FailureCanceled  FailureKind = "canceled"
)

// Failure is the reason attached to an unsuccessful Result.
type Failure struct {
	Kind     FailureKind
	Status   int    // HTTP status for FailureAPI
	Body     string // response body for FailureAPI
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureAPI:
		return fmt.Sprintf("transcription api error: status %d: %s", f.Status, f.Body)
	case FailureTimeout:
		return fmt.Sprintf("transcription timed out after %d attempt(s)", f.Attempts)
	}
	if f.Err != nil {
		return fmt.Sprintf("transcription %s: %v", f.Kind, f.Err)
	}
	return "transcription " + string(f.Kind)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of one Transcribe call. It is never mutated after creation.
type Result struct {
	Outcome  Outcome
	Text     string
	Attempts int
	Failure  *Failure
}

func Succeeded(text string, attempts int) Result {
	return Result{Outcome: OutcomeSuccess, Text: text, Attempts: attempts}
}

func Failed(f *Failure) Result {
	return Result{Outcome: OutcomeFailure, Attempts: f.Attempts, Failure: f}
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.OK() || r.Failure == nil {
		return nil
	}
	return r.Failure
}
