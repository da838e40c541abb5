// Package fault defines the typed error kinds the pipeline stages report.
//
// Every stage failure is expressed as a *fault.Error carrying a machine-readable
// Kind; the switchboard orchestrator matches on kinds to decide whether to abort,
// degrade, or continue. Kinds are stable strings and appear verbatim in client
// responses, so they must never carry internal detail.
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies a failure class. Kinds are part of the response contract.
type Kind string

// Pre-parse validation kinds.
const (
	FileTooSmall         Kind = "file_too_small"
	FileTooLarge         Kind = "file_too_large"
	BadType              Kind = "bad_type"
	TooManyFiles         Kind = "too_many_files"
	DuplicateFile        Kind = "duplicate_file"
	TriMergeWithMultiple Kind = "tri_merge_with_multi_upload"
)

// Extraction kinds.
const (
	ExtractionUnconfigured Kind = "extraction_unconfigured"
	LLMTransport           Kind = "llm_transport"
	LLMRefusal             Kind = "llm_refusal"
	JSONParse              Kind = "json_parse"
	NoOutput               Kind = "no_output"
)

// Ingestion kinds.
const (
	StaleReport          Kind = "stale_report"
	MaxBureausReached    Kind = "max_bureaus_reached"
	TriMergeDetectFailed Kind = "tri_merge_detection_failed"
)

// Identity gate kinds.
const (
	NameMismatch Kind = "name_mismatch"
	ReportTooOld Kind = "report_too_old"
)

// Downstream kinds.
const (
	UnderwriteCrash Kind = "underwrite_crash"
	SuggestionCrash Kind = "suggestion_crash"
	CRMUnreachable  Kind = "crm_unreachable"
)

// Error is a stage failure with a kind and an optional offending file name.
type Error struct {
	Kind Kind
	File string
	err  error
}

// New creates a fault with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, err: err}
}

// WithFile returns a copy of the fault naming the offending file.
func (e *Error) WithFile(name string) *Error {
	return &Error{Kind: e.Kind, File: name, err: e.err}
}

func (e *Error) Error() string {
	if e.err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// KindOf extracts the kind from an error chain. Returns empty for non-fault errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is lets errors.Is match two faults by kind.
func (e *Error) Is(target error) bool {
	var fe *Error
	if errors.As(target, &fe) {
		return e.Kind == fe.Kind
	}
	return false
}
