package blast

import (
	"errors"
	"fmt"
)

type Op string

const (
	OpFetchSequence Op = "fetch_sequence"
	OpSubmit        Op = "submit"
	OpFetchResult   Op = "fetch_result"
)

var (
	ErrFetchSequence = errors.New("fetch sequence failed")
	ErrSubmit        = errors.New("submit search failed")
	ErrFetchResult   = errors.New("fetch result failed")
)

// Error is an upstream communication failure for one remote operation.
// Target is the accession or RID the call was made for.
type Error struct {
	Op     Op
	Target string
	Err    error
}

func (e *Error) Error() string {
	var what string
	switch e.Op {
	case OpFetchSequence:
		what = fmt.Sprintf("failed to fetch FASTA for %s", e.Target)
	case OpSubmit:
		what = "failed to submit BLAST search"
	case OpFetchResult:
		what = fmt.Sprintf("failed to fetch BLAST result for RID %s", e.Target)
	default:
		what = fmt.Sprintf("%s %s failed", e.Op, e.Target)
	}
	if e.Err == nil {
		return what
	}
	return fmt.Sprintf("%s: %v", what, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrFetchSequence:
		return e.Op == OpFetchSequence
	case ErrSubmit:
		return e.Op == OpSubmit
	case ErrFetchResult:
		return e.Op == OpFetchResult
	}
	return false
}

// ParseError reports a result payload that is not a well-formed XML document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse BLAST XML: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
