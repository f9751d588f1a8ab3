package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalid               = errors.New("invalid")
	ErrConflict              = errors.New("conflict")
	ErrInternal              = errors.New("internal")
	ErrRetrievalUnavailable  = errors.New("retrieval unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrUnparsableResponse    = errors.New("unparsable response")
)

// UnparsableResponseError keeps the raw model output for diagnostics.
type UnparsableResponseError struct {
	Raw string
}

func (e *UnparsableResponseError) Error() string {
	return fmt.Sprintf("%s: no structured block found in %d bytes of output", ErrUnparsableResponse, len(e.Raw))
}

func (e *UnparsableResponseError) Unwrap() error {
	return ErrUnparsableResponse
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}
