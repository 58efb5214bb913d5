package evo

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrIllegalState    = errors.New("illegal state")
	ErrTimeout         = errors.New("timeout")
	ErrPipelineFailure = errors.New("pipeline failure")
	ErrStopped         = errors.New("engine stopped")

	// ErrInsufficientChromosomes is returned when a population cannot be
	// filled up to its configured size.
	ErrInsufficientChromosomes = &insufficientError{}
)

type insufficientError struct{}

func (*insufficientError) Error() string { return "insufficient chromosomes" }

func (*insufficientError) Unwrap() error { return ErrIllegalState }
