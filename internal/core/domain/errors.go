package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input, such as an
	// empty query or an unsupported corpus kind.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAdapter indicates a capture, permission or storage failure
	// inside a corpus adapter.
	ErrAdapter = errors.New("adapter failure")

	// ErrPermissionDenied indicates the corpus requires a permission
	// grant that was not given.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrGeneratorUnavailable indicates no generation model is
	// configured or reachable. The pipeline fails fast on this.
	ErrGeneratorUnavailable = errors.New("generator unavailable")

	// ErrGenerator indicates a prompt failed after the permitted retry.
	ErrGenerator = errors.New("generator failure")

	// ErrTranslatorUnavailable indicates translation was requested but
	// both the translator and the generator fallback failed.
	ErrTranslatorUnavailable = errors.New("translator unavailable")

	// ErrCancelled indicates the caller aborted the invocation.
	ErrCancelled = errors.New("cancelled")

	// ErrBudgetExceeded indicates not even the smallest selected
	// passage fits the prompt token budget.
	ErrBudgetExceeded = errors.New("token budget exceeded")

	// ErrBuildInProgress indicates an index build for the same corpus
	// key is already running.
	ErrBuildInProgress = errors.New("index build in progress")
)
