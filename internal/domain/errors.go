package domain

import "errors"

// Sentinel errors for the failure taxonomy. Services wrap these with
// fmt.Errorf("...: %w", err); callers branch with errors.Is.
var (
	// ErrNotFound marks a reference to a session, project or co-pilot
	// session that does not exist. Mutations surface it as a soft
	// {success:false} result instead of propagating it.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks malformed or missing input, rejected before
	// any store write is attempted.
	ErrValidation = errors.New("invalid input")

	// ErrNoSuggestions is the RunAnalysis precondition failure: the
	// entity has an empty suggestions array. Soft, never propagated.
	ErrNoSuggestions = errors.New("no suggestions to analyze")

	// ErrGenerationFailure marks a generative call that returned no
	// usable output. Always propagated hard from analysis paths, since
	// a partial result must not be mistaken for success.
	ErrGenerationFailure = errors.New("generative service returned no usable output")
)
