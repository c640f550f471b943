package service

// invalidRequestError signals a request the pipeline refuses to run (400).
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return e.msg }

// ErrInvalidRequest constructs an invalidRequestError.
func ErrInvalidRequest(msg string) error { return invalidRequestError{msg: msg} }

// IsInvalidRequest reports whether err indicates a rejected request body.
func IsInvalidRequest(err error) bool {
	_, ok := err.(invalidRequestError)
	return ok
}

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{}

func (tooBusyError) Error() string { return "too busy" }

// ErrTooBusy constructs a tooBusyError.
func ErrTooBusy() error { return tooBusyError{} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// generationError wraps an engine failure raised during generate (500).
type generationError struct{ cause error }

func (e generationError) Error() string { return "generation failed: " + e.cause.Error() }
func (e generationError) Unwrap() error { return e.cause }

// IsGenerationFailure reports whether err came from a failed generate call.
func IsGenerationFailure(err error) bool {
	_, ok := err.(generationError)
	return ok
}
