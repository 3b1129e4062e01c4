package wire

// ValidationError reports input that violates the wire contract (batch
// over the size cap, malformed subject slot). It is never retried; the
// caller must fix the input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "wire: " + e.Reason
}

// EncodingError reports a serialization failure. It indicates a contract
// bug rather than a transient condition and must not be retried.
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return "wire: failed to " + e.Op + ": " + e.Err.Error()
}

func (e *EncodingError) Unwrap() error { return e.Err }
