package transport

// ConnError is a transport-level failure. The batch manager's backoff
// loop treats it as retryable.
type ConnError struct {
	Op       string
	Endpoint string
	Reason   string
	Err      error
}

func (e *ConnError) Error() string {
	msg := "transport: " + e.Op
	if e.Endpoint != "" {
		msg += " " + e.Endpoint
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnError) Unwrap() error { return e.Err }
