package domain

// ValidationError marks a raw event as malformed. It is terminal for that
// single event: the process stage routes it to the dead-letter topic with
// Reason as the failure classification and never retries it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
