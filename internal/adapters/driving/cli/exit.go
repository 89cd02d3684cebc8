package cli

// ExitError carries a specific process exit code so monitoring scripts can
// tell a retryable degradation (1) from a required re-bootstrap (2).
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }
