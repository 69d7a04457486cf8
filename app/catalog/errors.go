package catalog

import "fmt"

// TransientError marks a fetch failure worth retrying: network errors,
// HTTP 5xx responses and 429 rate limiting.
type TransientError struct {
	Page       int
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transient error on page %d: HTTP %d", e.Page, e.StatusCode)
	}
	return fmt.Sprintf("transient error on page %d: %s", e.Page, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FatalError marks a fetch failure retrying cannot fix: client errors
// other than 404 and 429, or a page body that does not decode.
type FatalError struct {
	Page       int
	StatusCode int
	Err        error
}

func (e *FatalError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fatal error on page %d: HTTP %d", e.Page, e.StatusCode)
	}
	return fmt.Sprintf("fatal error on page %d: %s", e.Page, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// ExhaustedError wraps the last transient error once all retry attempts
// for a page have been used up.
type ExhaustedError struct {
	Page     int
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("page %d failed after %d attempts: %s", e.Page, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// RecordError marks a single record that could not be decoded. The
// surrounding page is unaffected and pagination continues past it.
type RecordError struct {
	Page int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("bad record on page %d: %s", e.Page, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
