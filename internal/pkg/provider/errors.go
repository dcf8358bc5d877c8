package provider

import "fmt"

// Error is the typed failure of a PayWithAccount call. Transport
// failures carry Err; API failures carry StatusCode and Body. Either
// way RequestRef identifies the attempt for tracing.
type Error struct {
	Err        error
	StatusCode int
	Body       string
	RequestRef string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("paywithaccount error: %v", e.Err)
	}
	return fmt.Sprintf("paywithaccount api error (status %d): %s", e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}
