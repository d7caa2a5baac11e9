package ncbi

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies why an efetch call produced no record.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"  // body was empty or not FASTA
	ErrorNotFound       ErrorCategory = "not_found" // NCBI has no record for the accession
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorRateLimited    ErrorCategory = "rate_limited" // 3 req/s without an API key, 10 with one
	ErrorInternal       ErrorCategory = "internal"
)

// transient reports whether the same request may succeed later. Only these
// categories count against the circuit breaker.
func (c ErrorCategory) transient() bool {
	switch c {
	case ErrorTimeout, ErrorProviderOutage, ErrorRateLimited:
		return true
	}
	return false
}

// FetchError is the failure returned by Client.Fetch for anything other than
// a malformed accession.
type FetchError struct {
	Category   ErrorCategory
	Accession  string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("ncbi fetch %s [%s]: %s", e.Accession, e.Category, e.Message)
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Underlying }

// NewFetchError builds a FetchError; Retryable follows the category.
func NewFetchError(category ErrorCategory, accession, message string, underlying error) *FetchError {
	return &FetchError{
		Category:   category,
		Accession:  accession,
		Message:    message,
		Underlying: underlying,
		Retryable:  category.transient(),
	}
}

// IsRetryable is true for a FetchError in a transient category. The client
// never retries by itself.
func IsRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Retryable
}

// CategoryOf returns the category of the FetchError in err's chain, or
// ErrorInternal.
func CategoryOf(err error) ErrorCategory {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ErrorInternal
}
