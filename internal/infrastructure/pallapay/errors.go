package pallapay

import (
	"fmt"
	"strings"
)

// UpstreamError is returned when Pallapay could not be reached or did not
// accept the payment request. Body holds the raw response for diagnostics.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString("pallapay: payment request failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Body) > 0 {
		b.WriteString(": ")
		b.Write(e.Body)
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
