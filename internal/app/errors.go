package app

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput   = errors.New("user id is required")
	ErrRecordNotFound = errors.New("record not found")
	ErrAPIKeyMissing  = errors.New("OpenAI API key is not configured")
	ErrNoPredictions  = errors.New("model returned no predictions")
	ErrNotConfigured  = errors.New("translator API credentials are not configured on the server")
)

// ValidationError carries the per-field messages from schema validation.
// Detected before any record is created.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input data: %s", strings.Join(e.Fields, "; "))
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
