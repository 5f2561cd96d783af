package errors

import (
	"fmt"
	"strings"
)

// IsStrataError reports whether err is of our Error type
func IsStrataError(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// HasCode reports whether err is an *Error carrying the given code
func HasCode(err error, code Code) bool {
	if strataErr, ok := err.(*Error); ok {
		return strataErr.Code.Equals(code)
	}
	return false
}

// GetContext extracts context from our errors
func GetContext(err error) map[string]string {
	if strataErr, ok := err.(*Error); ok {
		return strataErr.Context
	}
	return nil
}

// GetCode returns the error code string, or "" for foreign errors
func GetCode(err error) string {
	if strataErr, ok := err.(*Error); ok {
		return strataErr.Code.String()
	}
	return ""
}

// AsError converts any error to the internal Error format
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if strataErr, ok := err.(*Error); ok {
		return strataErr
	}
	return New(CommonInternal, err.Error(), err)
}

// FormatError renders an error for logging
func FormatError(err error) string {
	if strataErr, ok := err.(*Error); ok {
		var parts []string
		parts = append(parts, fmt.Sprintf("Code: %s", strataErr.Code))
		parts = append(parts, fmt.Sprintf("Message: %s", strataErr.Message))

		if len(strataErr.Context) > 0 {
			parts = append(parts, "Context:")
			for k, v := range strataErr.Context {
				parts = append(parts, fmt.Sprintf("  %s: %v", k, v))
			}
		}

		if strataErr.Cause != nil {
			parts = append(parts, fmt.Sprintf("Cause: %v", strataErr.Cause))
		}

		return strings.Join(parts, "\n")
	}
	return err.Error()
}
