package awsclient

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// DescribeError renders err for a status line. Service errors are reduced to
// "Code: message"; anything else is returned as err.Error().
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.ErrorMessage(); msg != "" {
			return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), msg)
		}
		return apiErr.ErrorCode()
	}
	return err.Error()
}

// IsErrorCode reports whether err carries the given service error code.
func IsErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}
