package db

import (
	"errors"
	"io"
	"strings"
	"syscall"
)

var retryableErrs = []error{
	syscall.ECONNRESET,
	syscall.ECONNREFUSED,
	io.EOF,
}

func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	for _, retryableErr := range retryableErrs {
		if errors.Is(err, retryableErr) {
			return true
		}
	}

	// Some drivers flatten the underlying syscall error into the message.
	errMsg := err.Error()
	return strings.Contains(errMsg, "connection reset by peer") || strings.Contains(errMsg, "connection refused")
}
