package bigquery

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
)

func hasStatusCode(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func isNotFoundErr(err error) bool {
	return hasStatusCode(err, http.StatusNotFound)
}

func isAlreadyExistsErr(err error) bool {
	return hasStatusCode(err, http.StatusConflict)
}

var retryableReasons = []string{"backendError", "internalError", "rateLimitExceeded", "jobRateLimitExceeded"}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return true
		}
	}

	var jobErr *bigquery.Error
	if errors.As(err, &jobErr) && slices.Contains(retryableReasons, jobErr.Reason) {
		return true
	}

	// Concurrent DML against the same table: Could not serialize access to table x due to concurrent update
	msg := err.Error()
	return strings.Contains(msg, "due to concurrent update") || strings.Contains(msg, "Exceeded rate limits")
}
