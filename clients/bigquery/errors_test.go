package bigquery

import (
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestIsNotFoundErr(t *testing.T) {
	assert.False(t, isNotFoundErr(nil))
	assert.False(t, isNotFoundErr(fmt.Errorf("not found")))
	assert.True(t, isNotFoundErr(&googleapi.Error{Code: http.StatusNotFound}))
	assert.True(t, isNotFoundErr(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusNotFound})))
	assert.False(t, isNotFoundErr(&googleapi.Error{Code: http.StatusConflict}))
}

func TestIsAlreadyExistsErr(t *testing.T) {
	assert.True(t, isAlreadyExistsErr(&googleapi.Error{Code: http.StatusConflict}))
	assert.False(t, isAlreadyExistsErr(&googleapi.Error{Code: http.StatusNotFound}))
}

func TestIsRetryableError(t *testing.T) {
	{
		// Not retryable
		assert.False(t, isRetryableError(nil))
		assert.False(t, isRetryableError(fmt.Errorf("Syntax error: Unexpected keyword")))
		assert.False(t, isRetryableError(&googleapi.Error{Code: http.StatusBadRequest}))
		assert.False(t, isRetryableError(&bigquery.Error{Reason: "invalidQuery"}))
	}
	{
		// Retryable
		assert.True(t, isRetryableError(&googleapi.Error{Code: http.StatusTooManyRequests}))
		assert.True(t, isRetryableError(fmt.Errorf("failed: %w", &googleapi.Error{Code: http.StatusServiceUnavailable})))
		assert.True(t, isRetryableError(&bigquery.Error{Reason: "rateLimitExceeded"}))
		assert.True(t, isRetryableError(fmt.Errorf("Could not serialize access to table p:d.work due to concurrent update")))
	}
}
