package httputil

import (
	"net/http"
	"time"
)

const DefaultTimeout = 45 * time.Second

// NewClient returns an HTTP client with standard timeout configuration.
// Bulk station downloads are slow enough to need more headroom than the
// net/http default of none at all.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}
