package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilManagerIsSafe(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.ListingCreated()
		m.ListingDeleted(true)
		m.ImageUploaded()
		m.ImageRejected()
		m.ImageDeleteFailed("draft")
		m.ObserveHTTP("GET", "/healthz", 200, time.Millisecond)
	})
}

func TestCounters(t *testing.T) {
	m := NewManager("webcarros_test")
	m.ListingCreated()
	m.ListingDeleted(false)
	m.ListingDeleted(true)
	m.ListingDeleted(true)
	m.ImageRejected()
	m.ObserveHTTP("DELETE", "/api/listings/{id}", 404, 5*time.Millisecond)
	m.ObserveHTTP("GET", "/api/listings", 200, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListingsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListingsDeleted.WithLabelValues("full")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ListingsDeleted.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImagesRejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPErrors.WithLabelValues("DELETE", "/api/listings/{id}", "404")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := NewManager("webcarros_test")
	m.ListingCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "webcarros_test_listings_created_total 1")
}
