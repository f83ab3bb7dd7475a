package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Note: Init(true, ...) registers into the default registry and may run
// only once per test binary, so the disabled case comes first.

func TestDisabledIsInert(t *testing.T) {
	Init(false, "sbtid_verifier")

	// Recorders must be no-ops, not nil dereferences
	RecordVerification("paid")
	ObserveIndexerRequest("runGetMethod", "ok", 0.01)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSeriesCarryServiceLabel(t *testing.T) {
	Init(true, "sbtid_verifier")

	RecordVerification("paid")
	ObserveIndexerRequest("runGetMethod", "ok", 0.01)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `verification_total{decision="paid",service="sbtid_verifier"} 1`)
	assert.Contains(t, body, `indexer_request_total{method="runGetMethod",service="sbtid_verifier",status="ok"} 1`)
}
