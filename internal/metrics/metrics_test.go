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

func TestRecorder(t *testing.T) {
	r := New()

	r.RecordCycle("ok", 1500*time.Millisecond)
	r.RecordEvaluation("alert", "TRENDING", 85)
	r.RecordEvaluation("vetoed", "RANGING", 0)
	r.RecordAlert("MOMENTUM", "sent")
	r.RecordError("validation")
	r.RecordError("validation")
	r.SetOpenSignals(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues("ok")))
	assert.Equal(t, 1.5, testutil.ToFloat64(r.cycleDuration))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("validation")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.openSignals))

	// A second recorder must not collide with the first one
	New().RecordError("internal")
}

func TestHandler(t *testing.T) {
	r := New()
	r.RecordAlert("REVERSAL", "throttled")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `setup_scanner_alerts_total{category="REVERSAL",status="throttled"} 1`)
}
