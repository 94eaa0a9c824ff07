package metrics

import (
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/innbucks/dashboard/internal/engine"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBuild(t *testing.T) {
	cfg := engine.Classic()
	cfg.CustomerCount = 30
	snap, err := engine.Build(cfg, nil)
	require.NoError(t, err)

	c := New()
	c.ObserveBuild(snap, 25*time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.builds.WithLabelValues("ok")))
	assert.Equal(t, 30.0, testutil.ToFloat64(c.rows.WithLabelValues("customers")))
	assert.Equal(t, float64(len(snap.Dataset.Transactions)), testutil.ToFloat64(c.rows.WithLabelValues("transactions")))
	assert.InDelta(t, snap.Dashboard.KPIs.TotalVolume, testutil.ToFloat64(c.volume), 1e-9)

	c.ObserveBuild(nil, 0, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.builds.WithLabelValues("error")))
}

func TestUndefinedRateIsNaN(t *testing.T) {
	cfg := engine.Classic()
	cfg.CustomerCount = 0
	snap, err := engine.Build(cfg, nil)
	require.NoError(t, err)

	c := New()
	c.ObserveBuild(snap, time.Millisecond, nil)
	assert.True(t, math.IsNaN(testutil.ToFloat64(c.rates.WithLabelValues("kyc_completion"))))
}

func TestHandler(t *testing.T) {
	c := New()
	c.builds.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `innbucks_snapshot_builds_total{result="ok"} 1`))
}
