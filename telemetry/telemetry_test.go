package telemetry

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	buffer := &bytes.Buffer{}
	logger := NewLoggerWithWriter(buffer, "info").NewComponentLogger("scf").WithNode("n1")
	ctx := logger.WithContext(context.Background())
	FromContext(ctx).Debugf("hidden %d", 1)
	FromContext(ctx).Infof("loop %d", 2)
	output := buffer.String()
	assert.False(t, strings.Contains(output, "hidden"))
	assert.True(t, strings.Contains(output, `"component":"scf"`))
	assert.True(t, strings.Contains(output, `"node_id":"n1"`))
	assert.True(t, strings.Contains(output, `"message":"loop 2"`))

	FromContext(context.Background()).Errorf("discarded")
}

func TestMetrics(t *testing.T) {
	cfg := DefaultMetricsConfig()
	cfg.Enabled = true
	metrics := NewMetrics(cfg)
	metrics.RecordWorkchainStarted("fleur.scf")
	metrics.RecordWorkchainFinished("fleur.scf", 0)
	metrics.RecordCalculation("fleur", "completed", time.Minute)
	metrics.RecordRestart("memory")
	metrics.AddQueued(2)
	metrics.AddQueued(-1)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.workchainsStarted.WithLabelValues("fleur.scf")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.jobsQueued))

	recorder := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, recorder.Code)
	assert.True(t, strings.Contains(recorder.Body.String(), "fleurflow_calculations_total"))
}

func TestMetrics_Disabled(t *testing.T) {
	metrics := NewMetrics(DefaultMetricsConfig())
	metrics.RecordWorkchainStarted("fleur.scf")
	metrics.RecordSCF("density", true, 10)
	assert.Nil(t, metrics.Registry())
	var nilMetrics *Metrics
	nilMetrics.RecordRestart("memory")
}
