package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("order:placed").End(nil))
	boom := errors.New("smtp down")
	assert.ErrorIs(t, m.Track("order:placed").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("order:placed", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("order:placed", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("order:placed")))
}

func TestJobSeriesUseTaskLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	_ = m.Track("order:placed").End(errors.New("smtp down"))

	families, err := reg.Gather()
	assert.NoError(t, err)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				assert.NotEqual(t, "job", label.GetName(), mf.GetName())
			}
		}
	}
}

func TestAddPurgedIgnoresEmptyRuns(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddPurged("idempotency_keys", 0)
	m.AddPurged("idempotency_keys", 7)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.purged.WithLabelValues("idempotency_keys")))

	var nilMetrics *Metrics
	nilMetrics.AddPurged("idempotency_keys", 3)
	assert.NoError(t, nilMetrics.Track("noop").End(nil))
}
