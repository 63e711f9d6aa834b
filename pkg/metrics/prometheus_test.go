package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Counts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordAlertSent("BUY")
	r.RecordAlertSent("BUY")
	r.RecordAlertSuppressed()
	r.RecordError("notify")
	r.RecordTick("timer", time.Second)
	r.SetActiveSubscriptions(3)
	r.SetStreamConnected(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.signals.WithLabelValues("BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.suppressed))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("notify")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.scanTicks.WithLabelValues("timer")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.subscriptions))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.streamUp))
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordAlertSent("SELL")
		r.RecordError("persist")
		r.RecordRequest("klines", "200", time.Millisecond)
		r.SetStreamConnected(false)
	})
}
