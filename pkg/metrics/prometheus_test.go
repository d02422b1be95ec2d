package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordPoll("MSFT", "accepted")
	r.RecordPoll("MSFT", "accepted")
	r.RecordPoll("MSFT", "error")
	r.RecordAnalysis("MSFT", time.Millisecond, nil)
	r.RecordAnalysis("MSFT", time.Millisecond, errors.New("bad series"))
	r.RecordLastPrice("MSFT", 412.5)
	r.SetQueueDepth("MSFT", 3)
	r.SetActiveSessions(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.polls.WithLabelValues("MSFT", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.polls.WithLabelValues("MSFT", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.analysisErrors.WithLabelValues("MSFT")))
	assert.Equal(t, 412.5, testutil.ToFloat64(r.lastPrice.WithLabelValues("MSFT")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.queueDepth.WithLabelValues("MSFT")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.activeSessions))
}
