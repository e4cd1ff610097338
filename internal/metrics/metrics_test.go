package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	c.ObservePoll("baseline", 0.01, false, "")
	c.ObservePoll("baseline", 0.02, true, "fetch")
	c.ObservePoll("baseline", 0.02, true, "malformed")
	c.AddRecords("baseline", 12)
	c.AddLabels("baseline", 3, 9)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.PollAttempts.WithLabelValues("baseline")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.PollFailures.WithLabelValues("baseline", "malformed")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.RecordsParsed.WithLabelValues("baseline")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.LabeledRecords.WithLabelValues("baseline", "attack")))

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObservePoll("x", 1, true, "fetch")
	c.AddRecords("x", 1)
	c.AddAlert("x", "host_hijack")
	c.AddLabels("x", 1, 1)
	c.ScenarioDone("ok")
	assert.Nil(t, c.Registry())
	assert.NotNil(t, c.Handler())
}
