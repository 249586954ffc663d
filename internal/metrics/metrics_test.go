package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("mobility", reg)

	c.RecordRecords("accepted", 10)
	c.RecordRecords("malformed", 2)
	c.RecordRecords("out_of_area", 0)
	c.RecordPersonDay(3)
	c.RecordPersonDay(1)
	c.RecordMesos(5*time.Millisecond, 0.4)
	c.RecordAPIRequest("/api/v1/circles", "POST", "200")

	assert.Equal(t, 10.0, testutil.ToFloat64(c.RecordsTotal.WithLabelValues("accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.RecordsTotal.WithLabelValues("malformed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.PersonDaysTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.CirclesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.MesosTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.APIRequestsTotal.WithLabelValues("/api/v1/circles", "POST", "200")))
}

func TestTimer(t *testing.T) {
	c := NewCollector("timer", prometheus.NewRegistry())
	d := c.NewTimer(c.MiningDuration).ObserveDuration()
	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Equal(t, 1, testutil.CollectAndCount(c.MiningDuration))
}
