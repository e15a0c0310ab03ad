package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const metricsTestPrefix = "metrics:metrics_test"

func TestCollector_Records(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordRequest("GET", "/Brand", 200, 20*time.Millisecond)
	c.RecordRequest("GET", "/Brand", 200, 10*time.Millisecond)
	c.RecordRequest("POST", "/Brand/save", 0, time.Second)
	c.RecordCacheHit("/Brand")
	c.RecordCacheMiss("/Brand")
	c.RecordCacheMiss("/Brand")
	c.RecordInvalidation("/Brand")
	c.RecordError("no_response", "POST", "/Brand/save")

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"requests GET 200", testutil.ToFloat64(c.requestsTotal.WithLabelValues("GET", "/Brand", "200")), 2},
		{"requests POST 0", testutil.ToFloat64(c.requestsTotal.WithLabelValues("POST", "/Brand/save", "0")), 1},
		{"cache hits", testutil.ToFloat64(c.cacheHits.WithLabelValues("/Brand")), 1},
		{"cache misses", testutil.ToFloat64(c.cacheMisses.WithLabelValues("/Brand")), 2},
		{"invalidations", testutil.ToFloat64(c.invalidations.WithLabelValues("/Brand")), 1},
		{"errors", testutil.ToFloat64(c.errorsTotal.WithLabelValues("no_response", "POST", "/Brand/save")), 1},
	}
	for _, ch := range checks {
		if ch.got != ch.want {
			t.Errorf("%s - %s = %v, want %v", metricsTestPrefix, ch.name, ch.got, ch.want)
		}
	}
	if n := testutil.CollectAndCount(c.requestDuration); n != 2 {
		t.Errorf("%s - duration series = %d, want 2", metricsTestPrefix, n)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.RecordRequest("GET", "/Brand", 200, time.Millisecond)
	c.RecordCacheHit("/Brand")
	c.RecordCacheMiss("/Brand")
	c.RecordInvalidation("/Brand")
	c.RecordError("server", "GET", "/Brand")
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	defer func() {
		if recover() == nil {
			t.Errorf("%s - expected panic on duplicate registration", metricsTestPrefix)
		}
	}()
	NewCollector(reg)
}
