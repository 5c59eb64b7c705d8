package stats

import (
	"expvar"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
	handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
	assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
	assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")
}

func TestUpdateMetricsSkipsUnregisteredNames(t *testing.T) {
	// built by hand with an unpublished map so the exported
	// "chatserver-stats" var is only claimed once per process
	su := &StatsUpdater{
		vars:       new(expvar.Map).Init(),
		updateChan: make(chan *metricsUpdateReq, 512),
	}
	su.RegisterMetric("TestConnections")

	su.Run()
	defer su.Stop()

	su.Incr("NeverRegistered")
	su.Incr("TestConnections")

	deadline := time.Now().Add(time.Second)
	for {
		metric, ok := su.vars.Get("TestConnections").(*expvar.Int)
		if ok && metric.Value() == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected update loop to keep processing after an unregistered name")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
