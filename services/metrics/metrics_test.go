package metricsvc

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	m.ProxyRequests.WithLabelValues("salles", "list", "200").Inc()
	m.ProxyRequests.WithLabelValues("salles", "list", "200").Inc()
	m.LoginAttempts.WithLabelValues("failure").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProxyRequests.WithLabelValues("salles", "list", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues("failure")))

	// independent registries: a second instance does not panic on registration
	assert.NotPanics(t, func() { NewMetrics() })
}
